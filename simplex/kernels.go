// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// computeFactor refactorizes the basis from scratch. A rank-deficient
// basis is repaired once by swapping each deficient column for the
// logical of its missing pivot row; a second deficiency in a row signals
// a singular basis.
func (inst *instance) computeFactor() int {
	rankDeficiency := inst.factor.Build()
	if rankDeficiency > 0 {
		inst.handleRankDeficiency()
		rankDeficiency = inst.factor.Build()
	}
	if rankDeficiency > 0 {
		return rankDeficiency
	}
	inst.updateCount = 0
	inst.status.hasInvert = true
	inst.status.hasFreshInvert = true
	return 0
}

// handleRankDeficiency swaps every column the factorization could not
// pivot for the logical that stood in for it, keeping the basis and the
// substituted factorization consistent.
func (inst *instance) handleRankDeficiency() {
	factor := &inst.factor
	for k := 0; k < factor.RankDeficiency; k++ {
		columnIn := inst.lp.NumCol + factor.NoPvR[k]
		columnOut := factor.NoPvC[k]
		rowOut := factor.NoPvPos[k]
		sourceOut := inst.setSourceOutFromBound(columnOut)
		inst.log.WithFields(map[string]interface{}{
			"columnIn": columnIn, "columnOut": columnOut, "rowOut": rowOut,
		}).Debug("repairing rank-deficient basis")
		inst.updatePivots(columnIn, rowOut, sourceOut)
		inst.updateMatrix(columnIn, columnOut)
	}
}

// computePrimal assembles the nonbasic contributions, FTRANs them and
// stores the basic values together with their bounds.
func (inst *instance) computePrimal() {
	lp := inst.lp
	basis := inst.basis
	numTot := inst.numTot()

	buffer := Vector{}
	buffer.Setup(lp.NumRow)
	for variable := 0; variable < numTot; variable++ {
		if basis.NonbasicFlag[variable] == nonbasicFlagTrue && basis.workValue[variable] != 0 {
			inst.matrix.CollectAj(&buffer, variable, basis.workValue[variable])
		}
	}
	inst.factor.Ftran(&buffer, 1)

	for row := 0; row < lp.NumRow; row++ {
		variable := basis.BasicIndex[row]
		basis.baseValue[row] = -buffer.Array[row]
		basis.baseLower[row] = basis.workLower[variable]
		basis.baseUpper[row] = basis.workUpper[variable]
	}
	inst.status.hasBasicPrimals = true
}

// computeDual BTRANs the basic costs into row prices, prices out the
// structural columns and refreshes every nonbasic dual.
func (inst *instance) computeDual() {
	lp := inst.lp
	basis := inst.basis

	buffer := Vector{}
	buffer.Setup(lp.NumRow)
	for row := 0; row < lp.NumRow; row++ {
		variable := basis.BasicIndex[row]
		buffer.Index[row] = row
		buffer.Array[row] = basis.workCost[variable] + basis.workShift[variable]
	}
	buffer.Count = lp.NumRow
	inst.factor.Btran(&buffer, 1)
	buffer.reindex()

	bufferLong := Vector{}
	bufferLong.Setup(lp.NumCol)
	// The row prices are dense here, so the column-wise kernel is the
	// right one regardless of the iteration price strategy.
	inst.matrix.PriceByCol(&bufferLong, &buffer)
	for col := 0; col < lp.NumCol; col++ {
		basis.workDual[col] = basis.workCost[col] - bufferLong.Array[col]
	}
	numTot := inst.numTot()
	for variable := lp.NumCol; variable < numTot; variable++ {
		basis.workDual[variable] = basis.workCost[variable] - buffer.Array[variable-lp.NumCol]
	}
	inst.status.hasNonbasicDuals = true
}

// computeDualObjectiveValue sums workValue·workDual over the nonbasic
// variables; away from phase 1 the value is unscaled by the cost factor
// and shifted by the LP offset.
func (inst *instance) computeDualObjectiveValue(phase int) {
	basis := inst.basis
	value := 0.0
	for variable := 0; variable < inst.numTot(); variable++ {
		if basis.NonbasicFlag[variable] == nonbasicFlagTrue {
			value += basis.workValue[variable] * basis.workDual[variable]
		}
	}
	if phase != 1 {
		value *= inst.scale.Cost
		value += float64(inst.lp.Sense) * inst.lp.Offset
	}
	inst.dualObjectiveValue = value
	inst.status.hasDualObjective = true
}

// computePrimalObjectiveValue prices the current primal point against the
// working LP costs, in the scaled space.
func (inst *instance) computePrimalObjectiveValue() float64 {
	lp := inst.lp
	basis := inst.basis
	value := 0.0
	for row := 0; row < lp.NumRow; row++ {
		variable := basis.BasicIndex[row]
		if variable < lp.NumCol {
			value += basis.baseValue[row] * lp.ColCost[variable]
		}
	}
	value += floats.Dot(restrictNonbasic(basis, lp.NumCol), lp.ColCost)
	return value * inst.scale.Cost
}

// restrictNonbasic returns the nonbasic structural values with basic
// slots zeroed, aligned with the cost vector.
func restrictNonbasic(basis *Basis, numCol int) []float64 {
	values := make([]float64, numCol)
	for col := 0; col < numCol; col++ {
		if basis.NonbasicFlag[col] == nonbasicFlagTrue {
			values[col] = basis.workValue[col]
		}
	}
	return values
}

// correctDual repairs nonbasic dual infeasibilities in place: a boxed
// variable flips to its other bound, anything else has its cost shifted
// just past the feasibility tolerance. Free variables cannot be repaired
// and are only counted.
func (inst *instance) correctDual(freeInfeasCount *int) {
	basis := inst.basis
	tauD := inst.opts.DualFeasibilityTolerance
	random := newRandomStream()
	count := 0
	for variable := 0; variable < inst.numTot(); variable++ {
		if basis.NonbasicFlag[variable] != nonbasicFlagTrue {
			continue
		}
		lower := basis.workLower[variable]
		upper := basis.workUpper[variable]
		if lower <= -Inf && upper >= Inf {
			if math.Abs(basis.workDual[variable]) >= tauD {
				count++
			}
			continue
		}
		if float64(basis.NonbasicMove[variable])*basis.workDual[variable] <= -tauD {
			if lower > -Inf && upper < Inf {
				inst.flipBound(variable)
				continue
			}
			inst.costsPerturbed = true
			dual := (1 + random.fraction()) * tauD
			if basis.NonbasicMove[variable] != moveUp {
				dual = -dual
			}
			shift := dual - basis.workDual[variable]
			basis.workDual[variable] = dual
			basis.workCost[variable] += shift
		}
	}
	*freeInfeasCount = count
}

// computeDualInfeasibleInDual counts the dual infeasibilities the dual
// iteration cannot remove by flipping: free variables off zero and
// one-sided variables on the wrong side.
func (inst *instance) computeDualInfeasibleInDual() int {
	basis := inst.basis
	tauD := inst.opts.DualFeasibilityTolerance
	count := 0
	for variable := 0; variable < inst.numTot(); variable++ {
		if basis.NonbasicFlag[variable] != nonbasicFlagTrue {
			continue
		}
		lower := basis.workLower[variable]
		upper := basis.workUpper[variable]
		if lower <= -Inf && upper >= Inf {
			if math.Abs(basis.workDual[variable]) >= tauD {
				count++
			}
		}
		if lower <= -Inf || upper >= Inf {
			if float64(basis.NonbasicMove[variable])*basis.workDual[variable] <= -tauD {
				count++
			}
		}
	}
	return count
}

// computeDualInfeasibleInPrimal counts every dual infeasibility, with no
// credit for flippable boxed variables.
func (inst *instance) computeDualInfeasibleInPrimal() int {
	basis := inst.basis
	tauD := inst.opts.DualFeasibilityTolerance
	count := 0
	for variable := 0; variable < inst.numTot(); variable++ {
		if basis.NonbasicFlag[variable] != nonbasicFlagTrue {
			continue
		}
		lower := basis.workLower[variable]
		upper := basis.workUpper[variable]
		if lower <= -Inf && upper >= Inf {
			if math.Abs(basis.workDual[variable]) >= tauD {
				count++
			}
		}
		if float64(basis.NonbasicMove[variable])*basis.workDual[variable] <= -tauD {
			count++
		}
	}
	return count
}

// updateFactor appends the product-form factor for the latest pivot and
// schedules a refactorization once the chain is long enough.
func (inst *instance) updateFactor(column, rowEp *Vector, rowOut int, hint *invertHint) {
	if got := inst.factor.Update(column, rowEp, rowOut); got != invertHintNone {
		*hint = got
		return
	}
	inst.status.hasInvert = true
	if inst.updateCount >= inst.opts.UpdateLimit {
		*hint = invertHintUpdateLimitReached
	}
}

// updatePivots commits a pivot to the basis: the entering variable takes
// over row rowOut, the leaving variable settles on the bound selected by
// sourceOut (per the nonbasic move table), and the freshness flags fall.
func (inst *instance) updatePivots(columnIn, rowOut, sourceOut int) {
	lp := inst.lp
	basis := inst.basis
	columnOut := basis.BasicIndex[rowOut]

	basis.BasicIndex[rowOut] = columnIn
	basis.NonbasicFlag[columnIn] = nonbasicFlagFalse
	basis.NonbasicMove[columnIn] = moveZero
	basis.baseLower[rowOut] = basis.workLower[columnIn]
	basis.baseUpper[rowOut] = basis.workUpper[columnIn]

	basis.NonbasicFlag[columnOut] = nonbasicFlagTrue
	lower := basis.workLower[columnOut]
	upper := basis.workUpper[columnOut]
	switch {
	case lower == upper:
		basis.workValue[columnOut] = lower
		basis.NonbasicMove[columnOut] = moveZero
	case lower <= -Inf && upper >= Inf:
		basis.workValue[columnOut] = 0
		basis.NonbasicMove[columnOut] = moveZero
	case sourceOut == -1:
		basis.workValue[columnOut] = lower
		basis.NonbasicMove[columnOut] = moveUp
	default:
		basis.workValue[columnOut] = upper
		basis.NonbasicMove[columnOut] = moveDown
	}
	inst.updatedDualObjectiveValue += basis.workValue[columnOut] * basis.workDual[columnOut]
	inst.updateCount++
	if columnOut >= lp.NumCol {
		inst.numBasicLogicals--
	}
	if columnIn >= lp.NumCol {
		inst.numBasicLogicals++
	}
	inst.status.hasInvert = false
	inst.status.hasFreshInvert = false
	inst.status.hasFreshRebuild = false
}

// updateMatrix restores the row-wise nonbasic partition after a pivot.
func (inst *instance) updateMatrix(columnIn, columnOut int) {
	inst.matrix.Update(columnIn, columnOut)
}
