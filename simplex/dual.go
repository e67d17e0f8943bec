// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"math"
	"sort"
)

// iterResult is the outcome of one dual pivot attempt.
type iterResult int

const (
	// iterPivoted means a pivot (or a pure bound-flip step) was applied.
	iterPivoted iterResult = iota
	// iterOptimal means no basic variable is primal infeasible.
	iterOptimal
	// iterRatioFail means the ratio test found no entering variable: the
	// dual is unbounded in the chosen row's direction.
	iterRatioFail
	// iterRebuild means the factorization wants rebuilding before the
	// next pivot.
	iterRebuild
	// iterSingular means a pivot failed right after a fresh
	// factorization, so rebuilding cannot help.
	iterSingular
)

// dseWeightFloor keeps steepest-edge weights away from zero.
const dseWeightFloor = 1e-4

// rebuildDual refactorizes and recomputes everything the iteration reads:
// primal values, duals (with local corrections), the dual objective and,
// when missing, the steepest-edge reference weights.
func (inst *instance) rebuildDual(phase int) bool {
	if rd := inst.computeFactor(); rd > 0 {
		return false
	}
	inst.computeDual()
	var freeInfeasCount int
	inst.correctDual(&freeInfeasCount)
	// The dual corrections may flip nonbasic values, so the primal comes
	// after them.
	inst.computePrimal()
	inst.computeDualObjectiveValue(phase)
	inst.updatedDualObjectiveValue = 0

	if !inst.status.hasDSEWeights {
		if inst.dseWeight == nil {
			inst.dseWeight = make([]float64, inst.lp.NumRow)
		}
		for i := range inst.dseWeight {
			inst.dseWeight[i] = 1
		}
		inst.status.hasDSEWeights = true
	}
	inst.status.hasFreshRebuild = true
	inst.log.WithFields(map[string]interface{}{
		"phase":         phase,
		"iterations":    inst.iterCount,
		"dualObjective": inst.dualObjectiveValue,
		"freeInfeas":    freeInfeasCount,
	}).Debug("rebuild")
	return true
}

// chooseRow picks the basic row with the largest weighted primal
// infeasibility, or -1 when every basic value is within tolerance.
func (inst *instance) chooseRow() int {
	basis := inst.basis
	tauP := inst.opts.PrimalFeasibilityTolerance
	steepest := inst.opts.EdgeWeight == EdgeWeightSteepest
	rowOut := -1
	bestScore := 0.0
	for row := 0; row < inst.lp.NumRow; row++ {
		value := basis.baseValue[row]
		infeas := 0.0
		if value < basis.baseLower[row]-tauP {
			infeas = basis.baseLower[row] - value
		} else if value > basis.baseUpper[row]+tauP {
			infeas = value - basis.baseUpper[row]
		} else {
			continue
		}
		score := infeas * infeas
		if steepest {
			score /= inst.dseWeight[row]
		}
		if score > bestScore {
			bestScore = score
			rowOut = row
		}
	}
	return rowOut
}

// ratioCandidate is one admissible entering variable for the dual ratio
// test: alpha is its raw tableau entry in the pivot row, ratio its strict
// dual ratio, and boxed/rng describe its flip potential.
type ratioCandidate struct {
	variable int
	alpha    float64
	absAlpha float64
	ratio    float64
	relaxed  float64
	boxed    bool
	rng      float64
}

// chooseColumn runs the two-pass ratio test with bound flipping over the
// priced row. It returns the entering variable, the variables to flip,
// and the raw dual step theta such that workDual[j] -= theta·alpha[j]. ok
// is false when no candidate admits a pivot and the remaining
// infeasibility is nonzero; the entering variable is then -1 and the
// flips collected before the walk stopped are still returned.
func (inst *instance) chooseColumn(sourceOut int, deltaPrimal float64, rowAp, rowEp *Vector) (columnIn int, flips []int, theta float64, ok bool) {
	basis := inst.basis
	numCol := inst.lp.NumCol
	dir := float64(sourceOut)
	tauP := inst.opts.PrimalFeasibilityTolerance
	tauD := inst.opts.DualFeasibilityTolerance

	var cands []ratioCandidate
	consider := func(variable int, value float64) {
		if basis.NonbasicFlag[variable] != nonbasicFlagTrue {
			return
		}
		if value < tauP && value > -tauP {
			return
		}
		move := float64(basis.NonbasicMove[variable])
		lower := basis.workLower[variable]
		upper := basis.workUpper[variable]
		if move == 0 {
			if lower > -Inf || upper < Inf {
				// Fixed variables never move.
				return
			}
			// A free variable can enter in either direction.
			move = 1
			if dir*value < 0 {
				move = -1
			}
		}
		alpha := dir * value * move
		if alpha <= tauP {
			return
		}
		dual := move * basis.workDual[variable]
		cands = append(cands, ratioCandidate{
			variable: variable,
			alpha:    value,
			absAlpha: math.Abs(value),
			ratio:    dual / alpha,
			relaxed:  (dual + tauD) / alpha,
			boxed:    lower > -Inf && upper < Inf && lower != upper,
			rng:      upper - lower,
		})
	}

	for n := 0; n < rowAp.Count; n++ {
		j := rowAp.Index[n]
		consider(j, rowAp.Array[j])
	}
	for n := 0; n < rowEp.Count; n++ {
		i := rowEp.Index[n]
		consider(numCol+i, rowEp.Array[i])
	}

	if len(cands) == 0 {
		return -1, nil, 0, false
	}

	sort.Slice(cands, func(a, b int) bool { return cands[a].ratio < cands[b].ratio })

	// Bound-flipping walk: boxed candidates whose flip cannot absorb the
	// whole remaining infeasibility flip without entering, extending the
	// dual step past their breakpoint.
	remaining := math.Abs(deltaPrimal)
	first := 0
	for first < len(cands) {
		c := cands[first]
		if c.boxed && remaining > c.rng*c.absAlpha {
			flips = append(flips, c.variable)
			remaining -= c.rng * c.absAlpha
			first++
			continue
		}
		break
	}
	if first == len(cands) {
		return -1, flips, 0, false
	}

	// Harris second pass over the surviving candidates: the relaxed first
	// pass bounds the step, the pick is the largest pivot under it.
	bound := math.Inf(1)
	for _, c := range cands[first:] {
		bound = math.Min(bound, c.relaxed)
	}
	best := -1
	bestAlpha := 0.0
	for n := first; n < len(cands); n++ {
		c := cands[n]
		if c.ratio <= bound && c.absAlpha > bestAlpha {
			bestAlpha = c.absAlpha
			best = n
		}
	}
	if best < 0 {
		return -1, flips, 0, false
	}
	chosen := cands[best]
	return chosen.variable, flips, basis.workDual[chosen.variable] / chosen.alpha, true
}

// applyFlips moves each listed variable to its other bound and corrects
// the basic values by one FTRAN of the accumulated column combination.
func (inst *instance) applyFlips(flips []int) {
	if len(flips) == 0 {
		return
	}
	basis := inst.basis
	fv := &inst.vecFlip
	fv.Clear()
	for _, variable := range flips {
		old := basis.workValue[variable]
		inst.flipBound(variable)
		delta := basis.workValue[variable] - old
		if delta != 0 {
			inst.matrix.CollectAj(fv, variable, delta)
		}
	}
	fv.Tight()
	if fv.Count == 0 {
		return
	}
	inst.factor.Ftran(fv, 1)
	for row := 0; row < inst.lp.NumRow; row++ {
		basis.baseValue[row] -= fv.Array[row]
	}
}

// updateDual applies the dual step to every priced variable, then pins
// the entering and leaving duals to their exact post-pivot values.
func (inst *instance) updateDual(theta float64, rowAp, rowEp *Vector, columnIn, columnOut int) {
	basis := inst.basis
	numCol := inst.lp.NumCol
	for n := 0; n < rowAp.Count; n++ {
		j := rowAp.Index[n]
		if basis.NonbasicFlag[j] == nonbasicFlagTrue {
			basis.workDual[j] -= theta * rowAp.Array[j]
		}
	}
	for n := 0; n < rowEp.Count; n++ {
		variable := numCol + rowEp.Index[n]
		if basis.NonbasicFlag[variable] == nonbasicFlagTrue {
			basis.workDual[variable] -= theta * rowEp.Array[rowEp.Index[n]]
		}
	}
	basis.workDual[columnIn] = 0
	basis.workDual[columnOut] = -theta
}

// updatePrimal applies the pivot step to the basic values and installs
// the entering variable's value in the pivot row.
func (inst *instance) updatePrimal(column *Vector, rowOut int, thetaPrimal, valueIn float64) {
	basis := inst.basis
	if column.Count < 0 {
		for row := 0; row < inst.lp.NumRow; row++ {
			basis.baseValue[row] -= thetaPrimal * column.Array[row]
		}
	} else {
		for n := 0; n < column.Count; n++ {
			row := column.Index[n]
			basis.baseValue[row] -= thetaPrimal * column.Array[row]
		}
	}
	basis.baseValue[rowOut] = valueIn + thetaPrimal
}

// updateWeights applies the steepest-edge recurrence after a pivot:
// the leaving row's exact weight rowEpNorm2 seeds the entering row, and
// every touched row is corrected through tau = B⁻¹ρ.
func (inst *instance) updateWeights(column *Vector, rowOut int, rowEpNorm2 float64, tau *Vector) {
	if inst.opts.EdgeWeight != EdgeWeightSteepest {
		return
	}
	alpha := column.Array[rowOut]
	weights := inst.dseWeight
	if column.Count < 0 {
		column.reindex()
	}
	for n := 0; n < column.Count; n++ {
		row := column.Index[n]
		if row == rowOut {
			continue
		}
		factor := column.Array[row] / alpha
		weight := weights[row] - 2*factor*tau.Array[row] + factor*factor*rowEpNorm2
		weights[row] = math.Max(weight, dseWeightFloor)
	}
	weights[rowOut] = math.Max(rowEpNorm2/(alpha*alpha), dseWeightFloor)
}

// dualIterate attempts one pivot of the dual simplex: CHUZR, BTRAN,
// PRICE, CHUZC, FTRAN, then the update set, in that order and atomically
// with respect to the basis.
func (inst *instance) dualIterate(phase int) iterResult {
	basis := inst.basis
	rowOut := inst.chooseRow()
	if rowOut < 0 {
		return iterOptimal
	}
	columnOut := basis.BasicIndex[rowOut]
	value := basis.baseValue[rowOut]
	var deltaPrimal float64
	if value < basis.baseLower[rowOut] {
		deltaPrimal = value - basis.baseLower[rowOut]
	} else {
		deltaPrimal = value - basis.baseUpper[rowOut]
	}
	sourceOut := 1
	if deltaPrimal < 0 {
		sourceOut = -1
	}

	rowEp := &inst.vecRowEp
	rowEp.Clear()
	rowEp.Count = 1
	rowEp.Index[0] = rowOut
	rowEp.Array[rowOut] = 1
	inst.factor.Btran(rowEp, 0.05)
	rowEpNorm2 := rowEp.Norm2()

	rowAp := &inst.vecRowAp
	rowAp.Clear()
	if inst.opts.Price == PriceCol {
		inst.matrix.PriceByCol(rowAp, rowEp)
	} else {
		inst.matrix.PriceByRow(rowAp, rowEp)
	}

	columnIn, flips, theta, ok := inst.chooseColumn(sourceOut, deltaPrimal, rowAp, rowEp)
	if !ok {
		if len(flips) > 0 && phase == 1 {
			// Flip what the walk collected and retry the row.
			inst.applyFlips(flips)
			return iterPivoted
		}
		return iterRatioFail
	}
	inst.applyFlips(flips)

	colAq := &inst.vecColAq
	colAq.Clear()
	inst.matrix.CollectAj(colAq, columnIn, 1)
	colAq.Tight()
	inst.factor.Ftran(colAq, 0.05)

	alpha := colAq.Array[rowOut]
	pivotTol := 1e-9 * (1 + 10*colAq.density())
	if math.Abs(alpha) < pivotTol {
		if inst.status.hasFreshInvert {
			return iterSingular
		}
		return iterRebuild
	}

	// The flips may have moved the leaving value; the primal step uses
	// what is left of the infeasibility.
	value = basis.baseValue[rowOut]
	if sourceOut == -1 {
		deltaPrimal = value - basis.baseLower[rowOut]
	} else {
		deltaPrimal = value - basis.baseUpper[rowOut]
	}
	thetaPrimal := deltaPrimal / alpha

	// tau feeds the steepest-edge correction and must use the factors
	// from before this pivot, as must the entering column itself.
	if inst.opts.EdgeWeight == EdgeWeightSteepest {
		tau := &inst.vecTau
		tau.CopyFrom(rowEp)
		inst.factor.Ftran(tau, 1)
		inst.updateWeights(colAq, rowOut, rowEpNorm2, tau)
	}

	inst.updateDual(theta, rowAp, rowEp, columnIn, columnOut)
	inst.updatePrimal(colAq, rowOut, thetaPrimal, basis.workValue[columnIn])
	inst.updatedDualObjectiveValue += theta * deltaPrimal

	hint := invertHintNone
	inst.updateFactor(colAq, rowEp, rowOut, &hint)
	if hint == invertHintPossiblySingularBasis {
		if inst.status.hasFreshInvert {
			return iterSingular
		}
		return iterRebuild
	}
	inst.updatePivots(columnIn, rowOut, sourceOut)
	inst.updateMatrix(columnIn, columnOut)
	inst.iterCount++
	if hint != invertHintNone {
		return iterRebuild
	}
	return iterPivoted
}
