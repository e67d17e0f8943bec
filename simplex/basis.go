// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import "math"

// newBasis allocates an invalid basis sized for the LP.
func newBasis(numCol, numRow int) *Basis {
	numTot := numCol + numRow
	return &Basis{
		NonbasicFlag: make([]int8, numTot),
		NonbasicMove: make([]int8, numTot),
		BasicIndex:   make([]int, numRow),
	}
}

// initialiseBasicIndex derives BasicIndex by scanning NonbasicFlag. It
// reports false when the flags do not mark exactly numRow variables basic.
func (inst *instance) initialiseBasicIndex() bool {
	basis := inst.basis
	numBasic := 0
	for variable, flag := range basis.NonbasicFlag {
		if flag == nonbasicFlagFalse {
			if numBasic >= inst.lp.NumRow {
				return false
			}
			basis.BasicIndex[numBasic] = variable
			numBasic++
		}
	}
	return numBasic == inst.lp.NumRow
}

func (inst *instance) allocateWorkAndBaseArrays() {
	basis := inst.basis
	numTot := inst.numTot()
	basis.workCost = make([]float64, numTot)
	basis.workDual = make([]float64, numTot)
	basis.workShift = make([]float64, numTot)
	basis.workLower = make([]float64, numTot)
	basis.workUpper = make([]float64, numTot)
	basis.workRange = make([]float64, numTot)
	basis.workValue = make([]float64, numTot)
	basis.baseLower = make([]float64, inst.lp.NumRow)
	basis.baseUpper = make([]float64, inst.lp.NumRow)
	basis.baseValue = make([]float64, inst.lp.NumRow)
}

// initialiseFromNonbasic derives BasicIndex from the nonbasic flags, then
// allocates and populates the work and base arrays. It reports false when
// the flags do not describe a basis.
func (inst *instance) initialiseFromNonbasic() bool {
	if !inst.initialiseBasicIndex() {
		return false
	}
	inst.allocateWorkAndBaseArrays()
	inst.populateWorkArrays()
	inst.status.apply(actionNewBasis)
	inst.status.hasBasis = true
	return true
}

// initialiseWithLogicalBasis installs the all-logicals basis and
// populates the work arrays.
func (inst *instance) initialiseWithLogicalBasis() {
	lp := inst.lp
	basis := inst.basis
	for row := 0; row < lp.NumRow; row++ {
		variable := lp.NumCol + row
		basis.NonbasicFlag[variable] = nonbasicFlagFalse
		basis.BasicIndex[row] = variable
	}
	for col := 0; col < lp.NumCol; col++ {
		basis.NonbasicFlag[col] = nonbasicFlagTrue
	}
	basis.Valid = true
	inst.numBasicLogicals = lp.NumRow

	inst.allocateWorkAndBaseArrays()
	inst.populateWorkArrays()
	inst.status.apply(actionNewBasis)
	inst.status.hasBasis = true
}

// populateWorkArrays fills costs, bounds and values in that order: the
// phase-2 bounds are needed before values can be placed on them.
func (inst *instance) populateWorkArrays() {
	inst.initialiseCost(true)
	inst.initialiseBound(2)
	inst.initialiseValue()
}

// initialiseCost copies the (sense-adjusted) costs and zeroes the shifts,
// then applies the random perturbation when enabled. The perturbation
// pushes each bounded column's cost away from its bound direction by a
// magnitude proportional to the cost itself, and dusts the logicals with
// a symmetric 1e-12 noise.
func (inst *instance) initialiseCost(perturb bool) {
	lp := inst.lp
	basis := inst.basis
	numTot := inst.numTot()
	for col := 0; col < lp.NumCol; col++ {
		basis.workCost[col] = float64(lp.Sense) * lp.ColCost[col]
		basis.workShift[col] = 0
	}
	for variable := lp.NumCol; variable < numTot; variable++ {
		basis.workCost[variable] = 0
		basis.workShift[variable] = 0
	}
	inst.costsPerturbed = false
	if !perturb || !inst.opts.PerturbCosts {
		return
	}
	inst.costsPerturbed = true

	bigc := 0.0
	for col := 0; col < lp.NumCol; col++ {
		bigc = math.Max(bigc, math.Abs(basis.workCost[col]))
	}
	if bigc > 100 {
		bigc = math.Sqrt(math.Sqrt(bigc))
	}

	boxedRate := 0.0
	for variable := 0; variable < numTot; variable++ {
		if basis.workRange[variable] < Inf {
			boxedRate++
		}
	}
	boxedRate /= float64(numTot)
	if boxedRate < 0.01 {
		bigc = math.Min(bigc, 1.0)
	}

	base := 5e-7 * bigc
	for col := 0; col < lp.NumCol; col++ {
		lower := lp.ColLower[col]
		upper := lp.ColUpper[col]
		xpert := (math.Abs(basis.workCost[col]) + 1) * base * (1 + inst.randomValue[col])
		switch {
		case lower <= -Inf && upper >= Inf:
			// Free, no perturbation.
		case upper >= Inf:
			basis.workCost[col] += xpert
		case lower <= -Inf:
			basis.workCost[col] -= xpert
		case lower != upper:
			if basis.workCost[col] >= 0 {
				basis.workCost[col] += xpert
			} else {
				basis.workCost[col] -= xpert
			}
		default:
			// Fixed, no perturbation.
		}
	}
	for variable := lp.NumCol; variable < numTot; variable++ {
		basis.workCost[variable] += (0.5 - inst.randomValue[variable]) * 1e-12
	}
}

func (inst *instance) initialisePhase2ColBound() {
	lp := inst.lp
	basis := inst.basis
	for col := 0; col < lp.NumCol; col++ {
		basis.workLower[col] = lp.ColLower[col]
		basis.workUpper[col] = lp.ColUpper[col]
		basis.workRange[col] = basis.workUpper[col] - basis.workLower[col]
	}
}

func (inst *instance) initialisePhase2RowBound() {
	lp := inst.lp
	basis := inst.basis
	for row := 0; row < lp.NumRow; row++ {
		variable := lp.NumCol + row
		basis.workLower[variable] = -lp.RowUpper[row]
		basis.workUpper[variable] = -lp.RowLower[row]
		basis.workRange[variable] = basis.workUpper[variable] - basis.workLower[variable]
	}
}

// initialiseBound installs the phase-2 bounds, then in phase 1 rewrites
// them to the shifted ranges that turn dual infeasibility into primal
// infeasibility: free (-1000,1000), upper-only (-1,0), lower-only (0,1),
// boxed or fixed (0,0).
func (inst *instance) initialiseBound(phase int) {
	inst.initialisePhase2ColBound()
	inst.initialisePhase2RowBound()
	if phase == 2 {
		return
	}
	basis := inst.basis
	numTot := inst.numTot()
	for variable := 0; variable < numTot; variable++ {
		lower := basis.workLower[variable]
		upper := basis.workUpper[variable]
		switch {
		case lower <= -Inf && upper >= Inf:
			// Row variables stay free: they should never become nonbasic.
			if variable >= inst.lp.NumCol {
				continue
			}
			basis.workLower[variable] = -1000
			basis.workUpper[variable] = 1000
		case lower <= -Inf:
			basis.workLower[variable] = -1
			basis.workUpper[variable] = 0
		case upper >= Inf:
			basis.workLower[variable] = 0
			basis.workUpper[variable] = 1
		default:
			basis.workLower[variable] = 0
			basis.workUpper[variable] = 0
		}
		basis.workRange[variable] = basis.workUpper[variable] - basis.workLower[variable]
	}
}

// initialiseValueFromNonbasic sets workValue and NonbasicMove for the
// variables in [firstVar, lastVar] from their flags and bounds. For boxed
// variables an existing up/down move decides which bound the value sits
// at; any other move is corrected to up at the lower bound.
func (inst *instance) initialiseValueFromNonbasic(firstVar, lastVar int) {
	basis := inst.basis
	for variable := firstVar; variable <= lastVar; variable++ {
		if basis.NonbasicFlag[variable] == nonbasicFlagFalse {
			basis.NonbasicMove[variable] = moveZero
			continue
		}
		lower := basis.workLower[variable]
		upper := basis.workUpper[variable]
		switch {
		case lower == upper:
			basis.workValue[variable] = lower
			basis.NonbasicMove[variable] = moveZero
		case lower > -Inf && upper < Inf:
			switch basis.NonbasicMove[variable] {
			case moveUp:
				basis.workValue[variable] = lower
			case moveDown:
				basis.workValue[variable] = upper
			default:
				basis.NonbasicMove[variable] = moveUp
				basis.workValue[variable] = lower
			}
		case lower > -Inf:
			basis.workValue[variable] = lower
			basis.NonbasicMove[variable] = moveUp
		case upper < Inf:
			basis.workValue[variable] = upper
			basis.NonbasicMove[variable] = moveDown
		default:
			basis.workValue[variable] = 0
			basis.NonbasicMove[variable] = moveZero
		}
	}
}

func (inst *instance) initialiseValue() {
	inst.initialiseValueFromNonbasic(0, inst.numTot()-1)
}

// flipBound swaps a boxed nonbasic variable to its other bound.
func (inst *instance) flipBound(variable int) {
	basis := inst.basis
	move := -basis.NonbasicMove[variable]
	basis.NonbasicMove[variable] = move
	if move == moveUp {
		basis.workValue[variable] = basis.workLower[variable]
	} else {
		basis.workValue[variable] = basis.workUpper[variable]
	}
}

// shiftCost records a cost shift for one variable. The shift slot must be
// clean: shifts are removed wholesale at phase boundaries.
func (inst *instance) shiftCost(variable int, amount float64) {
	inst.costsPerturbed = true
	inst.basis.workShift[variable] = amount
}

// shiftBack undoes the recorded shift of one variable.
func (inst *instance) shiftBack(variable int) {
	basis := inst.basis
	basis.workDual[variable] -= basis.workShift[variable]
	basis.workShift[variable] = 0
}

// setSourceOutFromBound picks the bound a leaving variable settles on
// when the pivot direction does not dictate one: the finite lower bound
// when it exists, the upper bound otherwise. A free variable leaving the
// basis has no bound to settle on; the driver picks +1 deterministically.
func (inst *instance) setSourceOutFromBound(columnOut int) int {
	basis := inst.basis
	sourceOut := 0
	if basis.workLower[columnOut] != basis.workUpper[columnOut] {
		if basis.workLower[columnOut] > -Inf {
			sourceOut = -1
		} else {
			sourceOut = 1
			if basis.workUpper[columnOut] >= Inf {
				inst.log.WithField("variable", columnOut).Debug("free variable leaving the basis")
			}
		}
	}
	return sourceOut
}
