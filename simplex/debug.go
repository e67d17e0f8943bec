// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

// The consistency checks below mirror the basis invariants: they are run
// by tests after every mutation of interest and are kept off the pivot
// hot path. A production solve that trips one returns StatusFailed with
// the basis preserved.

// debugBasisConsistent checks that exactly numRow variables are basic and
// that BasicIndex and NonbasicFlag agree.
func (inst *instance) debugBasisConsistent() bool {
	basis := inst.basis
	numBasic := 0
	for _, flag := range basis.NonbasicFlag {
		if flag == nonbasicFlagFalse {
			numBasic++
		}
	}
	if numBasic != inst.lp.NumRow {
		return false
	}
	for _, variable := range basis.BasicIndex {
		if basis.NonbasicFlag[variable] != nonbasicFlagFalse {
			return false
		}
	}
	return true
}

// debugWorkArraysOK checks the range identity everywhere and, in phase 2,
// that the working bounds still match the LP.
func (inst *instance) debugWorkArraysOK(phase int) bool {
	lp := inst.lp
	basis := inst.basis
	if phase == 2 {
		for col := 0; col < lp.NumCol; col++ {
			if basis.workLower[col] > -Inf && basis.workLower[col] != lp.ColLower[col] {
				return false
			}
			if basis.workUpper[col] < Inf && basis.workUpper[col] != lp.ColUpper[col] {
				return false
			}
		}
		for row := 0; row < lp.NumRow; row++ {
			variable := lp.NumCol + row
			if basis.workLower[variable] > -Inf && basis.workLower[variable] != -lp.RowUpper[row] {
				return false
			}
			if basis.workUpper[variable] < Inf && basis.workUpper[variable] != -lp.RowLower[row] {
				return false
			}
		}
	}
	for variable := 0; variable < inst.numTot(); variable++ {
		if basis.workRange[variable] != basis.workUpper[variable]-basis.workLower[variable] {
			return false
		}
	}
	return true
}

// debugNonbasicMoveOK checks every nonbasic (move, value) pair against
// the bounds table: fixed at the bound with no move, boxed at the bound
// its move names, one-sided at the finite bound, free at zero.
func (inst *instance) debugNonbasicMoveOK() bool {
	basis := inst.basis
	for variable := 0; variable < inst.numTot(); variable++ {
		if basis.NonbasicFlag[variable] != nonbasicFlagTrue {
			continue
		}
		lower := basis.workLower[variable]
		upper := basis.workUpper[variable]
		move := basis.NonbasicMove[variable]
		value := basis.workValue[variable]
		switch {
		case lower == upper:
			if move != moveZero || value != lower {
				return false
			}
		case lower > -Inf && upper < Inf:
			switch move {
			case moveUp:
				if value != lower {
					return false
				}
			case moveDown:
				if value != upper {
					return false
				}
			default:
				return false
			}
		case lower > -Inf:
			if move != moveUp || value != lower {
				return false
			}
		case upper < Inf:
			if move != moveDown || value != upper {
				return false
			}
		default:
			if move != moveZero || value != 0 {
				return false
			}
		}
	}
	return true
}
