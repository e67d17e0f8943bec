// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import "math"

// solutionAnalysis summarises the quality of the current basis point:
// counts, maxima and sums of primal and dual infeasibilities over the
// extended variables, and the largest row residual of the scattered
// solution.
type solutionAnalysis struct {
	numPrimalInfeasibilities int
	maxPrimalInfeasibility   float64
	sumPrimalInfeasibilities float64

	numDualInfeasibilities int
	maxDualInfeasibility   float64
	sumDualInfeasibilities float64

	maxRowResidual float64
}

// analyseSolution scatters the working solution and measures it against
// the working bounds, the dual sign conditions and the row equations.
// The summary lands on the logger as structured fields; hot paths never
// call this.
func (inst *instance) analyseSolution() solutionAnalysis {
	lp := inst.lp
	basis := inst.basis
	numTot := inst.numTot()
	tauP := inst.opts.PrimalFeasibilityTolerance
	tauD := inst.opts.DualFeasibilityTolerance

	value := make([]float64, numTot)
	for variable := 0; variable < numTot; variable++ {
		value[variable] = basis.workValue[variable]
	}
	for row := 0; row < lp.NumRow; row++ {
		value[basis.BasicIndex[row]] = basis.baseValue[row]
	}

	var a solutionAnalysis
	for variable := 0; variable < numTot; variable++ {
		infeas := 0.0
		if value[variable] < basis.workLower[variable]-tauP {
			infeas = basis.workLower[variable] - value[variable]
		} else if value[variable] > basis.workUpper[variable]+tauP {
			infeas = value[variable] - basis.workUpper[variable]
		}
		if infeas > 0 {
			a.numPrimalInfeasibilities++
			a.sumPrimalInfeasibilities += infeas
			a.maxPrimalInfeasibility = math.Max(a.maxPrimalInfeasibility, infeas)
		}
	}

	for variable := 0; variable < numTot; variable++ {
		if basis.NonbasicFlag[variable] != nonbasicFlagTrue {
			continue
		}
		dual := basis.workDual[variable]
		infeas := 0.0
		if basis.workLower[variable] <= -Inf && basis.workUpper[variable] >= Inf {
			infeas = math.Abs(dual)
		} else if float64(basis.NonbasicMove[variable])*dual < 0 {
			infeas = math.Abs(dual)
		}
		if infeas >= tauD {
			a.numDualInfeasibilities++
			a.sumDualInfeasibilities += infeas
			a.maxDualInfeasibility = math.Max(a.maxDualInfeasibility, infeas)
		}
	}

	// Each logical carries the negated activity of its row, so the
	// residual of row i is |Σ a_ij·x_j + z_i|.
	activity := make([]float64, lp.NumRow)
	for j := 0; j < lp.NumCol; j++ {
		if value[j] == 0 {
			continue
		}
		for k := lp.Astart[j]; k < lp.Astart[j+1]; k++ {
			activity[lp.Aindex[k]] += lp.Avalue[k] * value[j]
		}
	}
	for row := 0; row < lp.NumRow; row++ {
		residual := math.Abs(activity[row] + value[lp.NumCol+row])
		a.maxRowResidual = math.Max(a.maxRowResidual, residual)
	}

	inst.log.WithFields(map[string]interface{}{
		"numPrimalInfeas": a.numPrimalInfeasibilities,
		"maxPrimalInfeas": a.maxPrimalInfeasibility,
		"sumPrimalInfeas": a.sumPrimalInfeasibilities,
		"numDualInfeas":   a.numDualInfeasibilities,
		"maxDualInfeas":   a.maxDualInfeasibility,
		"sumDualInfeas":   a.sumDualInfeasibilities,
		"maxRowResidual":  a.maxRowResidual,
	}).Info("solution analysis")
	return a
}
