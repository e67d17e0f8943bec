// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// phase1ObjectiveTol is how far from zero the phase-1 objective may sit
// while still counting as dual feasible.
const phase1ObjectiveTol = 1e-6

// Result is the outcome of a solve. Solution vectors are reported in the
// user's variable space: unscaled and with any column permutation undone.
// When the transpose pass replaced the LP by its dual the vectors live in
// the transposed space instead and Transposed is set.
type Result struct {
	Status     Status
	Iterations int

	// Objective is cᵀx + offset at the final point, in the user's
	// optimization sense. DualObjective is its dual counterpart; the two
	// agree at optimality.
	Objective     float64
	DualObjective float64

	ColValue []float64
	ColDual  []float64
	RowValue []float64
	RowDual  []float64

	// Basis is the final basis in the working variable order, usable to
	// warm-start a later solve of the same LP.
	Basis      *Basis
	Transposed bool
}

// Solver runs the revised dual simplex method on one LP.
type Solver struct {
	lp   *LP
	opts Options
}

// NewSolver validates the LP and captures the options.
func NewSolver(lp *LP, opts Options) (*Solver, error) {
	if lp == nil {
		return nil, errors.New("nil LP")
	}
	if lp.Sense == 0 {
		lp.Sense = 1
	}
	if err := lp.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid LP")
	}
	if opts.Strategy != StrategyDual {
		return nil, errors.Errorf("unsupported simplex strategy %d", opts.Strategy)
	}
	return &Solver{lp: lp, opts: opts}, nil
}

// Solve runs from scratch.
func (s *Solver) Solve() *Result {
	return s.SolveFromBasis(nil)
}

// SolveFromBasis warm-starts from a caller-supplied basis; the basis is
// ignored when invalid or when a preparation pass reshapes the LP.
func (s *Solver) SolveFromBasis(start *Basis) *Result {
	inst := &instance{
		lp:   s.lp.clone(),
		opts: s.opts,
		log:  s.opts.logger(),
	}
	inst.scale.Cost = 1
	inst.solveStart = time.Now()

	if s.lp.NumRow == 0 {
		return inst.trivialResult(s.lp)
	}

	// Preparation pipeline, fixed order. The transpose reshapes the LP,
	// so the random vectors are drawn after it and a supplied basis only
	// survives when the variable order is untouched.
	if inst.opts.TransposeLP && inst.lp.Sense == 1 {
		inst.transposeLP()
	}
	inst.initialiseRandomVectors()
	if inst.opts.ScaleLP {
		inst.scaleLP()
	}
	if inst.opts.PermuteLP {
		inst.permuteLP()
	}
	if inst.opts.TightenLP {
		inst.tightenLP()
	}
	inst.status.valid = true

	inst.basis = newBasis(inst.lp.NumCol, inst.lp.NumRow)
	if start != nil && start.Valid && !inst.status.transposed && !inst.status.permuted &&
		len(start.NonbasicFlag) == inst.numTot() {
		copy(inst.basis.NonbasicFlag, start.NonbasicFlag)
		if len(start.NonbasicMove) == inst.numTot() {
			copy(inst.basis.NonbasicMove, start.NonbasicMove)
		}
		inst.basis.Valid = true
	}

	if !inst.setupForSolve() {
		return inst.buildResult(StatusFailed, s.lp)
	}

	inst.allocateIterationWorkspace()
	status := inst.runDual()
	if !inst.debugBasisConsistent() || !inst.debugWorkArraysOK(1) || !inst.debugNonbasicMoveOK() {
		// A broken basis invariant fails the solve; the basis is kept.
		status = StatusFailed
	}
	inst.log.WithFields(map[string]interface{}{
		"status":     status.String(),
		"iterations": inst.iterCount,
	}).Info("solve finished")
	if status == StatusOptimal {
		inst.analyseSolution()
	}
	return inst.buildResult(status, s.lp)
}

func (inst *instance) allocateIterationWorkspace() {
	numRow := inst.lp.NumRow
	numCol := inst.lp.NumCol
	inst.vecRowEp.Setup(numRow)
	inst.vecRowAp.Setup(numCol)
	inst.vecColAq.Setup(numRow)
	inst.vecFlip.Setup(numRow)
	inst.vecTau.Setup(numRow)
}

// runDual is the two-phase driver: phase 1 clears dual infeasibility on
// shifted bounds, phase 2 runs on the true bounds.
func (inst *instance) runDual() Status {
	// The phase decision looks at the raw duals, before any correction
	// can shift a genuine dual infeasibility out of sight.
	if rd := inst.computeFactor(); rd > 0 {
		return StatusSingular
	}
	inst.computeDual()
	if inst.outOfTime() {
		return StatusOutOfTime
	}
	phase := 2
	if inst.computeDualInfeasibleInDual() > 0 {
		phase = 1
	}

	cleanups := 0
	switches := 0
	for {
		var status Status
		var next int
		if phase == 1 {
			status, next = inst.solvePhase1()
		} else {
			status, next = inst.solvePhase2(&cleanups)
		}
		if next == 0 {
			return status
		}
		switches++
		if switches > 20 {
			return StatusFailed
		}
		phase = next
	}
}

// solvePhase1 drives the dual iteration on the phase-1 bounds. It
// returns the next phase (2 when dual feasibility is reached) or a
// terminal status.
func (inst *instance) solvePhase1() (Status, int) {
	inst.initialiseBound(1)
	inst.initialiseValue()
	inst.status.apply(actionNewBounds)

	for {
		if !inst.rebuildDual(1) {
			return StatusSingular, 0
		}
		if inst.outOfTime() {
			return StatusOutOfTime, 0
		}
	iteration:
		for {
			if inst.iterCount >= inst.opts.IterationLimit {
				return StatusReachedIterationLimit, 0
			}
			switch inst.dualIterate(1) {
			case iterPivoted:
				if inst.outOfTime() {
					return StatusOutOfTime, 0
				}
			case iterOptimal:
				if !inst.status.hasFreshRebuild {
					break iteration
				}
				// The phase-1 objective measures the remaining dual
				// infeasibility: zero means a dual feasible point exists.
				inst.computeDualObjectiveValue(1)
				if math.Abs(inst.dualObjectiveValue) <= phase1ObjectiveTol {
					return StatusOptimal, 2
				}
				if inst.costsPerturbed {
					// Retry on the true costs before concluding.
					inst.initialiseCost(false)
					inst.status.apply(actionNewCosts)
					inst.computeDual()
					break iteration
				}
				// The dual remains infeasible at a phase-1 optimum: the
				// primal has no finite optimum.
				return StatusUnbounded, 0
			case iterRatioFail:
				if !inst.status.hasFreshRebuild {
					break iteration
				}
				return StatusUnbounded, 0
			case iterRebuild:
				break iteration
			case iterSingular:
				return StatusSingular, 0
			}
		}
	}
}

// phase2Cleanups caps how often perturbed costs are restored and the
// phase re-entered before the solve settles for the perturbed optimum.
const phase2Cleanups = 3

// solvePhase2 drives the dual iteration on the true bounds. It returns a
// terminal status, or phase 1 when a rebuild uncovers dual infeasibility
// the iteration cannot remove.
func (inst *instance) solvePhase2(cleanups *int) (Status, int) {
	inst.initialiseBound(2)
	inst.initialiseValue()
	inst.status.apply(actionNewBounds)

	for {
		if !inst.rebuildDual(2) {
			return StatusSingular, 0
		}
		if inst.outOfTime() {
			return StatusOutOfTime, 0
		}
		if inst.computeDualInfeasibleInDual() > 0 {
			return StatusOptimal, 1
		}
	iteration:
		for {
			if inst.iterCount >= inst.opts.IterationLimit {
				return StatusReachedIterationLimit, 0
			}
			if inst.dualObjectiveValue+inst.scale.Cost*inst.updatedDualObjectiveValue >
				inst.opts.DualObjectiveValueUpperBound {
				return StatusReachedDualObjectiveBound, 0
			}
			switch inst.dualIterate(2) {
			case iterPivoted:
				if inst.outOfTime() {
					return StatusOutOfTime, 0
				}
			case iterOptimal:
				if !inst.status.hasFreshRebuild {
					break iteration
				}
				if inst.costsPerturbed && *cleanups < phase2Cleanups {
					// Restore the true costs and re-verify optimality.
					*cleanups++
					inst.initialiseCost(false)
					inst.status.apply(actionNewCosts)
					inst.computeDual()
					var freeInfeasCount int
					inst.correctDual(&freeInfeasCount)
					inst.computePrimal()
					if inst.chooseRow() < 0 && inst.computeDualInfeasibleInPrimal() == 0 {
						inst.computeDualObjectiveValue(2)
						return StatusOptimal, 0
					}
					break iteration
				}
				inst.computeDualObjectiveValue(2)
				return StatusOptimal, 0
			case iterRatioFail:
				if !inst.status.hasFreshRebuild {
					break iteration
				}
				// Dual unbounded on true bounds: no primal feasible point.
				return StatusInfeasible, 0
			case iterRebuild:
				break iteration
			case iterSingular:
				return StatusSingular, 0
			}
		}
	}
}

// trivialResult handles an LP with no rows: every variable sits on a
// bound and the solve is over before it starts.
func (inst *instance) trivialResult(userLP *LP) *Result {
	numCol := userLP.NumCol
	result := &Result{
		Status:     StatusOptimal,
		Iterations: 0,
		ColValue:   make([]float64, numCol),
		ColDual:    make([]float64, numCol),
		RowValue:   []float64{},
		RowDual:    []float64{},
		Objective:  userLP.Offset,
	}
	for j := 0; j < numCol; j++ {
		lower, upper := userLP.ColLower[j], userLP.ColUpper[j]
		switch {
		case lower > -Inf:
			result.ColValue[j] = lower
		case upper < Inf:
			result.ColValue[j] = upper
		}
		result.ColDual[j] = userLP.ColCost[j]
		result.Objective += userLP.ColCost[j] * result.ColValue[j]
	}
	result.DualObjective = result.Objective
	return result
}

// buildResult unscales and unpermutes the working solution back into the
// user's variable space.
func (inst *instance) buildResult(status Status, userLP *LP) *Result {
	lp := inst.lp
	basis := inst.basis
	numCol := lp.NumCol
	numRow := lp.NumRow

	result := &Result{
		Status:     status,
		Iterations: inst.iterCount,
		ColValue:   make([]float64, numCol),
		ColDual:    make([]float64, numCol),
		RowValue:   make([]float64, numRow),
		RowDual:    make([]float64, numRow),
		Basis:      basis,
		Transposed: inst.status.transposed,
	}
	if basis == nil || basis.workValue == nil {
		return result
	}

	colScale := func(j int) float64 {
		if inst.scale.Col == nil {
			return 1
		}
		return inst.scale.Col[j]
	}
	rowScale := func(i int) float64 {
		if inst.scale.Row == nil {
			return 1
		}
		return inst.scale.Row[i]
	}
	sense := float64(lp.Sense)
	costScale := inst.scale.Cost

	// Scatter the working solution: nonbasic values and duals from the
	// work arrays, basic values from the base array.
	value := make([]float64, inst.numTot())
	dual := make([]float64, inst.numTot())
	for variable := 0; variable < inst.numTot(); variable++ {
		value[variable] = basis.workValue[variable]
		dual[variable] = basis.workDual[variable]
	}
	for row := 0; row < numRow; row++ {
		value[basis.BasicIndex[row]] = basis.baseValue[row]
		dual[basis.BasicIndex[row]] = 0
	}

	colValue := make([]float64, numCol)
	colDual := make([]float64, numCol)
	for j := 0; j < numCol; j++ {
		colValue[j] = value[j] * colScale(j)
		colDual[j] = sense * costScale * dual[j] / colScale(j)
	}
	for i := 0; i < numRow; i++ {
		// The logical carries the negated row activity.
		result.RowValue[i] = -value[numCol+i] / rowScale(i)
		result.RowDual[i] = -sense * costScale * dual[numCol+i] * rowScale(i)
	}

	if inst.status.permuted && inst.colPermutation != nil {
		for j := 0; j < numCol; j++ {
			result.ColValue[inst.colPermutation[j]] = colValue[j]
			result.ColDual[inst.colPermutation[j]] = colDual[j]
		}
	} else {
		copy(result.ColValue, colValue)
		copy(result.ColDual, colDual)
	}

	if inst.status.transposed {
		// The solve ran on the dual LP: its optimum is the negated user
		// optimum and the vectors live in the transposed space.
		work := inst.computePrimalObjectiveValue()
		result.Objective = -work + userLP.Offset
		result.DualObjective = result.Objective
		return result
	}

	objective := userLP.Offset
	for j := 0; j < userLP.NumCol; j++ {
		objective += userLP.ColCost[j] * result.ColValue[j]
	}
	result.Objective = objective
	if inst.status.hasDualObjective {
		result.DualObjective = sense * inst.dualObjectiveValue
	} else {
		result.DualObjective = objective
	}
	return result
}
