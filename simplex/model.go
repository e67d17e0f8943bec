// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Basis partitions the numCol+numRow extended variables (structural
// columns followed by one logical per row) into numRow basic and the rest
// nonbasic. NonbasicMove records which bound a nonbasic variable sits at:
// +1 at lower, -1 at upper, 0 fixed, free or basic. The work and base
// arrays carry the per-variable bounds, values, costs, duals and shifts
// the iteration runs on; they are populated from the LP once per solve
// and mutated in place by pivots.
type Basis struct {
	NonbasicFlag []int8 // numTot
	NonbasicMove []int8 // numTot
	BasicIndex   []int  // numRow
	Valid        bool

	workCost  []float64
	workDual  []float64
	workShift []float64
	workLower []float64
	workUpper []float64
	workRange []float64
	workValue []float64

	baseLower []float64
	baseUpper []float64
	baseValue []float64
}

// instance owns all mutable state of one solve: the working LP and its
// scaling, the basis, the matrix copies, the factorization and the
// iteration bookkeeping. Everything is touched from a single goroutine.
type instance struct {
	lp     *LP
	scale  Scale
	status lpStatus
	basis  *Basis
	matrix Matrix
	factor Factor
	opts   Options
	log    logrus.FieldLogger

	// colPermutation maps working column i to the user column it came
	// from; nil when the permute pass did not run.
	colPermutation []int
	// randomValue holds one perturbation draw per extended variable.
	randomValue []float64

	// Iteration workspace, allocated once per solve and reused.
	vecRowEp Vector
	vecRowAp Vector
	vecColAq Vector
	vecFlip  Vector
	vecTau   Vector

	iterCount                 int
	updateCount               int
	costsPerturbed            bool
	dualObjectiveValue        float64
	updatedDualObjectiveValue float64
	numBasicLogicals          int
	dseWeight                 []float64

	solveStart time.Time
}

func (inst *instance) numTot() int {
	return inst.lp.NumCol + inst.lp.NumRow
}

// outOfTime reports whether the wall-clock limit has passed.
func (inst *instance) outOfTime() bool {
	limit := inst.opts.TimeLimit
	return limit > 0 && time.Since(inst.solveStart) >= limit
}

// initialiseRandomVectors draws the column permutation and the
// perturbation values, each from its own identically re-seeded stream.
func (inst *instance) initialiseRandomVectors() {
	numCol := inst.lp.NumCol
	numTot := inst.numTot()

	random := newRandomStream()
	perm := make([]int, numCol)
	for i := range perm {
		perm[i] = i
	}
	for i := numCol - 1; i >= 1; i-- {
		j := random.intN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	inst.colPermutation = perm

	random = newRandomStream()
	inst.randomValue = make([]float64, numTot)
	for i := range inst.randomValue {
		inst.randomValue[i] = random.fraction()
	}
}

// setupForSolve makes the matrix copies and factor arrays match the
// current basis, installing the all-logicals basis when none is valid.
// It reports false when a supplied basis does not partition the
// variables into exactly numRow basic ones.
func (inst *instance) setupForSolve() bool {
	lp := inst.lp
	if inst.basis.Valid {
		if !inst.initialiseFromNonbasic() {
			return false
		}
		inst.setupNumBasicLogicals()
	} else {
		inst.initialiseWithLogicalBasis()
	}

	if !(inst.status.hasColMatrix && inst.status.hasRowMatrix) {
		if inst.numBasicLogicals == lp.NumRow {
			inst.matrix.SetupLogical(lp.NumCol, lp.NumRow, lp.Astart, lp.Aindex, lp.Avalue)
		} else {
			inst.matrix.Setup(lp.NumCol, lp.NumRow, lp.Astart, lp.Aindex, lp.Avalue, inst.basis.NonbasicFlag)
		}
		inst.status.hasColMatrix = true
		inst.status.hasRowMatrix = true
	}

	inst.factor.Setup(lp.NumCol, lp.NumRow, lp.Astart, lp.Aindex, lp.Avalue, inst.basis.BasicIndex)
	inst.status.hasFactorArrays = true
	return true
}

// appendCols grows the working LP by n columns, extending the basis with
// them nonbasic. The basis matrix is untouched, so the factorization
// survives; the matrix copies, primal values and everything dual are
// invalidated.
func (inst *instance) appendCols(n int, cost, lower, upper []float64, Astart, Aindex []int, Avalue []float64) {
	inst.lp.AddCols(n, cost, lower, upper, Astart, Aindex, Avalue, inst.basis)
	inst.status.apply(actionNewCols)
}

// appendRows grows the working LP by n rows, extending the basis with
// their logicals basic. Every piece of derived state is invalidated.
func (inst *instance) appendRows(n int, lower, upper []float64, ARstart, ARindex []int, ARvalue []float64) {
	inst.lp.AddRows(n, lower, upper, ARstart, ARindex, ARvalue, inst.basis)
	inst.status.apply(actionNewRows)
}

// setupNumBasicLogicals counts the logicals in the current basis.
func (inst *instance) setupNumBasicLogicals() {
	inst.numBasicLogicals = 0
	for _, variable := range inst.basis.BasicIndex {
		if variable >= inst.lp.NumCol {
			inst.numBasicLogicals++
		}
	}
}
