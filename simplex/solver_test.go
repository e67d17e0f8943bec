// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// boxedLP is min -x - 2y subject to x + y ≤ 4, 0 ≤ x,y ≤ 3, with the
// optimum -7 at (1, 3).
func boxedLP() *LP {
	return &LP{
		NumCol: 2, NumRow: 1,
		Astart: []int{0, 1, 2}, Aindex: []int{0, 0}, Avalue: []float64{1, 1},
		ColCost: []float64{-1, -2}, ColLower: []float64{0, 0}, ColUpper: []float64{3, 3},
		RowLower: []float64{-Inf}, RowUpper: []float64{4},
		Sense: 1,
	}
}

func solveLP(t *testing.T, lp *LP, opts Options) *Result {
	t.Helper()
	solver, err := NewSolver(lp, opts)
	require.NoError(t, err)
	return solver.Solve()
}

func TestSolveBoxed(t *testing.T) {
	result := solveLP(t, boxedLP(), DefaultOptions())
	require.Equal(t, StatusOptimal, result.Status)
	require.InDelta(t, -7.0, result.Objective, 1e-6)
	require.InDelta(t, -7.0, result.DualObjective, 1e-5)
	require.InDelta(t, 1.0, result.ColValue[0], 1e-6)
	require.InDelta(t, 3.0, result.ColValue[1], 1e-6)
	require.InDelta(t, 4.0, result.RowValue[0], 1e-6)
	require.LessOrEqual(t, result.RowDual[0], 1e-6, "dual of a binding ≤ row is nonpositive for minimize")
	require.Greater(t, result.Iterations, 0)
}

func TestSolveEquality(t *testing.T) {
	// min x + 2y subject to x + y = 1, x,y ≥ 0: optimum 1 at (1, 0).
	lp := &LP{
		NumCol: 2, NumRow: 1,
		Astart: []int{0, 1, 2}, Aindex: []int{0, 0}, Avalue: []float64{1, 1},
		ColCost: []float64{1, 2}, ColLower: []float64{0, 0}, ColUpper: []float64{Inf, Inf},
		RowLower: []float64{1}, RowUpper: []float64{1},
		Sense: 1,
	}
	result := solveLP(t, lp, DefaultOptions())
	require.Equal(t, StatusOptimal, result.Status)
	require.InDelta(t, 1.0, result.Objective, 1e-6)
	require.InDelta(t, 1.0, result.ColValue[0], 1e-6)
	require.InDelta(t, 0.0, result.ColValue[1], 1e-6)
}

func TestSolveMaximizeWithOffset(t *testing.T) {
	// max 3x + 2y + 5 subject to x + y ≤ 4, 0 ≤ x,y ≤ 3: optimum 16 at
	// (3, 1).
	lp := &LP{
		NumCol: 2, NumRow: 1,
		Astart: []int{0, 1, 2}, Aindex: []int{0, 0}, Avalue: []float64{1, 1},
		ColCost: []float64{3, 2}, ColLower: []float64{0, 0}, ColUpper: []float64{3, 3},
		RowLower: []float64{-Inf}, RowUpper: []float64{4},
		Sense: -1, Offset: 5,
	}
	result := solveLP(t, lp, DefaultOptions())
	require.Equal(t, StatusOptimal, result.Status)
	require.InDelta(t, 16.0, result.Objective, 1e-6)
	require.InDelta(t, 3.0, result.ColValue[0], 1e-6)
	require.InDelta(t, 1.0, result.ColValue[1], 1e-6)
}

func TestSolveInfeasible(t *testing.T) {
	// x ∈ [0, 1] cannot reach the row x ≥ 2.
	lp := &LP{
		NumCol: 1, NumRow: 1,
		Astart: []int{0, 1}, Aindex: []int{0}, Avalue: []float64{1},
		ColCost: []float64{1}, ColLower: []float64{0}, ColUpper: []float64{1},
		RowLower: []float64{2}, RowUpper: []float64{Inf},
		Sense: 1,
	}
	result := solveLP(t, lp, DefaultOptions())
	require.Equal(t, StatusInfeasible, result.Status)
}

func TestSolveUnbounded(t *testing.T) {
	// min -x subject to x - y ≤ 1 with x, y ≥ 0: the ray (1+t, t) drives
	// the objective down forever.
	lp := &LP{
		NumCol: 2, NumRow: 1,
		Astart: []int{0, 1, 2}, Aindex: []int{0, 0}, Avalue: []float64{1, -1},
		ColCost: []float64{-1, 0}, ColLower: []float64{0, 0}, ColUpper: []float64{Inf, Inf},
		RowLower: []float64{-Inf}, RowUpper: []float64{1},
		Sense: 1,
	}
	result := solveLP(t, lp, DefaultOptions())
	require.Equal(t, StatusUnbounded, result.Status)
}

func TestSolveEmptyRowSet(t *testing.T) {
	lp := &LP{
		NumCol: 2, NumRow: 0,
		Astart:  []int{0, 0, 0},
		ColCost: []float64{0, 0}, ColLower: []float64{1, -Inf}, ColUpper: []float64{5, 2},
		RowLower: []float64{}, RowUpper: []float64{},
		Sense: 1, Offset: 2.5,
	}
	result := solveLP(t, lp, DefaultOptions())
	require.Equal(t, StatusOptimal, result.Status)
	require.Equal(t, 0, result.Iterations)
	require.InDelta(t, 2.5, result.Objective, 0)
	require.InDelta(t, 1.0, result.ColValue[0], 0)
	require.InDelta(t, 2.0, result.ColValue[1], 0)
}

func TestFixedVariableNeverMoves(t *testing.T) {
	// The fixed column must sit at its bound with no move, whatever the
	// costs want.
	lp := &LP{
		NumCol: 2, NumRow: 1,
		Astart: []int{0, 1, 2}, Aindex: []int{0, 0}, Avalue: []float64{1, 1},
		ColCost: []float64{-10, 1}, ColLower: []float64{2, 0}, ColUpper: []float64{2, Inf},
		RowLower: []float64{2}, RowUpper: []float64{6},
		Sense: 1,
	}
	result := solveLP(t, lp, DefaultOptions())
	require.Equal(t, StatusOptimal, result.Status)
	require.InDelta(t, 2.0, result.ColValue[0], 1e-9)
	require.Equal(t, nonbasicFlagTrue, result.Basis.NonbasicFlag[0])
	require.Equal(t, moveZero, result.Basis.NonbasicMove[0])
	require.InDelta(t, -20+0.0, result.Objective, 1e-6)
}

func TestWarmStart(t *testing.T) {
	solver, err := NewSolver(boxedLP(), DefaultOptions())
	require.NoError(t, err)
	cold := solver.Solve()
	require.Equal(t, StatusOptimal, cold.Status)

	warm := solver.SolveFromBasis(cold.Basis)
	require.Equal(t, StatusOptimal, warm.Status)
	require.InDelta(t, cold.Objective, warm.Objective, 1e-6)
	require.LessOrEqual(t, warm.Iterations, cold.Iterations)
}

func TestRankDeficientStartBasisIsRepaired(t *testing.T) {
	// Two identical columns supplied as the starting basis: the factor
	// reports the deficiency and the driver swaps in a logical.
	lp := &LP{
		NumCol: 2, NumRow: 2,
		Astart: []int{0, 2, 4}, Aindex: []int{0, 1, 0, 1}, Avalue: []float64{1, 1, 1, 1},
		ColCost: []float64{1, 1}, ColLower: []float64{0, 0}, ColUpper: []float64{5, 5},
		RowLower: []float64{-Inf, -Inf}, RowUpper: []float64{4, 6},
		Sense: 1,
	}
	start := newBasis(2, 2)
	start.NonbasicFlag = []int8{0, 0, 1, 1}
	start.Valid = true
	solver, err := NewSolver(lp, DefaultOptions())
	require.NoError(t, err)
	result := solver.SolveFromBasis(start)
	require.Equal(t, StatusOptimal, result.Status)
	require.InDelta(t, 0.0, result.Objective, 1e-6)
}

func TestIterationLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.IterationLimit = 0
	result := solveLP(t, boxedLP(), opts)
	require.Equal(t, StatusReachedIterationLimit, result.Status)
}

func TestTimeLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.TimeLimit = time.Nanosecond
	result := solveLP(t, boxedLP(), opts)
	require.Equal(t, StatusOutOfTime, result.Status)
}

func TestDualObjectiveBound(t *testing.T) {
	opts := DefaultOptions()
	opts.DualObjectiveValueUpperBound = -100
	result := solveLP(t, boxedLP(), opts)
	require.Equal(t, StatusReachedDualObjectiveBound, result.Status)
}

func TestOptionVariantsAgree(t *testing.T) {
	variants := map[string]func(*Options){
		"dantzig":     func(o *Options) { o.EdgeWeight = EdgeWeightDantzig },
		"priceByCol":  func(o *Options) { o.Price = PriceCol },
		"noScale":     func(o *Options) { o.ScaleLP = false },
		"noPerturb":   func(o *Options) { o.PerturbCosts = false },
		"withPermute": func(o *Options) { o.PermuteLP = true },
		"withTighten": func(o *Options) { o.TightenLP = true },
	}
	for name, tweak := range variants {
		opts := DefaultOptions()
		tweak(&opts)
		result := solveLP(t, boxedLP(), opts)
		require.Equal(t, StatusOptimal, result.Status, name)
		require.InDelta(t, -7.0, result.Objective, 1e-5, name)
		require.InDelta(t, 1.0, result.ColValue[0], 1e-5, name)
		require.InDelta(t, 3.0, result.ColValue[1], 1e-5, name)
	}
}

func TestBasisInvariantsOnResult(t *testing.T) {
	result := solveLP(t, boxedLP(), DefaultOptions())
	basis := result.Basis
	numBasic := 0
	for _, flag := range basis.NonbasicFlag {
		if flag == nonbasicFlagFalse {
			numBasic++
		}
	}
	require.Equal(t, 1, numBasic)
	for _, variable := range basis.BasicIndex {
		require.Equal(t, nonbasicFlagFalse, basis.NonbasicFlag[variable])
	}
}

// TestRandomBoxedKKT cross-checks random feasible boxed LPs with the
// optimality conditions: primal feasibility, dual sign conditions and
// consistency of the returned duals.
func TestRandomBoxedKKT(t *testing.T) {
	const tol = 1e-5
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		numRow, numCol := 8, 12
		var Astart, Aindex []int
		var Avalue []float64
		Astart = append(Astart, 0)
		for j := 0; j < numCol; j++ {
			for i := 0; i < numRow; i++ {
				if rng.Float64() < 0.5 {
					Aindex = append(Aindex, i)
					Avalue = append(Avalue, 4*rng.Float64()-2)
				}
			}
			Astart = append(Astart, len(Aindex))
		}
		lp := &LP{
			NumCol: numCol, NumRow: numRow,
			Astart: Astart, Aindex: Aindex, Avalue: Avalue,
			ColCost:  make([]float64, numCol),
			ColLower: make([]float64, numCol),
			ColUpper: make([]float64, numCol),
			RowLower: make([]float64, numRow),
			RowUpper: make([]float64, numRow),
			Sense:    1,
		}
		for j := 0; j < numCol; j++ {
			lp.ColCost[j] = 10*rng.Float64() - 5
			lp.ColUpper[j] = 10
		}
		for i := 0; i < numRow; i++ {
			lp.RowLower[i] = -30
			lp.RowUpper[i] = 30
		}

		result := solveLP(t, lp, DefaultOptions())
		require.Equal(t, StatusOptimal, result.Status, "trial %d", trial)

		x := result.ColValue
		activity := make([]float64, numRow)
		for j := 0; j < numCol; j++ {
			for k := Astart[j]; k < Astart[j+1]; k++ {
				activity[Aindex[k]] += Avalue[k] * x[j]
			}
		}
		for i := 0; i < numRow; i++ {
			require.InDelta(t, activity[i], result.RowValue[i], tol, "trial %d row %d activity", trial, i)
			require.GreaterOrEqual(t, activity[i], lp.RowLower[i]-tol, "trial %d row %d", trial, i)
			require.LessOrEqual(t, activity[i], lp.RowUpper[i]+tol, "trial %d row %d", trial, i)
			y := result.RowDual[i]
			switch {
			case activity[i] > lp.RowLower[i]+tol && activity[i] < lp.RowUpper[i]-tol:
				require.InDelta(t, 0.0, y, tol, "trial %d row %d slack dual", trial, i)
			case activity[i] <= lp.RowLower[i]+tol && activity[i] >= lp.RowUpper[i]-tol:
				// Both bounds active within tolerance: any sign goes.
			case activity[i] <= lp.RowLower[i]+tol:
				require.GreaterOrEqual(t, y, -tol, "trial %d row %d lower dual", trial, i)
			default:
				require.LessOrEqual(t, y, tol, "trial %d row %d upper dual", trial, i)
			}
		}
		for j := 0; j < numCol; j++ {
			require.GreaterOrEqual(t, x[j], lp.ColLower[j]-tol, "trial %d col %d", trial, j)
			require.LessOrEqual(t, x[j], lp.ColUpper[j]+tol, "trial %d col %d", trial, j)
			// d = c - Aᵀy must match the returned reduced cost.
			d := lp.ColCost[j]
			for k := Astart[j]; k < Astart[j+1]; k++ {
				d -= Avalue[k] * result.RowDual[Aindex[k]]
			}
			require.InDelta(t, d, result.ColDual[j], 1e-4, "trial %d col %d reduced cost", trial, j)
			switch {
			case x[j] > lp.ColLower[j]+tol && x[j] < lp.ColUpper[j]-tol:
				require.InDelta(t, 0.0, d, 1e-4, "trial %d col %d interior dual", trial, j)
			case x[j] <= lp.ColLower[j]+tol:
				require.GreaterOrEqual(t, d, -1e-4, "trial %d col %d at lower", trial, j)
			default:
				require.LessOrEqual(t, d, 1e-4, "trial %d col %d at upper", trial, j)
			}
		}
		want := lp.Offset
		for j := 0; j < numCol; j++ {
			want += lp.ColCost[j] * x[j]
		}
		require.InDelta(t, want, result.Objective, 1e-6, "trial %d objective", trial)
		require.False(t, math.IsNaN(result.DualObjective))
	}
}

// bruteForceOptimum enumerates the vertices of a small LP with all-finite
// bounds: every choice of numCol active constraints among the variable
// and row bounds, with every lower/upper side combination, solved densely
// and kept when feasible. The best objective over the vertices is the
// optimum of a bounded feasible LP.
func bruteForceOptimum(t *testing.T, lp *LP) float64 {
	t.Helper()
	n, m := lp.NumCol, lp.NumRow
	dense := mat.NewDense(m, n, nil)
	for j := 0; j < n; j++ {
		for k := lp.Astart[j]; k < lp.Astart[j+1]; k++ {
			dense.Set(lp.Aindex[k], j, lp.Avalue[k])
		}
	}

	best := math.Inf(1)
	combo := make([]int, n)
	evaluate := func() {
		for mask := 0; mask < 1<<n; mask++ {
			system := mat.NewDense(n, n, nil)
			rhs := make([]float64, n)
			for d, g := range combo {
				upper := mask&(1<<d) != 0
				if g < n {
					system.Set(d, g, 1)
					if upper {
						rhs[d] = lp.ColUpper[g]
					} else {
						rhs[d] = lp.ColLower[g]
					}
				} else {
					i := g - n
					for j := 0; j < n; j++ {
						system.Set(d, j, dense.At(i, j))
					}
					if upper {
						rhs[d] = lp.RowUpper[i]
					} else {
						rhs[d] = lp.RowLower[i]
					}
				}
			}
			var x mat.VecDense
			if err := x.SolveVec(system, mat.NewVecDense(n, rhs)); err != nil {
				continue
			}
			feasible := true
			for j := 0; j < n && feasible; j++ {
				v := x.AtVec(j)
				feasible = v >= lp.ColLower[j]-1e-7 && v <= lp.ColUpper[j]+1e-7
			}
			for i := 0; i < m && feasible; i++ {
				act := 0.0
				for j := 0; j < n; j++ {
					act += dense.At(i, j) * x.AtVec(j)
				}
				feasible = act >= lp.RowLower[i]-1e-7 && act <= lp.RowUpper[i]+1e-7
			}
			if !feasible {
				continue
			}
			obj := lp.Offset
			for j := 0; j < n; j++ {
				obj += lp.ColCost[j] * x.AtVec(j)
			}
			best = math.Min(best, obj)
		}
	}
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == n {
			evaluate()
			return
		}
		for g := start; g < n+m; g++ {
			combo[depth] = g
			walk(g+1, depth+1)
		}
	}
	walk(0, 0)
	require.False(t, math.IsInf(best, 1), "oracle found no feasible vertex")
	return best
}

// TestRandomBoxedVertexOracle cross-checks the solver against the
// brute-force vertex enumeration on random feasible boxed LPs.
func TestRandomBoxedVertexOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 10; trial++ {
		numRow, numCol := 3, 4
		var Astart, Aindex []int
		var Avalue []float64
		Astart = append(Astart, 0)
		for j := 0; j < numCol; j++ {
			for i := 0; i < numRow; i++ {
				if rng.Float64() < 0.7 {
					Aindex = append(Aindex, i)
					Avalue = append(Avalue, 4*rng.Float64()-2)
				}
			}
			Astart = append(Astart, len(Aindex))
		}
		lp := &LP{
			NumCol: numCol, NumRow: numRow,
			Astart: Astart, Aindex: Aindex, Avalue: Avalue,
			ColCost:  make([]float64, numCol),
			ColLower: make([]float64, numCol),
			ColUpper: make([]float64, numCol),
			RowLower: make([]float64, numRow),
			RowUpper: make([]float64, numRow),
			Sense:    1,
		}
		for j := 0; j < numCol; j++ {
			lp.ColCost[j] = 10*rng.Float64() - 5
			lp.ColUpper[j] = 6
		}
		for i := 0; i < numRow; i++ {
			lp.RowLower[i] = -12
			lp.RowUpper[i] = 12
		}

		result := solveLP(t, lp, DefaultOptions())
		require.Equal(t, StatusOptimal, result.Status, "trial %d", trial)
		want := bruteForceOptimum(t, lp)
		require.InDelta(t, want, result.Objective, 1e-5, "trial %d", trial)
	}
}

func TestAnalyseSolution(t *testing.T) {
	inst := testInstance(boxedLP())
	inst.basis = newBasis(inst.lp.NumCol, inst.lp.NumRow)
	require.True(t, inst.setupForSolve())
	inst.allocateIterationWorkspace()
	require.Equal(t, StatusOptimal, inst.runDual())

	analysis := inst.analyseSolution()
	require.Zero(t, analysis.numPrimalInfeasibilities)
	require.Zero(t, analysis.numDualInfeasibilities)
	require.InDelta(t, 0.0, analysis.maxPrimalInfeasibility, 0)
	require.InDelta(t, 0.0, analysis.maxDualInfeasibility, 0)
	require.Less(t, analysis.maxRowResidual, 1e-7)
}
