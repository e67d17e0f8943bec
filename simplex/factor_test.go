// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// denseBasis assembles the basis matrix the factorization should
// represent: structural columns from the CSC arrays, logicals as unit
// vectors.
func denseBasis(numCol, numRow int, Astart, Aindex []int, Avalue []float64, basicIndex []int) *mat.Dense {
	b := mat.NewDense(numRow, numRow, nil)
	for pos, variable := range basicIndex {
		if variable < numCol {
			for k := Astart[variable]; k < Astart[variable+1]; k++ {
				b.Set(Aindex[k], pos, Avalue[k])
			}
		} else {
			b.Set(variable-numCol, pos, 1)
		}
	}
	return b
}

func requireFtranMatches(t *testing.T, f *Factor, b *mat.Dense, rhs []float64) {
	t.Helper()
	numRow := len(rhs)
	v := Vector{}
	v.Setup(numRow)
	for i, x := range rhs {
		v.Array[i] = x
	}
	v.Count = -1
	f.Ftran(&v, 1)

	var want mat.VecDense
	require.NoError(t, want.SolveVec(b, mat.NewVecDense(numRow, rhs)))
	for i := 0; i < numRow; i++ {
		require.InDelta(t, want.AtVec(i), v.Array[i], 1e-8, "ftran position %d", i)
	}
}

func requireBtranMatches(t *testing.T, f *Factor, b *mat.Dense, rhs []float64) {
	t.Helper()
	numRow := len(rhs)
	v := Vector{}
	v.Setup(numRow)
	for i, x := range rhs {
		v.Array[i] = x
	}
	v.Count = -1
	f.Btran(&v, 1)

	var want mat.VecDense
	require.NoError(t, want.SolveVec(b.T(), mat.NewVecDense(numRow, rhs)))
	for i := 0; i < numRow; i++ {
		require.InDelta(t, want.AtVec(i), v.Array[i], 1e-8, "btran row %d", i)
	}
}

func TestFactorBuildSolve(t *testing.T) {
	// 3 structural columns and 3 rows; basis mixes structurals and a
	// logical.
	Astart := []int{0, 2, 4, 6}
	Aindex := []int{0, 1, 1, 2, 0, 2}
	Avalue := []float64{2, 1, 3, -1, 1, 4}
	basicIndex := []int{0, 1, 5} // cols 0, 1 and the logical of row 2

	f := Factor{}
	f.Setup(3, 3, Astart, Aindex, Avalue, basicIndex)
	require.Zero(t, f.Build())

	b := denseBasis(3, 3, Astart, Aindex, Avalue, basicIndex)
	requireFtranMatches(t, &f, b, []float64{1, 2, 3})
	requireBtranMatches(t, &f, b, []float64{-1, 0.5, 2})
}

func TestFactorUpdate(t *testing.T) {
	Astart := []int{0, 2, 4, 6}
	Aindex := []int{0, 1, 1, 2, 0, 2}
	Avalue := []float64{2, 1, 3, -1, 1, 4}
	basicIndex := []int{3, 4, 5} // all logicals

	f := Factor{}
	f.Setup(3, 3, Astart, Aindex, Avalue, basicIndex)
	require.Zero(t, f.Build())

	// Pivot column 1 into row 1, product-form style: ftran the entering
	// column, register the update, mutate the basis ordering.
	col := Vector{}
	col.Setup(3)
	col.Array[1] = 3
	col.Array[2] = -1
	col.Index[0] = 1
	col.Index[1] = 2
	col.Count = 2
	f.Ftran(&col, 0.05)
	require.Equal(t, invertHintNone, f.Update(&col, nil, 1))
	basicIndex[1] = 1

	b := denseBasis(3, 3, Astart, Aindex, Avalue, basicIndex)
	requireFtranMatches(t, &f, b, []float64{1, -2, 0.5})
	requireBtranMatches(t, &f, b, []float64{2, 1, 1})

	// A second update on top of the first.
	col.Clear()
	col.Array[0] = 2
	col.Array[1] = 1
	col.Index[0] = 0
	col.Index[1] = 1
	col.Count = 2
	f.Ftran(&col, 0.05)
	require.Equal(t, invertHintNone, f.Update(&col, nil, 0))
	basicIndex[0] = 0
	require.Equal(t, 2, f.UpdateCount)

	b = denseBasis(3, 3, Astart, Aindex, Avalue, basicIndex)
	requireFtranMatches(t, &f, b, []float64{1, 1, 1})
	requireBtranMatches(t, &f, b, []float64{0, 3, -1})

	// A rebuild from the mutated ordering drops the chain.
	require.Zero(t, f.Build())
	require.Zero(t, f.UpdateCount)
	requireFtranMatches(t, &f, b, []float64{1, 1, 1})
}

func TestFactorRankDeficiency(t *testing.T) {
	// Columns 0 and 1 are identical, so a basis holding both is singular.
	Astart := []int{0, 2, 4}
	Aindex := []int{0, 1, 0, 1}
	Avalue := []float64{1, 2, 1, 2}
	basicIndex := []int{0, 1}

	f := Factor{}
	f.Setup(2, 2, Astart, Aindex, Avalue, basicIndex)
	rd := f.Build()
	require.Equal(t, 1, rd)
	require.Len(t, f.NoPvC, 1)
	require.Len(t, f.NoPvR, 1)
	require.Equal(t, 1, f.NoPvC[0], "the second copy has no pivot left")

	// The caller's repair: swap the deficient variable for the logical
	// that stood in, then rebuild clean.
	basicIndex[f.NoPvPos[0]] = 2 + f.NoPvR[0]
	require.Zero(t, f.Build())
	b := denseBasis(2, 2, Astart, Aindex, Avalue, basicIndex)
	requireFtranMatches(t, &f, b, []float64{1, 3})
}

func TestFactorRandomSolves(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		numRow := 12
		numCol := 20
		var Astart []int
		var Aindex []int
		var Avalue []float64
		Astart = append(Astart, 0)
		for j := 0; j < numCol; j++ {
			for i := 0; i < numRow; i++ {
				if rng.Float64() < 0.35 {
					Aindex = append(Aindex, i)
					Avalue = append(Avalue, rng.NormFloat64()+2)
				}
			}
			Astart = append(Astart, len(Aindex))
		}
		basicIndex := make([]int, numRow)
		perm := rng.Perm(numCol + numRow)
		copy(basicIndex, perm)

		f := Factor{}
		f.Setup(numCol, numRow, Astart, Aindex, Avalue, basicIndex)
		rd := f.Build()
		for k := 0; k < rd; k++ {
			basicIndex[f.NoPvPos[k]] = numCol + f.NoPvR[k]
		}
		if rd > 0 {
			require.Zero(t, f.Build())
		}

		b := denseBasis(numCol, numRow, Astart, Aindex, Avalue, basicIndex)
		rhs := make([]float64, numRow)
		for i := range rhs {
			rhs[i] = rng.NormFloat64()
		}
		requireFtranMatches(t, &f, b, rhs)
		requireBtranMatches(t, &f, b, rhs)
	}
}
