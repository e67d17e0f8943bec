// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import "math"

const (
	// buildPivotTol is the smallest magnitude accepted as a pivot during a
	// factorization from scratch.
	buildPivotTol = 1e-11
	// updatePivotTol is its counterpart for a product-form update.
	updatePivotTol = 1e-12
	// hyperDensity is the fill ratio below which solve results keep their
	// index lists maintained.
	hyperDensity = 0.1
)

// Factor is the LU factorization of the basis matrix B, the numRow×numRow
// matrix whose k-th column is the column of basicIndex[k] in the extended
// matrix (the column of a logical numCol+i being the i-th unit vector).
//
// The factorization is left-looking with partial pivoting on rows; pivots
// after a basis change are absorbed by appending product-form factors
// until the caller refactorizes. Ftran results are indexed by basis
// position, Btran results by original row; both match what the dual
// iteration feeds in and reads out.
type Factor struct {
	numCol int
	numRow int

	Astart []int
	Aindex []int
	Avalue []float64
	// basicIndex is shared with the owning basis: a rebuild after an
	// external pivot sees the mutated ordering without rebinding.
	basicIndex []int

	permRow []int // position -> original row
	rowPerm []int // original row -> position, -1 while unpivoted

	lStart []int
	lIndex []int // original row of each multiplier
	lValue []float64
	uStart []int
	uIndex []int // position of each entry, always below the column's own
	uValue []float64
	uPivot []float64

	// Rank deficiency report of the latest Build: NoPvC[k] is the basic
	// variable whose column produced no pivot, NoPvR[k] the row whose
	// logical stood in for it, NoPvPos[k] its basis position.
	RankDeficiency int
	NoPvC          []int
	NoPvR          []int
	NoPvPos        []int

	pfPivot []int
	pfAlpha []float64
	pfStart []int
	pfIndex []int
	pfValue []float64
	// UpdateCount is the length of the product-form chain.
	UpdateCount int

	workArray []float64
	workTemp  []float64
	workList  []int
}

// Setup binds the factorization to the LP matrix and the basis ordering.
func (f *Factor) Setup(numCol, numRow int, Astart, Aindex []int, Avalue []float64, basicIndex []int) {
	f.numCol = numCol
	f.numRow = numRow
	f.Astart = Astart
	f.Aindex = Aindex
	f.Avalue = Avalue
	f.basicIndex = basicIndex

	f.permRow = make([]int, numRow)
	f.rowPerm = make([]int, numRow)
	f.uPivot = make([]float64, numRow)
	f.workArray = make([]float64, numRow)
	f.workTemp = make([]float64, numRow)
	f.workList = make([]int, 0, numRow)
	f.lStart = make([]int, 1, numRow+1)
	f.uStart = make([]int, 1, numRow+1)
	f.pfStart = f.pfStart[:0]
	f.pfStart = append(f.pfStart, 0)
}

// Build factors B from scratch and returns the rank deficiency found. A
// column yielding no acceptable pivot is replaced by the logical of a row
// that is still without one, and the substitution is recorded in NoPvC,
// NoPvR and NoPvPos so the caller can repair the basis to match.
func (f *Factor) Build() int {
	m := f.numRow
	for i := 0; i < m; i++ {
		f.rowPerm[i] = -1
	}
	f.lStart = f.lStart[:1]
	f.lIndex = f.lIndex[:0]
	f.lValue = f.lValue[:0]
	f.uStart = f.uStart[:1]
	f.uIndex = f.uIndex[:0]
	f.uValue = f.uValue[:0]
	f.dropUpdates()
	f.RankDeficiency = 0
	f.NoPvC = f.NoPvC[:0]
	f.NoPvR = f.NoPvR[:0]
	f.NoPvPos = f.NoPvPos[:0]

	wa := f.workArray
	for k := 0; k < m; k++ {
		pattern := f.workList[:0]
		variable := f.basicIndex[k]
		if variable < f.numCol {
			for e := f.Astart[variable]; e < f.Astart[variable+1]; e++ {
				i := f.Aindex[e]
				if wa[i] == 0 {
					pattern = append(pattern, i)
				}
				wa[i] += f.Avalue[e]
			}
		} else {
			i := variable - f.numCol
			wa[i] = 1
			pattern = append(pattern, i)
		}

		// Left-looking elimination: by the time column p is applied, its
		// own pivot value in wa is final.
		for p := 0; p < k; p++ {
			xp := wa[f.permRow[p]]
			if xp == 0 {
				continue
			}
			for e := f.lStart[p]; e < f.lStart[p+1]; e++ {
				ri := f.lIndex[e]
				if wa[ri] == 0 {
					pattern = append(pattern, ri)
				}
				wa[ri] -= xp * f.lValue[e]
			}
		}

		f.workList = pattern

		pivotRow := -1
		pivotMag := buildPivotTol
		for _, ri := range pattern {
			if f.rowPerm[ri] < 0 {
				if mag := math.Abs(wa[ri]); mag > pivotMag {
					pivotMag = mag
					pivotRow = ri
				}
			}
		}

		if pivotRow < 0 {
			// No pivot: stand in the logical of the first unpivoted row.
			for _, ri := range pattern {
				wa[ri] = 0
			}
			sub := -1
			for i := 0; i < m; i++ {
				if f.rowPerm[i] < 0 {
					sub = i
					break
				}
			}
			f.RankDeficiency++
			f.NoPvC = append(f.NoPvC, variable)
			f.NoPvR = append(f.NoPvR, sub)
			f.NoPvPos = append(f.NoPvPos, k)
			f.permRow[k] = sub
			f.rowPerm[sub] = k
			f.uPivot[k] = 1
			f.lStart = append(f.lStart, len(f.lIndex))
			f.uStart = append(f.uStart, len(f.uIndex))
			continue
		}

		pivot := wa[pivotRow]
		for _, ri := range pattern {
			value := wa[ri]
			wa[ri] = 0
			if ri == pivotRow || value == 0 {
				continue
			}
			if value < tiny && value > -tiny {
				continue
			}
			if pos := f.rowPerm[ri]; pos >= 0 {
				f.uIndex = append(f.uIndex, pos)
				f.uValue = append(f.uValue, value)
			} else {
				f.lIndex = append(f.lIndex, ri)
				f.lValue = append(f.lValue, value/pivot)
			}
		}
		f.permRow[k] = pivotRow
		f.rowPerm[pivotRow] = k
		f.uPivot[k] = pivot
		f.lStart = append(f.lStart, len(f.lIndex))
		f.uStart = append(f.uStart, len(f.uIndex))
	}
	return f.RankDeficiency
}

// Ftran solves B·x = v in place. The input is indexed by original row,
// the result by basis position. expectDensity picks whether the result
// keeps its index list maintained.
func (f *Factor) Ftran(v *Vector, expectDensity float64) {
	m := f.numRow
	wa := v.Array

	for k := 0; k < m; k++ {
		xp := wa[f.permRow[k]]
		if xp == 0 {
			continue
		}
		for e := f.lStart[k]; e < f.lStart[k+1]; e++ {
			wa[f.lIndex[e]] -= xp * f.lValue[e]
		}
	}

	wt := f.workTemp
	for k := m - 1; k >= 0; k-- {
		x := wa[f.permRow[k]]
		if x != 0 {
			x /= f.uPivot[k]
			for e := f.uStart[k]; e < f.uStart[k+1]; e++ {
				wa[f.permRow[f.uIndex[e]]] -= f.uValue[e] * x
			}
		}
		wt[k] = x
	}
	copy(wa, wt)

	for t := 0; t < f.UpdateCount; t++ {
		r := f.pfPivot[t]
		xr := wa[r]
		if xr == 0 {
			continue
		}
		xr /= f.pfAlpha[t]
		for e := f.pfStart[t]; e < f.pfStart[t+1]; e++ {
			wa[f.pfIndex[e]] -= f.pfValue[e] * xr
		}
		wa[r] = xr
	}

	f.finish(v, expectDensity)
}

// Btran solves Bᵀ·x = v in place. The input is indexed by basis
// position, the result by original row.
func (f *Factor) Btran(v *Vector, expectDensity float64) {
	m := f.numRow
	wa := v.Array

	for t := f.UpdateCount - 1; t >= 0; t-- {
		r := f.pfPivot[t]
		sum := 0.0
		for e := f.pfStart[t]; e < f.pfStart[t+1]; e++ {
			sum += f.pfValue[e] * wa[f.pfIndex[e]]
		}
		wa[r] = (wa[r] - sum) / f.pfAlpha[t]
	}

	wt := f.workTemp
	for k := 0; k < m; k++ {
		x := wa[k]
		for e := f.uStart[k]; e < f.uStart[k+1]; e++ {
			x -= f.uValue[e] * wt[f.uIndex[e]]
		}
		wt[k] = x / f.uPivot[k]
	}

	for i := 0; i < m; i++ {
		wa[i] = 0
	}
	for k := 0; k < m; k++ {
		wa[f.permRow[k]] = wt[k]
	}
	for k := m - 1; k >= 0; k-- {
		z := wa[f.permRow[k]]
		for e := f.lStart[k]; e < f.lStart[k+1]; e++ {
			z -= f.lValue[e] * wa[f.lIndex[e]]
		}
		wa[f.permRow[k]] = z
	}

	f.finish(v, expectDensity)
}

func (f *Factor) finish(v *Vector, expectDensity float64) {
	if expectDensity < hyperDensity {
		v.reindex()
	} else {
		v.Count = -1
	}
}

// Update absorbs the pivot that replaced the basic variable at position
// rowOut with the variable whose Ftran-ed column is given. rowEp is the
// Btran-ed unit row of the same pivot; the forward product-form update
// has no use for it but alternative update kinds do, so the signature
// carries both. The returned hint asks for a refactorization when the
// pivot is numerically unusable.
func (f *Factor) Update(column, rowEp *Vector, rowOut int) invertHint {
	_ = rowEp
	alpha := column.Array[rowOut]
	if math.Abs(alpha) < updatePivotTol {
		return invertHintPossiblySingularBasis
	}
	if column.Count < 0 {
		column.reindex()
	}
	for n := 0; n < column.Count; n++ {
		i := column.Index[n]
		if i == rowOut {
			continue
		}
		value := column.Array[i]
		if value < tiny && value > -tiny {
			continue
		}
		f.pfIndex = append(f.pfIndex, i)
		f.pfValue = append(f.pfValue, value)
	}
	f.pfPivot = append(f.pfPivot, rowOut)
	f.pfAlpha = append(f.pfAlpha, alpha)
	f.pfStart = append(f.pfStart, len(f.pfIndex))
	f.UpdateCount++
	return invertHintNone
}

// dropUpdates releases the product-form chain.
func (f *Factor) dropUpdates() {
	f.pfPivot = f.pfPivot[:0]
	f.pfAlpha = f.pfAlpha[:0]
	f.pfStart = f.pfStart[:1]
	f.pfIndex = f.pfIndex[:0]
	f.pfValue = f.pfValue[:0]
	f.UpdateCount = 0
}
