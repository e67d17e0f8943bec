// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

// Matrix holds the constraint matrix twice: the column-wise copy taken
// from the LP and a row-wise copy whose rows are split into a nonbasic
// part followed by a basic part. PRICE scans only the nonbasic half of
// each row; Update restores the split after a pivot swaps two columns
// between the partitions.
type Matrix struct {
	numCol int
	numRow int

	Astart []int
	Aindex []int
	Avalue []float64

	ARstart []int // numRow+1 row offsets
	ARnEnd  []int // end of the nonbasic part of each row
	ARindex []int
	ARvalue []float64
}

// Setup builds both copies for a general basis. nonbasicFlag drives the
// row partition: entries of nonbasic columns come first in every row.
func (m *Matrix) Setup(numCol, numRow int, Astart, Aindex []int, Avalue []float64, nonbasicFlag []int8) {
	m.copyColumns(numCol, numRow, Astart, Aindex, Avalue)

	nnz := Astart[numCol]
	m.ARstart = make([]int, numRow+1)
	m.ARnEnd = make([]int, numRow)
	m.ARindex = make([]int, nnz)
	m.ARvalue = make([]float64, nnz)

	// Per-row counts of the nonbasic and basic entries.
	nonbasicCount := make([]int, numRow)
	basicCount := make([]int, numRow)
	for j := 0; j < numCol; j++ {
		count := nonbasicCount
		if nonbasicFlag[j] == nonbasicFlagFalse {
			count = basicCount
		}
		for k := Astart[j]; k < Astart[j+1]; k++ {
			count[Aindex[k]]++
		}
	}
	for i := 0; i < numRow; i++ {
		m.ARstart[i+1] = m.ARstart[i] + nonbasicCount[i] + basicCount[i]
		m.ARnEnd[i] = m.ARstart[i] + nonbasicCount[i]
	}

	fillNonbasic := make([]int, numRow)
	fillBasic := make([]int, numRow)
	for i := 0; i < numRow; i++ {
		fillNonbasic[i] = m.ARstart[i]
		fillBasic[i] = m.ARnEnd[i]
	}
	for j := 0; j < numCol; j++ {
		fill := fillNonbasic
		if nonbasicFlag[j] == nonbasicFlagFalse {
			fill = fillBasic
		}
		for k := Astart[j]; k < Astart[j+1]; k++ {
			i := Aindex[k]
			put := fill[i]
			fill[i]++
			m.ARindex[put] = j
			m.ARvalue[put] = Avalue[k]
		}
	}
}

// SetupLogical builds both copies for the all-logicals basis, where every
// structural column is nonbasic and no partition is needed.
func (m *Matrix) SetupLogical(numCol, numRow int, Astart, Aindex []int, Avalue []float64) {
	m.copyColumns(numCol, numRow, Astart, Aindex, Avalue)

	nnz := Astart[numCol]
	m.ARstart = make([]int, numRow+1)
	m.ARnEnd = make([]int, numRow)
	m.ARindex = make([]int, nnz)
	m.ARvalue = make([]float64, nnz)

	for k := 0; k < nnz; k++ {
		m.ARstart[Aindex[k]+1]++
	}
	for i := 0; i < numRow; i++ {
		m.ARstart[i+1] += m.ARstart[i]
	}
	fill := make([]int, numRow)
	copy(fill, m.ARstart[:numRow])
	for j := 0; j < numCol; j++ {
		for k := Astart[j]; k < Astart[j+1]; k++ {
			i := Aindex[k]
			put := fill[i]
			fill[i]++
			m.ARindex[put] = j
			m.ARvalue[put] = Avalue[k]
		}
	}
	for i := 0; i < numRow; i++ {
		m.ARnEnd[i] = m.ARstart[i+1]
	}
}

func (m *Matrix) copyColumns(numCol, numRow int, Astart, Aindex []int, Avalue []float64) {
	m.numCol = numCol
	m.numRow = numRow
	m.Astart = append(m.Astart[:0], Astart...)
	m.Aindex = append(m.Aindex[:0], Aindex[:Astart[numCol]]...)
	m.Avalue = append(m.Avalue[:0], Avalue[:Astart[numCol]]...)
}

// CollectAj accumulates v += multi·A[:,j] for an extended variable j,
// where the column of a logical numCol+i is the i-th unit vector. Newly
// touched positions are appended to v's index list; entries that cancel
// are parked on the zero placeholder so the listing stays valid.
func (m *Matrix) CollectAj(v *Vector, j int, multi float64) {
	if j < m.numCol {
		for k := m.Astart[j]; k < m.Astart[j+1]; k++ {
			index := m.Aindex[k]
			value0 := v.Array[index]
			value1 := value0 + multi*m.Avalue[k]
			if value0 == 0 {
				v.Index[v.Count] = index
				v.Count++
			}
			if value1 > tiny || value1 < -tiny {
				v.Array[index] = value1
			} else {
				v.Array[index] = zeroEntry
			}
		}
		return
	}
	index := j - m.numCol
	value0 := v.Array[index]
	value1 := value0 + multi
	if value0 == 0 {
		v.Index[v.Count] = index
		v.Count++
	}
	if value1 > tiny || value1 < -tiny {
		v.Array[index] = value1
	} else {
		v.Array[index] = zeroEntry
	}
}

// PriceByCol forms rowAp[j] = A[:,j]ᵀ·pi over every structural column.
func (m *Matrix) PriceByCol(rowAp, pi *Vector) {
	for j := 0; j < m.numCol; j++ {
		value := 0.0
		for k := m.Astart[j]; k < m.Astart[j+1]; k++ {
			value += pi.Array[m.Aindex[k]] * m.Avalue[k]
		}
		if value > tiny || value < -tiny {
			rowAp.Index[rowAp.Count] = j
			rowAp.Count++
			rowAp.Array[j] = value
		}
	}
}

// PriceByRow forms rowAp = Aᵀ·pi from pi's index list, multiplying only
// the nonbasic part of each listed row. Entries of basic columns are
// never produced, which is what the ratio test needs.
func (m *Matrix) PriceByRow(rowAp, pi *Vector) {
	for n := 0; n < pi.Count; n++ {
		i := pi.Index[n]
		multi := pi.Array[i]
		for k := m.ARstart[i]; k < m.ARnEnd[i]; k++ {
			j := m.ARindex[k]
			value0 := rowAp.Array[j]
			value1 := value0 + multi*m.ARvalue[k]
			if value0 == 0 {
				rowAp.Index[rowAp.Count] = j
				rowAp.Count++
			}
			if value1 > tiny || value1 < -tiny {
				rowAp.Array[j] = value1
			} else {
				rowAp.Array[j] = zeroEntry
			}
		}
	}
	rowAp.Tight()
}

// Update restores the row partition after the pivot that made structural
// columnIn basic and columnOut nonbasic. Logical columns have no row-wise
// entries and are skipped.
func (m *Matrix) Update(columnIn, columnOut int) {
	if columnIn < m.numCol {
		for k := m.Astart[columnIn]; k < m.Astart[columnIn+1]; k++ {
			i := m.Aindex[k]
			// Move columnIn out of the nonbasic part.
			for p := m.ARstart[i]; p < m.ARnEnd[i]; p++ {
				if m.ARindex[p] == columnIn {
					last := m.ARnEnd[i] - 1
					m.ARindex[p], m.ARindex[last] = m.ARindex[last], m.ARindex[p]
					m.ARvalue[p], m.ARvalue[last] = m.ARvalue[last], m.ARvalue[p]
					m.ARnEnd[i] = last
					break
				}
			}
		}
	}
	if columnOut < m.numCol {
		for k := m.Astart[columnOut]; k < m.Astart[columnOut+1]; k++ {
			i := m.Aindex[k]
			// Move columnOut into the nonbasic part.
			for p := m.ARnEnd[i]; p < m.ARstart[i+1]; p++ {
				if m.ARindex[p] == columnOut {
					first := m.ARnEnd[i]
					m.ARindex[p], m.ARindex[first] = m.ARindex[first], m.ARindex[p]
					m.ARvalue[p], m.ARvalue[first] = m.ARvalue[first], m.ARvalue[p]
					m.ARnEnd[i] = first + 1
					break
				}
			}
		}
	}
}
