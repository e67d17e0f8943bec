// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"math"
	"testing"
)

// test matrix:
//
//	       c0  c1  c2  c3
//	row0 [  1   .   2   . ]
//	row1 [  .   3   4   1 ]
//	row2 [  5   .   .   2 ]
var (
	tmAstart = []int{0, 2, 3, 5, 7}
	tmAindex = []int{0, 2, 1, 0, 1, 1, 2}
	tmAvalue = []float64{1, 5, 3, 2, 4, 1, 2}
)

func denseAt(row, col int) float64 {
	for k := tmAstart[col]; k < tmAstart[col+1]; k++ {
		if tmAindex[k] == row {
			return tmAvalue[k]
		}
	}
	return 0
}

func TestMatrixSetupPartition(t *testing.T) {
	// Columns 1 and 3 basic, 0 and 2 nonbasic.
	flag := []int8{1, 0, 1, 0}
	m := Matrix{}
	m.Setup(4, 3, tmAstart, tmAindex, tmAvalue, flag)

	for i := 0; i < 3; i++ {
		for k := m.ARstart[i]; k < m.ARstart[i+1]; k++ {
			j := m.ARindex[k]
			wantNonbasic := k < m.ARnEnd[i]
			if (flag[j] == nonbasicFlagTrue) != wantNonbasic {
				t.Fatalf("row %d: column %d on the wrong side of the partition", i, j)
			}
			if m.ARvalue[k] != denseAt(i, j) {
				t.Fatalf("row %d col %d: value %g, want %g", i, j, m.ARvalue[k], denseAt(i, j))
			}
		}
	}
}

func TestMatrixSetupLogical(t *testing.T) {
	m := Matrix{}
	m.SetupLogical(4, 3, tmAstart, tmAindex, tmAvalue)
	for i := 0; i < 3; i++ {
		if m.ARnEnd[i] != m.ARstart[i+1] {
			t.Fatalf("row %d: logical setup must leave the whole row nonbasic", i)
		}
	}
	total := 0
	for i := 0; i < 3; i++ {
		total += m.ARstart[i+1] - m.ARstart[i]
	}
	if total != tmAstart[4] {
		t.Fatalf("row-wise copy holds %d entries, want %d", total, tmAstart[4])
	}
}

func TestMatrixCollectAj(t *testing.T) {
	m := Matrix{}
	m.SetupLogical(4, 3, tmAstart, tmAindex, tmAvalue)

	v := Vector{}
	v.Setup(3)
	m.CollectAj(&v, 2, 2)  // 2·A[:,2]
	m.CollectAj(&v, 5, -3) // logical of row 1
	want := []float64{2 * 2, 2*4 - 3, 0}
	for i, w := range want {
		if math.Abs(v.Array[i]-w) > 1e-15 {
			t.Fatalf("collect row %d: %g, want %g", i, v.Array[i], w)
		}
	}
	// Cancellation parks the entry on the placeholder, keeping it listed.
	m.CollectAj(&v, 5, -(2*4 - 3.0))
	v.Tight()
	for n := 0; n < v.Count; n++ {
		if v.Index[n] == 1 {
			t.Fatal("cancelled entry still listed after tight")
		}
	}
}

func TestMatrixPriceRowColAgree(t *testing.T) {
	flag := []int8{1, 0, 1, 0}
	m := Matrix{}
	m.Setup(4, 3, tmAstart, tmAindex, tmAvalue, flag)

	pi := Vector{}
	pi.Setup(3)
	for i, x := range []float64{0.5, -1, 2} {
		pi.Array[i] = x
		pi.Index[i] = i
	}
	pi.Count = 3

	byCol := Vector{}
	byCol.Setup(4)
	m.PriceByCol(&byCol, &pi)
	byRow := Vector{}
	byRow.Setup(4)
	m.PriceByRow(&byRow, &pi)

	for j := 0; j < 4; j++ {
		if flag[j] != nonbasicFlagTrue {
			continue
		}
		if math.Abs(byCol.Array[j]-byRow.Array[j]) > 1e-12 {
			t.Fatalf("col %d: price by row %g, by col %g", j, byRow.Array[j], byCol.Array[j])
		}
		want := 0.0
		for i := 0; i < 3; i++ {
			want += denseAt(i, j) * pi.Array[i]
		}
		if math.Abs(byCol.Array[j]-want) > 1e-12 {
			t.Fatalf("col %d: price %g, want %g", j, byCol.Array[j], want)
		}
	}
}

func TestMatrixUpdateSwapsPartition(t *testing.T) {
	flag := []int8{1, 0, 1, 0}
	m := Matrix{}
	m.Setup(4, 3, tmAstart, tmAindex, tmAvalue, flag)

	// Pivot: column 2 enters the basis, column 1 leaves.
	m.Update(2, 1)
	flag[2] = 0
	flag[1] = 1
	for i := 0; i < 3; i++ {
		for k := m.ARstart[i]; k < m.ARstart[i+1]; k++ {
			j := m.ARindex[k]
			wantNonbasic := k < m.ARnEnd[i]
			if (flag[j] == nonbasicFlagTrue) != wantNonbasic {
				t.Fatalf("after update, row %d: column %d on the wrong side", i, j)
			}
		}
	}
}
