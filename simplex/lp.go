// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"github.com/pkg/errors"
)

// LP is a linear program
//
//	minimize Sense·(cᵀx + Offset)
//	subject to RowLower ≤ Ax ≤ RowUpper and ColLower ≤ x ≤ ColUpper
//
// with A held column-compressed. Bounds at or beyond ±Inf are absent.
// Sense is +1 to minimize and -1 to maximize.
type LP struct {
	Name   string
	NumCol int
	NumRow int

	Astart []int // NumCol+1 column offsets
	Aindex []int // row indices
	Avalue []float64

	ColCost  []float64
	ColLower []float64
	ColUpper []float64
	RowLower []float64
	RowUpper []float64

	Sense  int
	Offset float64
}

// Validate checks dimensions and bound ordering.
func (lp *LP) Validate() error {
	if lp.NumCol < 0 || lp.NumRow < 0 {
		return errors.New("negative dimension")
	}
	if len(lp.Astart) != lp.NumCol+1 {
		return errors.Errorf("Astart has %d offsets, want %d", len(lp.Astart), lp.NumCol+1)
	}
	nnz := lp.Astart[lp.NumCol]
	if len(lp.Aindex) < nnz || len(lp.Avalue) < nnz {
		return errors.Errorf("matrix arrays shorter than Astart extent %d", nnz)
	}
	for j := 0; j < lp.NumCol; j++ {
		if lp.Astart[j] > lp.Astart[j+1] {
			return errors.Errorf("column %d has negative length", j)
		}
	}
	for _, i := range lp.Aindex[:nnz] {
		if i < 0 || i >= lp.NumRow {
			return errors.Errorf("row index %d out of range", i)
		}
	}
	if len(lp.ColCost) != lp.NumCol || len(lp.ColLower) != lp.NumCol || len(lp.ColUpper) != lp.NumCol {
		return errors.New("column vector length mismatch")
	}
	if len(lp.RowLower) != lp.NumRow || len(lp.RowUpper) != lp.NumRow {
		return errors.New("row vector length mismatch")
	}
	for j := 0; j < lp.NumCol; j++ {
		if lp.ColLower[j] > lp.ColUpper[j] {
			return errors.Errorf("column %d bounds cross", j)
		}
	}
	for i := 0; i < lp.NumRow; i++ {
		if lp.RowLower[i] > lp.RowUpper[i] {
			return errors.Errorf("row %d bounds cross", i)
		}
	}
	if lp.Sense != 1 && lp.Sense != -1 {
		return errors.Errorf("sense must be ±1, got %d", lp.Sense)
	}
	return nil
}

// clone returns a deep copy.
func (lp *LP) clone() *LP {
	dup := *lp
	dup.Astart = append([]int(nil), lp.Astart...)
	dup.Aindex = append([]int(nil), lp.Aindex...)
	dup.Avalue = append([]float64(nil), lp.Avalue...)
	dup.ColCost = append([]float64(nil), lp.ColCost...)
	dup.ColLower = append([]float64(nil), lp.ColLower...)
	dup.ColUpper = append([]float64(nil), lp.ColUpper...)
	dup.RowLower = append([]float64(nil), lp.RowLower...)
	dup.RowUpper = append([]float64(nil), lp.RowUpper...)
	return &dup
}

// AddCols appends n columns with the given costs, bounds and
// column-compressed entries. A basis over the old variable set is
// extended in place: the logicals keep their flags and the new columns
// enter nonbasic, so the basis matrix is unchanged while the matrix
// copies, primal values and dual state go stale.
func (lp *LP) AddCols(n int, cost, lower, upper []float64, Astart, Aindex []int, Avalue []float64, basis *Basis) {
	if n == 0 {
		return
	}
	oldNumCol := lp.NumCol
	newNumCol := oldNumCol + n
	nnz := lp.Astart[oldNumCol]
	lp.Astart = lp.Astart[:oldNumCol]
	for k := 0; k < n; k++ {
		lp.Astart = append(lp.Astart, nnz+Astart[k])
	}
	lp.Astart = append(lp.Astart, nnz+Astart[n])
	lp.Aindex = append(lp.Aindex[:nnz], Aindex[:Astart[n]]...)
	lp.Avalue = append(lp.Avalue[:nnz], Avalue[:Astart[n]]...)
	lp.ColCost = append(lp.ColCost, cost...)
	lp.ColLower = append(lp.ColLower, lower...)
	lp.ColUpper = append(lp.ColUpper, upper...)
	lp.NumCol = newNumCol

	if basis != nil && basis.Valid {
		newFlag := make([]int8, newNumCol+lp.NumRow)
		newMove := make([]int8, newNumCol+lp.NumRow)
		copy(newFlag, basis.NonbasicFlag[:oldNumCol])
		copy(newMove, basis.NonbasicMove[:oldNumCol])
		for col := oldNumCol; col < newNumCol; col++ {
			newFlag[col] = nonbasicFlagTrue
		}
		copy(newFlag[newNumCol:], basis.NonbasicFlag[oldNumCol:])
		copy(newMove[newNumCol:], basis.NonbasicMove[oldNumCol:])
		for row := range basis.BasicIndex {
			if basis.BasicIndex[row] >= oldNumCol {
				basis.BasicIndex[row] += n
			}
		}
		basis.NonbasicFlag = newFlag
		basis.NonbasicMove = newMove
	}
}

// AddRows appends n rows with the given bounds and row-compressed
// entries. A basis is extended with the new logicals basic; every piece
// of derived state is lost.
func (lp *LP) AddRows(n int, lower, upper []float64, ARstart, ARindex []int, ARvalue []float64, basis *Basis) {
	if n == 0 {
		return
	}
	oldNumRow := lp.NumRow
	// Scatter the row-wise entries into the column-wise copy.
	colCount := make([]int, lp.NumCol)
	for k := 0; k < ARstart[n]; k++ {
		colCount[ARindex[k]]++
	}
	newAstart := make([]int, lp.NumCol+1)
	for j := 0; j < lp.NumCol; j++ {
		newAstart[j+1] = newAstart[j] + lp.Astart[j+1] - lp.Astart[j] + colCount[j]
	}
	newAindex := make([]int, newAstart[lp.NumCol])
	newAvalue := make([]float64, newAstart[lp.NumCol])
	fill := make([]int, lp.NumCol)
	copy(fill, newAstart[:lp.NumCol])
	for j := 0; j < lp.NumCol; j++ {
		for k := lp.Astart[j]; k < lp.Astart[j+1]; k++ {
			newAindex[fill[j]] = lp.Aindex[k]
			newAvalue[fill[j]] = lp.Avalue[k]
			fill[j]++
		}
	}
	for i := 0; i < n; i++ {
		for k := ARstart[i]; k < ARstart[i+1]; k++ {
			j := ARindex[k]
			newAindex[fill[j]] = oldNumRow + i
			newAvalue[fill[j]] = ARvalue[k]
			fill[j]++
		}
	}
	lp.Astart = newAstart
	lp.Aindex = newAindex
	lp.Avalue = newAvalue
	lp.RowLower = append(lp.RowLower, lower...)
	lp.RowUpper = append(lp.RowUpper, upper...)
	lp.NumRow = oldNumRow + n

	if basis != nil && basis.Valid {
		for i := 0; i < n; i++ {
			variable := lp.NumCol + oldNumRow + i
			basis.NonbasicFlag = append(basis.NonbasicFlag, nonbasicFlagFalse)
			basis.NonbasicMove = append(basis.NonbasicMove, moveZero)
			basis.BasicIndex = append(basis.BasicIndex, variable)
		}
	}
}

// Scale holds the equilibration factors relating the working LP to the
// user LP: A'[i,j] = A[i,j]·Col[j]·Row[i], costs divided by Cost.
type Scale struct {
	Col  []float64
	Row  []float64
	Cost float64
}

// lpStatus records which preparation passes have run on the working LP and
// which derived state is currently valid.
type lpStatus struct {
	valid      bool
	transposed bool
	scaled     bool
	permuted   bool
	tightened  bool

	hasBasis         bool
	hasColMatrix     bool
	hasRowMatrix     bool
	hasFactorArrays  bool
	hasInvert        bool
	hasFreshInvert   bool
	hasFreshRebuild  bool
	hasDSEWeights    bool
	hasBasicPrimals  bool
	hasNonbasicDuals bool
	hasDualObjective bool
}

// lpAction names a structural mutation whose derived-state consequences
// must be applied through (*lpStatus).apply.
type lpAction int

const (
	actionTranspose lpAction = iota
	actionScale
	actionPermute
	actionTighten
	actionNewCosts
	actionNewBounds
	actionNewBasis
	actionNewCols
	actionNewRows
)

// invalidateData clears every derived validity bit, leaving the prep flags.
func (st *lpStatus) invalidateData() {
	st.hasBasis = false
	st.hasColMatrix = false
	st.hasRowMatrix = false
	st.hasDSEWeights = false
	st.hasNonbasicDuals = false
	st.hasBasicPrimals = false
	st.hasInvert = false
	st.hasFreshInvert = false
	st.hasFreshRebuild = false
	st.hasDualObjective = false
}

// invalidate resets the status entirely.
func (st *lpStatus) invalidate() {
	st.valid = false
	st.transposed = false
	st.scaled = false
	st.permuted = false
	st.tightened = false
	st.invalidateData()
}

func (st *lpStatus) apply(action lpAction) {
	switch action {
	case actionTranspose:
		st.transposed = true
		st.invalidateData()
	case actionScale:
		st.scaled = true
		st.invalidateData()
	case actionPermute:
		st.permuted = true
		st.invalidateData()
	case actionTighten:
		st.tightened = true
		st.invalidateData()
	case actionNewCosts:
		st.hasNonbasicDuals = false
		st.hasFreshRebuild = false
		st.hasDualObjective = false
	case actionNewBounds:
		st.hasBasicPrimals = false
		st.hasFreshRebuild = false
		st.hasDualObjective = false
	case actionNewCols:
		// New columns enter nonbasic, leaving the basis matrix alone:
		// the matrix copies, the primal values and everything dual go
		// stale, but the basis and its factorization survive.
		st.hasColMatrix = false
		st.hasRowMatrix = false
		st.hasBasicPrimals = false
		st.hasNonbasicDuals = false
		st.hasDualObjective = false
		st.hasFreshRebuild = false
	case actionNewBasis, actionNewRows:
		st.invalidateData()
	}
}
