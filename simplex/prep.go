// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import "math"

// Scaling limits and the skip window for well-scaled matrices.
const (
	minAllowedScale = 1.0 / 1024
	maxAllowedScale = 1024.0

	scaleSkipMin = 0.2
	scaleSkipMax = 5.0
)

// transposeLP replaces the working LP with its dual when the LP is much
// taller than wide and every bound fits one of the four admissible
// patterns (free, nonnegative, nonpositive, fixed for columns; the
// analogous four for rows). Otherwise the LP is left untouched and the
// pass does not mark itself done.
func (inst *instance) transposeLP() {
	if inst.status.transposed {
		return
	}
	lp := inst.lp
	numCol := lp.NumCol
	numRow := lp.NumRow
	if numRow == 0 || float64(numCol)/float64(numRow) > 0.2 {
		return
	}

	// Column bounds become dual row bounds.
	dualRowLower := make([]float64, numCol)
	dualRowUpper := make([]float64, numCol)
	for j := 0; j < numCol; j++ {
		lower, upper, cost := lp.ColLower[j], lp.ColUpper[j], lp.ColCost[j]
		switch {
		case lower <= -Inf && upper >= Inf:
			dualRowLower[j] = cost
			dualRowUpper[j] = cost
		case lower == 0 && upper >= Inf:
			dualRowLower[j] = -Inf
			dualRowUpper[j] = cost
		case lower <= -Inf && upper == 0:
			dualRowLower[j] = cost
			dualRowUpper[j] = Inf
		case lower == 0 && upper == 0:
			dualRowLower[j] = -Inf
			dualRowUpper[j] = Inf
		default:
			return
		}
	}

	// Row bounds become dual column bounds and costs.
	dualColLower := make([]float64, numRow)
	dualColUpper := make([]float64, numRow)
	dualCost := make([]float64, numRow)
	for i := 0; i < numRow; i++ {
		lower, upper := lp.RowLower[i], lp.RowUpper[i]
		switch {
		case lower == upper:
			dualColLower[i] = -Inf
			dualColUpper[i] = Inf
			dualCost[i] = -lower
		case lower <= -Inf && upper < Inf:
			dualColLower[i] = -Inf
			dualColUpper[i] = 0
			dualCost[i] = -upper
		case lower > -Inf && upper >= Inf:
			dualColLower[i] = 0
			dualColUpper[i] = Inf
			dualCost[i] = -lower
		case lower <= -Inf && upper >= Inf:
			dualColLower[i] = 0
			dualColUpper[i] = 0
			dualCost[i] = 0
		default:
			return
		}
	}

	ARstart, ARindex, ARvalue := transposeMatrix(numCol, numRow, lp.Astart, lp.Aindex, lp.Avalue)

	lp.NumCol, lp.NumRow = numRow, numCol
	lp.Astart, lp.Aindex, lp.Avalue = ARstart, ARindex, ARvalue
	lp.ColLower, lp.ColUpper, lp.ColCost = dualColLower, dualColUpper, dualCost
	lp.RowLower, lp.RowUpper = dualRowLower, dualRowUpper
	inst.status.apply(actionTranspose)
}

// transposeMatrix converts a column-compressed matrix to the compressed
// form of its transpose.
func transposeMatrix(numCol, numRow int, Astart, Aindex []int, Avalue []float64) ([]int, []int, []float64) {
	nnz := Astart[numCol]
	iwork := make([]int, numRow)
	ARstart := make([]int, numRow+1)
	ARindex := make([]int, nnz)
	ARvalue := make([]float64, nnz)
	for k := 0; k < nnz; k++ {
		iwork[Aindex[k]]++
	}
	for i := 1; i <= numRow; i++ {
		ARstart[i] = ARstart[i-1] + iwork[i-1]
	}
	copy(iwork, ARstart[:numRow])
	for iCol := 0; iCol < numCol; iCol++ {
		for k := Astart[iCol]; k < Astart[iCol+1]; k++ {
			iRow := Aindex[k]
			put := iwork[iRow]
			iwork[iRow]++
			ARindex[put] = iCol
			ARvalue[put] = Avalue[k]
		}
	}
	return ARstart, ARindex, ARvalue
}

// scaleLP equilibrates the working LP by six rounds of geometric-mean
// column and row scaling, rounds the factors to powers of two so that
// applying them is exact, and rescales matrix, bounds and costs. A matrix
// whose entries already sit in [0.2, 5] is left alone.
func (inst *instance) scaleLP() {
	if inst.status.scaled {
		return
	}
	lp := inst.lp
	numCol := lp.NumCol
	numRow := lp.NumRow
	inst.scale.Col = make([]float64, numCol)
	inst.scale.Row = make([]float64, numRow)
	for j := range inst.scale.Col {
		inst.scale.Col[j] = 1
	}
	for i := range inst.scale.Row {
		inst.scale.Row[i] = 1
	}
	inst.scale.Cost = 1

	min0, max0 := math.Inf(1), 0.0
	for _, value := range lp.Avalue[:lp.Astart[numCol]] {
		value = math.Abs(value)
		min0 = math.Min(min0, value)
		max0 = math.Max(max0, value)
	}
	if min0 >= scaleSkipMin && max0 <= scaleSkipMax {
		inst.status.apply(actionScale)
		return
	}

	colScale := inst.scale.Col
	rowScale := inst.scale.Row

	// Include costs in the column measure when the smallest nonzero cost
	// is small enough to matter.
	minNzCost := math.Inf(1)
	for _, cost := range lp.ColCost {
		if cost != 0 {
			minNzCost = math.Min(minNzCost, math.Abs(cost))
		}
	}
	includeCost := minNzCost < 0.1

	rowMin := make([]float64, numRow)
	rowMax := make([]float64, numRow)
	for search := 0; search < 6; search++ {
		for i := range rowMin {
			rowMin[i] = math.Inf(1)
			rowMax[i] = 0
		}
		for iCol := 0; iCol < numCol; iCol++ {
			colMin, colMax := math.Inf(1), 0.0
			if myCost := math.Abs(lp.ColCost[iCol]); includeCost && myCost != 0 {
				colMin = math.Min(colMin, myCost)
				colMax = math.Max(colMax, myCost)
			}
			for k := lp.Astart[iCol]; k < lp.Astart[iCol+1]; k++ {
				value := math.Abs(lp.Avalue[k]) * rowScale[lp.Aindex[k]]
				colMin = math.Min(colMin, value)
				colMax = math.Max(colMax, value)
			}
			colScale[iCol] = 1 / math.Sqrt(colMin*colMax)
			for k := lp.Astart[iCol]; k < lp.Astart[iCol+1]; k++ {
				iRow := lp.Aindex[k]
				value := math.Abs(lp.Avalue[k]) * colScale[iCol]
				rowMin[iRow] = math.Min(rowMin[iRow], value)
				rowMax[iRow] = math.Max(rowMax[iRow], value)
			}
		}
		for iRow := 0; iRow < numRow; iRow++ {
			rowScale[iRow] = 1 / math.Sqrt(rowMin[iRow]*rowMax[iRow])
		}
	}

	// Power-of-two rounding keeps the scaled data exactly recoverable.
	for iCol := 0; iCol < numCol; iCol++ {
		colScale[iCol] = roundPow2(colScale[iCol])
	}
	for iRow := 0; iRow < numRow; iRow++ {
		rowScale[iRow] = roundPow2(rowScale[iRow])
	}

	for iCol := 0; iCol < numCol; iCol++ {
		for k := lp.Astart[iCol]; k < lp.Astart[iCol+1]; k++ {
			lp.Avalue[k] *= colScale[iCol] * rowScale[lp.Aindex[k]]
		}
		if lp.ColLower[iCol] > -Inf {
			lp.ColLower[iCol] /= colScale[iCol]
		}
		if lp.ColUpper[iCol] < Inf {
			lp.ColUpper[iCol] /= colScale[iCol]
		}
		lp.ColCost[iCol] *= colScale[iCol]
	}
	for iRow := 0; iRow < numRow; iRow++ {
		if lp.RowLower[iRow] > -Inf {
			lp.RowLower[iRow] *= rowScale[iRow]
		}
		if lp.RowUpper[iRow] < Inf {
			lp.RowUpper[iRow] *= rowScale[iRow]
		}
	}
	inst.status.apply(actionScale)
	inst.scaleCosts()
}

// scaleCosts divides all costs by a power of two near the largest
// nonzero cost when that maximum falls outside [1/16, 16].
func (inst *instance) scaleCosts() {
	lp := inst.lp
	maxNzCost := 0.0
	for _, cost := range lp.ColCost {
		if cost != 0 {
			maxNzCost = math.Max(maxNzCost, math.Abs(cost))
		}
	}
	costScale := 1.0
	if maxNzCost > 0 && (maxNzCost < 1.0/16 || maxNzCost > 16) {
		costScale = math.Min(roundPow2(maxNzCost), maxAllowedScale)
	}
	inst.scale.Cost = costScale
	if costScale == 1 {
		return
	}
	for iCol := range lp.ColCost {
		lp.ColCost[iCol] /= costScale
	}
}

func roundPow2(value float64) float64 {
	return math.Pow(2, math.Floor(math.Log2(value)+0.5))
}

// permuteLP reorders the working LP's columns by the deterministic random
// permutation drawn for this LP, carrying cost, bounds and column scale
// along.
func (inst *instance) permuteLP() {
	if inst.status.permuted {
		return
	}
	lp := inst.lp
	numCol := lp.NumCol
	perm := inst.colPermutation

	saveAstart := append([]int(nil), lp.Astart...)
	saveAindex := append([]int(nil), lp.Aindex...)
	saveAvalue := append([]float64(nil), lp.Avalue...)
	saveColCost := append([]float64(nil), lp.ColCost...)
	saveColLower := append([]float64(nil), lp.ColLower...)
	saveColUpper := append([]float64(nil), lp.ColUpper...)
	saveColScale := append([]float64(nil), inst.scale.Col...)

	countX := 0
	for i := 0; i < numCol; i++ {
		fromCol := perm[i]
		lp.Astart[i] = countX
		for k := saveAstart[fromCol]; k < saveAstart[fromCol+1]; k++ {
			lp.Aindex[countX] = saveAindex[k]
			lp.Avalue[countX] = saveAvalue[k]
			countX++
		}
		lp.ColCost[i] = saveColCost[fromCol]
		lp.ColLower[i] = saveColLower[fromCol]
		lp.ColUpper[i] = saveColUpper[fromCol]
		if len(saveColScale) > 0 {
			inst.scale.Col[i] = saveColScale[fromCol]
		}
	}
	lp.Astart[numCol] = countX
	inst.status.apply(actionPermute)
}

// tightenLP runs up to ten rounds of interval-arithmetic bound
// propagation over the rows, then relaxes any interval the propagation
// collapsed so the simplex is not left running on a knife edge.
func (inst *instance) tightenLP() {
	if inst.status.tightened {
		return
	}
	lp := inst.lp
	numCol := lp.NumCol
	numRow := lp.NumRow

	ARstart, ARindex, ARvalue := transposeMatrix(numCol, numRow, lp.Astart, lp.Aindex, lp.Avalue)

	colLower0 := append([]float64(nil), lp.ColLower...)
	colUpper0 := append([]float64(nil), lp.ColUpper...)

	const bigB = 1e10
	for pass := 0; pass < 10; pass++ {
		numberChanged := 0
		for iRow := 0; iRow < numRow; iRow++ {
			if lp.RowLower[iRow] < -bigB && lp.RowUpper[iRow] > bigB {
				continue
			}

			ninfU, ninfL := 0, 0
			xmaxU, xminL := 0.0, 0.0
			myStart, myEnd := ARstart[iRow], ARstart[iRow+1]
			for k := myStart; k < myEnd; k++ {
				iCol := ARindex[k]
				value := ARvalue[k]
				upper := lp.ColUpper[iCol]
				lower := lp.ColLower[iCol]
				if value < 0 {
					upper, lower = -lp.ColLower[iCol], -lp.ColUpper[iCol]
				}
				value = math.Abs(value)
				if upper < bigB {
					xmaxU += upper * value
				} else {
					ninfU++
				}
				if lower > -bigB {
					xminL += lower * value
				} else {
					ninfL++
				}
			}

			xmaxU += 1e-8 * math.Abs(xmaxU)
			xminL -= 1e-8 * math.Abs(xminL)
			xminLmargin, xmaxUmargin := 0.0, 0.0
			if math.Abs(xminL) > 1e8 {
				xminLmargin = 1e-12 * math.Abs(xminL)
			}
			if math.Abs(xmaxU) > 1e8 {
				xmaxUmargin = 1e-12 * math.Abs(xmaxU)
			}

			compU := xmaxU + float64(ninfU)*1e31
			compL := xminL - float64(ninfL)*1e31
			if compU <= lp.RowUpper[iRow]+1e-7 && compL >= lp.RowLower[iRow]-1e-7 {
				continue
			}

			rowL, rowU := lp.RowLower[iRow], lp.RowUpper[iRow]
			for k := myStart; k < myEnd; k++ {
				value := ARvalue[k]
				iCol := ARindex[k]
				colL, colU := lp.ColLower[iCol], lp.ColUpper[iCol]
				newL, newU := -Inf, Inf

				if value > 0 {
					if rowL > -bigB && ninfU <= 1 && (ninfU == 0 || colU > bigB) {
						newL = (rowL-xmaxU)/value + (1-float64(ninfU))*colU - xmaxUmargin
					}
					if rowU < bigB && ninfL <= 1 && (ninfL == 0 || colL < -bigB) {
						newU = (rowU-xminL)/value + (1-float64(ninfL))*colL + xminLmargin
					}
				} else {
					if rowL > -bigB && ninfU <= 1 && (ninfU == 0 || colL < -bigB) {
						newU = (rowL-xmaxU)/value + (1-float64(ninfU))*colL + xmaxUmargin
					}
					if rowU < bigB && ninfL <= 1 && (ninfL == 0 || colU > bigB) {
						newL = (rowU-xminL)/value + (1-float64(ninfL))*colU - xminLmargin
					}
				}

				if newU < colU-1e-12 && newU < bigB {
					lp.ColUpper[iCol] = math.Max(newU, colL)
					numberChanged++
				}
				if newL > colL+1e-12 && newL > -bigB {
					lp.ColLower[iCol] = math.Min(newL, colU)
					numberChanged++
				}
			}
		}
		if numberChanged == 0 {
			break
		}
	}

	const useTolerance = 1e-3
	relax := 100 * useTolerance
	for iCol := 0; iCol < numCol; iCol++ {
		if colUpper0[iCol] <= colLower0[iCol]+useTolerance {
			continue
		}
		if lp.ColUpper[iCol]-lp.ColLower[iCol] < useTolerance+1e-8 {
			lp.ColLower[iCol] = math.Max(colLower0[iCol], lp.ColLower[iCol]-relax)
			lp.ColUpper[iCol] = math.Min(colUpper0[iCol], lp.ColUpper[iCol]+relax)
		} else {
			if lp.ColUpper[iCol] < colUpper0[iCol] {
				lp.ColUpper[iCol] = math.Min(lp.ColUpper[iCol]+relax, colUpper0[iCol])
			}
			if lp.ColLower[iCol] > colLower0[iCol] {
				lp.ColLower[iCol] = math.Min(lp.ColLower[iCol]-relax, colLower0[iCol])
			}
		}
	}
	inst.status.apply(actionTighten)
}
