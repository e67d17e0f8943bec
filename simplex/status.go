// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

// Inf is the bound sentinel: any |value| at or beyond it is unbounded.
const Inf = 1e30

const (
	// tiny is the magnitude below which a computed entry is treated as zero.
	tiny = 1e-14
	// zeroEntry replaces cancelled entries so their index slot stays listed
	// without contributing to later arithmetic.
	zeroEntry = 1e-50
)

// Status is the terminal state of a solve.
type Status int

const (
	// StatusOptimal means an optimal basis was found.
	StatusOptimal Status = iota
	// StatusInfeasible means the problem has no feasible point.
	StatusInfeasible
	// StatusUnbounded means the objective is unbounded below (in the
	// minimization sense).
	StatusUnbounded
	// StatusReachedDualObjectiveBound means the dual objective passed the
	// configured upper bound before optimality.
	StatusReachedDualObjectiveBound
	// StatusOutOfTime means the wall-clock limit was hit.
	StatusOutOfTime
	// StatusReachedIterationLimit means the pivot cap was hit.
	StatusReachedIterationLimit
	// StatusSingular means the basis matrix could not be repaired after
	// repeated rank deficiency or pivot failure.
	StatusSingular
	// StatusFailed covers everything else, with the current basis preserved.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	case StatusReachedDualObjectiveBound:
		return "ReachedDualObjectiveBound"
	case StatusOutOfTime:
		return "OutOfTime"
	case StatusReachedIterationLimit:
		return "ReachedIterationLimit"
	case StatusSingular:
		return "Singular"
	case StatusFailed:
		return "Failed"
	}
	return "Unknown"
}

// invertHint asks the outer loop for a refactorization (or stronger).
type invertHint int

const (
	invertHintNone invertHint = iota
	invertHintUpdateLimitReached
	invertHintPossiblySingularBasis
	invertHintPossiblyDualUnbounded
	invertHintChooseColumnFail
)

// Nonbasic flag and move values, per the basis conventions: a nonbasic
// variable sits at one of its bounds (or zero when free) and may move up
// from the lower bound (+1), down from the upper bound (-1), or not at
// all (0, fixed or free).
const (
	nonbasicFlagTrue  int8 = 1
	nonbasicFlagFalse int8 = 0

	moveUp   int8 = 1
	moveDown int8 = -1
	moveZero int8 = 0
)
