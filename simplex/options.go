// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simplex

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Strategy selects the simplex variant. Only the dual simplex is
// implemented; the option exists so a caller can state the intent.
type Strategy int

const (
	// StrategyDual is the revised dual simplex method.
	StrategyDual Strategy = iota
)

// CrashStrategy selects the initial-basis heuristic. The solver itself
// implements none: a crash basis comes from outside through
// SolveFromBasis.
type CrashStrategy int

const (
	// CrashOff starts from the all-logicals basis unless one is supplied.
	CrashOff CrashStrategy = iota
)

// EdgeWeightStrategy selects the row pricing rule.
type EdgeWeightStrategy int

const (
	// EdgeWeightSteepest uses dual steepest-edge reference weights.
	EdgeWeightSteepest EdgeWeightStrategy = iota
	// EdgeWeightDantzig prices rows by raw infeasibility.
	EdgeWeightDantzig
)

// PriceStrategy selects how Aᵀρ is formed each iteration.
type PriceStrategy int

const (
	// PriceRow multiplies only the nonbasic half of each row.
	PriceRow PriceStrategy = iota
	// PriceCol scans every structural column.
	PriceCol
)

// Options configures a solve. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	Strategy   Strategy
	Crash      CrashStrategy
	EdgeWeight EdgeWeightStrategy
	Price      PriceStrategy

	// PrimalFeasibilityTolerance is τ_p, the largest bound violation a
	// basic value may carry while still counting as feasible.
	PrimalFeasibilityTolerance float64
	// DualFeasibilityTolerance is τ_d, its dual counterpart.
	DualFeasibilityTolerance float64
	// DualObjectiveValueUpperBound ends the solve early once the dual
	// objective passes it.
	DualObjectiveValueUpperBound float64

	// PerturbCosts enables the random cost perturbation that guards the
	// dual iteration against degeneracy.
	PerturbCosts bool

	IterationLimit int
	// UpdateLimit caps the product-form chain length before a
	// refactorization is forced.
	UpdateLimit int
	TimeLimit   time.Duration

	// Preparation passes, applied in this order when enabled.
	TransposeLP bool
	ScaleLP     bool
	PermuteLP   bool
	TightenLP   bool

	// Logger receives rebuild and termination telemetry. Nil is silent.
	Logger logrus.FieldLogger
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		Strategy:                     StrategyDual,
		Crash:                        CrashOff,
		EdgeWeight:                   EdgeWeightSteepest,
		Price:                        PriceRow,
		PrimalFeasibilityTolerance:   1e-7,
		DualFeasibilityTolerance:     1e-7,
		DualObjectiveValueUpperBound: math.Inf(1),
		PerturbCosts:                 true,
		IterationLimit:               math.MaxInt32,
		UpdateLimit:                  5000,
		TimeLimit:                    0, // no limit
		TransposeLP:                  false,
		ScaleLP:                      true,
		PermuteLP:                    false,
		TightenLP:                    false,
	}
}

func (o *Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	silent := logrus.New()
	silent.SetOutput(discard{})
	silent.SetLevel(logrus.PanicLevel)
	return silent
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
