// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sparselp solves a linear program given in MPS format with the
// revised dual simplex method.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/curioloop/sparselp/mps"
	"github.com/curioloop/sparselp/simplex"
)

type cliOptions struct {
	strategy       string
	crash          string
	primalTol      float64
	dualTol        float64
	objectiveBound float64
	iterationLimit int
	updateLimit    int
	timeLimit      time.Duration
	perturb        bool
	dantzig        bool
	priceByColumn  bool
	transpose      bool
	scale          bool
	permute        bool
	tighten        bool
	verbose        bool
}

func main() {
	cli := cliOptions{}
	defaults := simplex.DefaultOptions()

	root := &cobra.Command{
		Use:   "sparselp <file.mps>",
		Short: "solve a linear program with the revised dual simplex method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(args[0], &cli)
		},
	}

	var flags *pflag.FlagSet = root.Flags()
	flags.SortFlags = false
	flags.StringVar(&cli.strategy, "strategy", "dual", "simplex strategy (only dual)")
	flags.StringVar(&cli.crash, "crash", "off", "crash basis heuristic (only off)")
	flags.Float64Var(&cli.primalTol, "primal-feasibility-tolerance", defaults.PrimalFeasibilityTolerance, "primal feasibility tolerance")
	flags.Float64Var(&cli.dualTol, "dual-feasibility-tolerance", defaults.DualFeasibilityTolerance, "dual feasibility tolerance")
	flags.Float64Var(&cli.objectiveBound, "dual-objective-bound", defaults.DualObjectiveValueUpperBound, "stop once the dual objective passes this bound")
	flags.IntVar(&cli.iterationLimit, "iteration-limit", defaults.IterationLimit, "pivot limit")
	flags.IntVar(&cli.updateLimit, "update-limit", defaults.UpdateLimit, "factor updates before a rebuild")
	flags.DurationVar(&cli.timeLimit, "time-limit", 0, "wall-clock limit (0 is unlimited)")
	flags.BoolVar(&cli.perturb, "perturb-costs", defaults.PerturbCosts, "perturb costs against degeneracy")
	flags.BoolVar(&cli.dantzig, "dantzig", false, "price rows by raw infeasibility instead of steepest edge")
	flags.BoolVar(&cli.priceByColumn, "price-by-column", false, "use the column-wise PRICE kernel")
	flags.BoolVar(&cli.transpose, "transpose", defaults.TransposeLP, "solve the dual of a tall LP")
	flags.BoolVar(&cli.scale, "scale", defaults.ScaleLP, "equilibrate the LP before solving")
	flags.BoolVar(&cli.permute, "permute", defaults.PermuteLP, "randomly permute the columns")
	flags.BoolVar(&cli.tighten, "tighten", defaults.TightenLP, "propagate bounds before solving")
	flags.BoolVarP(&cli.verbose, "verbose", "v", false, "log solver telemetry")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error :", err)
		os.Exit(1)
	}
}

func run(path string, cli *cliOptions) error {
	lp, err := mps.ReadFile(path)
	if err != nil {
		return err
	}

	opts := simplex.DefaultOptions()
	if cli.strategy != "dual" {
		return fmt.Errorf("unsupported strategy %q", cli.strategy)
	}
	if cli.crash != "off" {
		return fmt.Errorf("unsupported crash strategy %q", cli.crash)
	}
	opts.PrimalFeasibilityTolerance = cli.primalTol
	opts.DualFeasibilityTolerance = cli.dualTol
	opts.DualObjectiveValueUpperBound = cli.objectiveBound
	opts.IterationLimit = cli.iterationLimit
	opts.UpdateLimit = cli.updateLimit
	opts.TimeLimit = cli.timeLimit
	opts.PerturbCosts = cli.perturb
	opts.TransposeLP = cli.transpose
	opts.ScaleLP = cli.scale
	opts.PermuteLP = cli.permute
	opts.TightenLP = cli.tighten
	if cli.dantzig {
		opts.EdgeWeight = simplex.EdgeWeightDantzig
	}
	if cli.priceByColumn {
		opts.Price = simplex.PriceCol
	}
	if cli.verbose {
		log := logrus.New()
		log.SetLevel(logrus.DebugLevel)
		opts.Logger = log
	}

	solver, err := simplex.NewSolver(lp, opts)
	if err != nil {
		return err
	}
	result := solver.Solve()

	fmt.Printf("Run status : %s\n", result.Status)
	switch result.Status {
	case simplex.StatusOptimal:
		fmt.Printf("Iterations : %d\n", result.Iterations)
		fmt.Printf("Objective  : %.10g\n", result.Objective)
	case simplex.StatusInfeasible, simplex.StatusUnbounded:
	default:
		os.Exit(1)
	}
	return nil
}
