package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/lyapsim/internal/analysis"
	"github.com/san-kum/lyapsim/internal/consumer"
	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/physics"
)

var (
	sweepMin, sweepMax float64
	sweepPoints        int
	bifPoints          int
	workers            int
	asTable            bool
	plotHeight         int
)

func runSweep(cmd *cobra.Command, args []string) error {
	p, err := resolveParams(cmd, []string{"logistic"})
	if err != nil {
		return err
	}

	log := newLogger()
	log.Info("sweep started", "r_min", sweepMin, "r_max", sweepMax, "points", sweepPoints, "workers", workers)

	pts, err := analysis.Sweep(cmd.Context(), p, analysis.Range(sweepMin, sweepMax, sweepPoints), workers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !asTable {
		fmt.Fprint(out, analysis.SweepToASCII(pts, 80, 15))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "R\tLAMBDA\tRENORMS\tREGIME")
	for _, pt := range pts {
		fmt.Fprintf(w, "%.6f\t%s\t%d\t%s\n", pt.R, formatLambda(pt.Lambda), pt.RenormEvents, consumer.Interpret(pt.Lambda))
	}
	return w.Flush()
}

func runBifurcation(cmd *cobra.Command, args []string) error {
	opts := analysis.DefaultLogisticBifurcation()
	opts.Min, opts.Max, opts.Steps = sweepMin, sweepMax, bifPoints

	data, err := analysis.BifurcationDiagram(physics.NewLogisticMap(sweepMin), dynamo.State{0.2}, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "logistic map, r in [%g, %g]\n", opts.Min, opts.Max)
	fmt.Fprint(out, analysis.BifurcationToASCII(data, 80, plotHeight))
	return nil
}
