package main

import (
	"errors"
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/lyapsim/internal/consumer"
	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/export"
	"github.com/san-kum/lyapsim/internal/physics"
	"github.com/san-kum/lyapsim/internal/storage"
)

var svgWidth, svgHeight int

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tTIME\tSTATUS\tLAMBDA\tRENORMS\tSAMPLES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			run.ID,
			run.System,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Status,
			formatLambda(run.LambdaOrNaN()),
			run.RenormEvents,
			run.Samples,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(cmd.Context(), runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := meta.Params
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "system: %s\n", meta.System)
	switch meta.System {
	case "pendulum":
		fmt.Fprintf(out, "params: g=%g l=%g gamma=%g F=%g Omega=%g theta0=%g omega0=%g dt=%g\n",
			p.Gravity, p.Length, p.Damping, p.DriveAmplitude, p.DriveFrequency, p.Theta0, p.Omega0, p.Dt)
		fmt.Fprintf(out, "renormalize every %g time units\n", p.RenormInterval)
		sys := &physics.DrivenPendulum{Gravity: p.Gravity, Length: p.Length}
		fmt.Fprintf(out, "initial energy per unit mass: %.6g\n", sys.Energy(dynamo.State{p.Theta0, p.Omega0}))
	default:
		fmt.Fprintf(out, "params: r=%g x0=%g\n", p.R, p.X0)
		fmt.Fprintf(out, "renormalize every %d steps\n", p.RenormSteps)
	}
	fmt.Fprintf(out, "delta0: %g, steps: %d (+%d transient)\n", p.Delta0, p.TotalSteps, p.Transient)
	fmt.Fprintf(out, "lambda: %s (%s)\n", formatLambda(meta.LambdaOrNaN()), consumer.Interpret(meta.LambdaOrNaN()))
	if meta.Fit != nil {
		fmt.Fprintf(out, "fit: slope %.6f, R² %.4f\n", meta.Fit.Slope, meta.Fit.RSquared)
	}
	fmt.Fprintf(out, "samples: %d\n\n", series.Len())

	if series.Len() < 2 {
		return nil
	}
	fmt.Fprintln(out, asciigraph.Plot(series.LnDistances,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("ln d(t)"),
	))
	fmt.Fprintln(out)

	finite := make([]float64, 0, series.Len())
	for _, l := range series.RunningLambda {
		if !math.IsNaN(l) {
			finite = append(finite, l)
		}
	}
	if len(finite) > 1 {
		fmt.Fprintln(out, asciigraph.Plot(finite,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("running lambda"),
		))
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	series, err := st.LoadSeries(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if series.Len() == 0 {
		return errors.New("no data to export")
	}
	return storage.WriteCSV(cmd.OutOrStdout(), series)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(cmd.Context(), runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(cmd.Context(), runID)
	if err != nil {
		return err
	}
	return storage.WriteJSON(cmd.OutOrStdout(), *meta, series)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(cmd.Context(), runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(cmd.Context(), runID)
	if err != nil {
		return err
	}

	svg := export.SeriesToSVG(series, meta.Fit, svgWidth, svgHeight)
	if svg == "" {
		return errors.New("no data to plot")
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), svg)
	return err
}
