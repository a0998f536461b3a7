package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/san-kum/lyapsim/internal/config"
	"github.com/san-kum/lyapsim/internal/logging"
	"github.com/san-kum/lyapsim/internal/storage"
)

var (
	dataDir   string
	storeKind string
	logLevel  string
)

// main registers the commands and executes the root command. It exits with
// status 1 if the command returns an error.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "lyapsim",
		Short:        "maximal Lyapunov exponents of the logistic map and the driven pendulum",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".lyapsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", storage.KindFile, "run store: file or sqlite")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	runCmd := &cobra.Command{
		Use:   "run [logistic|pendulum]",
		Short: "estimate the exponent and save the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEstimate,
	}
	addParamFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the run")

	liveCmd := &cobra.Command{
		Use:   "live [logistic|pendulum]",
		Short: "estimate the exponent with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addParamFlags(liveCmd)
	liveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "exponent of the logistic map over a range of r",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addParamFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweepMin, "r-min", 2.8, "first r")
	sweepCmd.Flags().Float64Var(&sweepMax, "r-max", 4.0, "last r")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 120, "number of r values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel estimates (0 = GOMAXPROCS)")
	sweepCmd.Flags().BoolVar(&asTable, "table", false, "print a table instead of a plot")

	bifCmd := &cobra.Command{
		Use:   "bifurcation",
		Short: "bifurcation diagram of the logistic map",
		Args:  cobra.NoArgs,
		RunE:  runBifurcation,
	}
	bifCmd.Flags().Float64Var(&sweepMin, "r-min", 2.8, "first r")
	bifCmd.Flags().Float64Var(&sweepMax, "r-max", 4.0, "last r")
	bifCmd.Flags().IntVar(&bifPoints, "points", 160, "number of r values")
	bifCmd.Flags().IntVar(&plotHeight, "height", 30, "rows")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "summarize and plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "plot ln d(t) and the fit of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets for a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Fprintf(out, "no presets for system: %s\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, sweepCmd, bifCmd, listCmd, showCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd)
	return rootCmd
}

func newLogger() *slog.Logger {
	return logging.New(os.Stderr, logLevel, isatty.IsTerminal(os.Stderr.Fd()))
}

func openStore() (storage.Store, error) {
	return storage.Open(storeKind, dataDir)
}
