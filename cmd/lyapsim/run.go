package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/lyapsim/internal/config"
	"github.com/san-kum/lyapsim/internal/consumer"
	"github.com/san-kum/lyapsim/internal/controller"
	"github.com/san-kum/lyapsim/internal/lyapunov"
	"github.com/san-kum/lyapsim/internal/storage"
	"github.com/san-kum/lyapsim/internal/tui"
)

var (
	configFile string
	preset     string
	noSave     bool

	r, x0                    float64
	gravity, length, damping float64
	drive, driveFreq         float64
	theta0, omega0, dt       float64
	delta0, renormInterval   float64
	steps, transient         int
	renormSteps, sampleEvery int
	chunkSize                int
)

// addParamFlags registers the run parameters. A flag only applies when set;
// otherwise the value comes from the config file, the preset or the system
// defaults, in that order.
func addParamFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")

	f.Float64Var(&r, "r", 0, "logistic parameter r")
	f.Float64Var(&x0, "x0", 0, "logistic initial value")

	f.Float64Var(&gravity, "gravity", 0, "pendulum gravity g")
	f.Float64Var(&length, "length", 0, "pendulum length l")
	f.Float64Var(&damping, "damping", 0, "pendulum damping")
	f.Float64Var(&drive, "drive", 0, "pendulum drive amplitude")
	f.Float64Var(&driveFreq, "drive-freq", 0, "pendulum drive angular frequency")
	f.Float64Var(&theta0, "theta", 0, "pendulum initial angle")
	f.Float64Var(&omega0, "omega", 0, "pendulum initial angular velocity")
	f.Float64Var(&dt, "dt", 0, "pendulum timestep")
	f.Float64Var(&renormInterval, "renorm-interval", 0, "pendulum renormalization interval (time)")

	f.Float64Var(&delta0, "delta0", 0, "initial separation")
	f.IntVar(&steps, "steps", 0, "steps after the transient")
	f.IntVar(&transient, "transient", 0, "transient steps")
	f.IntVar(&renormSteps, "renorm-steps", 0, "logistic renormalization period (steps)")
	f.IntVar(&sampleEvery, "sample-every", 0, "sampling stride")
	f.IntVar(&chunkSize, "chunk", 0, "points per chunk notification")
}

// resolveParams layers, lowest first: system defaults, preset, config file
// and environment, flags. A system argument overrides the config file.
func resolveParams(cmd *cobra.Command, args []string) (lyapunov.Params, error) {
	base := config.DefaultConfig()
	if len(args) > 0 {
		sys, err := lyapunov.ParseSystem(args[0])
		if err != nil {
			return lyapunov.Params{}, err
		}
		base = config.FromParams(defaultParams(sys))
	}

	if preset != "" {
		cfg := config.GetPreset(base.System, preset)
		if cfg == nil {
			return lyapunov.Params{}, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(base.System))
		}
		base = cfg
	}

	cfg, err := config.LoadOver(configFile, base)
	if err != nil {
		return lyapunov.Params{}, fmt.Errorf("failed to load config: %w", err)
	}
	if len(args) > 0 {
		cfg.System = base.System
	}

	applyFlags(cmd, cfg)
	return cfg.Params()
}

func defaultParams(sys lyapunov.System) lyapunov.Params {
	if sys == lyapunov.SystemPendulum {
		return lyapunov.DefaultPendulumParams()
	}
	return lyapunov.DefaultLogisticParams()
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	setF := func(name string, dst *float64, v float64) {
		if changed(name) {
			*dst = v
		}
	}
	setI := func(name string, dst *int, v int) {
		if changed(name) {
			*dst = v
		}
	}

	setF("r", &cfg.Logistic.R, r)
	setF("x0", &cfg.Logistic.X0, x0)

	setF("gravity", &cfg.Pendulum.Gravity, gravity)
	setF("length", &cfg.Pendulum.Length, length)
	setF("damping", &cfg.Pendulum.Damping, damping)
	setF("drive", &cfg.Pendulum.DriveAmplitude, drive)
	setF("drive-freq", &cfg.Pendulum.DriveFrequency, driveFreq)
	setF("theta", &cfg.Pendulum.Theta0, theta0)
	setF("omega", &cfg.Pendulum.Omega0, omega0)
	setF("dt", &cfg.Pendulum.Dt, dt)

	setF("delta0", &cfg.Run.Delta0, delta0)
	setF("renorm-interval", &cfg.Run.RenormInterval, renormInterval)
	setI("steps", &cfg.Run.TotalSteps, steps)
	setI("transient", &cfg.Run.Transient, transient)
	setI("renorm-steps", &cfg.Run.RenormSteps, renormSteps)
	setI("sample-every", &cfg.Run.SampleEvery, sampleEvery)
	setI("chunk", &cfg.Run.ChunkSize, chunkSize)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	p, err := resolveParams(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ctrl := controller.New(controller.WithLogger(newLogger()))
	defer ctrl.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "running %s: %d steps (%d transient), delta0=%g\n",
		p.System, p.TotalWork(), p.Transient, p.Delta0)

	start := time.Now()
	a := consumer.New()
	if err := execute(ctx, ctrl, a, p, cmd.ErrOrStderr()); err != nil {
		return err
	}
	elapsed := time.Since(start)

	summarize(out, a, elapsed)
	return finishRun(cmd.Context(), out, a, p)
}

// execute starts p as the controller's first run and feeds its
// notifications to a until the run ends. Ending ctx aborts the run.
func execute(ctx context.Context, ctrl *controller.Controller, a *consumer.Adapter, p lyapunov.Params, progress io.Writer) error {
	a.Begin(1)
	if err := ctrl.Start(p); err != nil {
		return err
	}

	notes := ctrl.Notifications()
	done := ctx.Done()
	for {
		select {
		case <-done:
			if err := ctrl.Abort(); err != nil {
				return err
			}
			done = nil
		case n, ok := <-notes:
			if !ok {
				return controller.ErrClosed
			}
			terminal := a.Handle(n)
			if len(a.Drain()) > 0 || terminal {
				printProgress(progress, a)
			}
			if terminal {
				fmt.Fprintln(progress)
				return nil
			}
		}
	}
}

func printProgress(w io.Writer, a *consumer.Adapter) {
	line := fmt.Sprintf("\r%5.1f%%  samples %d", 100*a.Progress(), a.Series().Len())
	if l, ok := a.LastRunningLambda(); ok {
		line += fmt.Sprintf("  λ≈%.5f", l)
	}
	if eta, ok := a.ETA(); ok {
		line += fmt.Sprintf("  eta %s", eta.Round(100*time.Millisecond))
	}
	fmt.Fprint(w, line+"   ")
}

func summarize(w io.Writer, a *consumer.Adapter, elapsed time.Duration) {
	fmt.Fprintf(w, "status: %s\n", a.Status())
	if msg, class := a.Err(); msg != "" {
		fmt.Fprintf(w, "error: %s (%s)\n", msg, class)
	}
	if res, ok := a.Result(); ok {
		if elapsed > 0 {
			fmt.Fprintf(w, "completed in %v\n", elapsed.Round(time.Millisecond))
		}
		fmt.Fprintf(w, "lambda: %s\n", formatLambda(res.Lambda))
		fmt.Fprintf(w, "renormalizations: %d\n", res.RenormEvents)
		fmt.Fprintf(w, "samples: %d\n", res.Series.Len())
	}
	if fit, ok := a.Fit(); ok {
		fmt.Fprintf(w, "fit: slope %.6f, intercept %.4f, R² %.4f over t in [%g, %g]\n",
			fit.Slope, fit.Intercept, fit.RSquared, fit.Window[0], fit.Window[1])
	}
	fmt.Fprintf(w, "interpretation: %s\n", consumer.Interpret(a.FinalLambda()))
}

// finishRun saves a completed run and reports failures as errors. An aborted
// run is not an error.
func finishRun(ctx context.Context, out io.Writer, a *consumer.Adapter, p lyapunov.Params) error {
	switch a.Status() {
	case controller.StatusAborted:
		return nil
	case controller.StatusFailed:
		msg, _ := a.Err()
		return errors.New(msg)
	case controller.StatusCompleted:
	default:
		return fmt.Errorf("run ended in state %s", a.Status())
	}
	if noSave {
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec := storage.Record{Params: p, Status: a.Status().String()}
	rec.Result, _ = a.Result()
	if fit, ok := a.Fit(); ok {
		rec.Fit = &fit
	}
	id, err := st.Save(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run id: %s\n", id)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	p, err := resolveParams(cmd, args)
	if err != nil {
		return err
	}

	// the view owns the terminal, so log records are dropped
	ctrl := controller.New()
	defer ctrl.Close()

	m, err := tui.Run(cmd.Context(), ctrl, ctrl.Notifications(), p)
	if err != nil {
		return err
	}
	a := m.Adapter()
	if a == nil || a.Status().Active() {
		// quit before the run ended
		return nil
	}
	out := cmd.OutOrStdout()
	summarize(out, a, 0)
	return finishRun(cmd.Context(), out, a, m.Params())
}

func formatLambda(l float64) string {
	if math.IsNaN(l) {
		return "n/a"
	}
	return fmt.Sprintf("%.6f", l)
}
