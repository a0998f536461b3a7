// Package consumer turns the controller's notification stream into the
// state a view needs: the accumulated series, a throttled batch of new
// points to draw, progress with an ETA, and the final verdict.
package consumer

import (
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/san-kum/lyapsim/internal/controller"
	"github.com/san-kum/lyapsim/internal/lyapunov"
)

// RedrawInterval is the minimum spacing between two throttled drains.
const RedrawInterval = 150 * time.Millisecond

type Option func(*Adapter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

func WithRedrawInterval(d time.Duration) Option {
	return func(a *Adapter) { a.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// Adapter is not safe for concurrent use; feed it from the goroutine that
// reads the notification channel.
type Adapter struct {
	now     func() time.Time
	limiter *rate.Limiter

	run     uint64
	status  controller.Status
	started time.Time

	pending []lyapunov.Sample
	series  lyapunov.Series

	done  int
	total int

	result   *lyapunov.Result
	fit      *lyapunov.FitResult
	errMsg   string
	errClass controller.ErrorClass
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		now:     time.Now,
		limiter: rate.NewLimiter(rate.Every(RedrawInterval), 1),
		status:  controller.StatusIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Begin clears everything from a previous run. Notifications for other runs
// are ignored until the next Begin.
func (a *Adapter) Begin(run uint64) {
	a.run = run
	a.status = controller.StatusRunning
	a.started = a.now()
	a.pending = a.pending[:0]
	a.series = lyapunov.Series{}
	a.done, a.total = 0, 0
	a.result, a.fit = nil, nil
	a.errMsg, a.errClass = "", controller.ClassNone
}

// Handle folds one notification into the adapter. It reports whether the
// notification ended the run.
func (a *Adapter) Handle(n controller.Notification) bool {
	if n.Run != a.run {
		return false
	}
	switch n.Kind {
	case controller.KindProgress:
		a.done, a.total = n.Done, n.Total
	case controller.KindChunk:
		a.pending = append(a.pending, n.Points...)
		a.series.Append(n.Points...)
	case controller.KindFit:
		fit := n.Fit
		a.fit = &fit
	case controller.KindResult:
		res := n.Result
		a.result = &res
		if a.total > 0 {
			a.done = a.total
		}
		a.status = controller.StatusCompleted
	case controller.KindError:
		if n.Class == controller.ClassAlreadyRunning {
			a.errMsg = n.Message
			return false
		}
		a.errMsg, a.errClass = n.Message, n.Class
		if n.Class == controller.ClassAborted {
			a.status = controller.StatusAborted
		} else {
			a.status = controller.StatusFailed
		}
	}
	return n.Terminal()
}

func (a *Adapter) SetPaused(paused bool) {
	switch {
	case paused && a.status == controller.StatusRunning:
		a.status = controller.StatusPaused
	case !paused && a.status == controller.StatusPaused:
		a.status = controller.StatusRunning
	}
}

// Drain returns the points received since the last drain, at most once per
// redraw interval. Once the run has ended it always returns what is left.
func (a *Adapter) Drain() []lyapunov.Sample {
	if len(a.pending) == 0 {
		return nil
	}
	if !a.status.Terminal() && !a.limiter.AllowN(a.now(), 1) {
		return nil
	}
	out := make([]lyapunov.Sample, len(a.pending))
	copy(out, a.pending)
	a.pending = a.pending[:0]
	return out
}

func (a *Adapter) Run() uint64               { return a.run }
func (a *Adapter) Status() controller.Status { return a.status }
func (a *Adapter) Series() lyapunov.Series   { return a.series }
func (a *Adapter) Fit() (lyapunov.FitResult, bool) {
	if a.fit == nil {
		return lyapunov.FitResult{}, false
	}
	return *a.fit, true
}

func (a *Adapter) Result() (lyapunov.Result, bool) {
	if a.result == nil {
		return lyapunov.Result{}, false
	}
	return *a.result, true
}

// Err returns the message and class of the last error notification.
func (a *Adapter) Err() (string, controller.ErrorClass) {
	return a.errMsg, a.errClass
}

// Progress is the completed fraction in [0, 1].
func (a *Adapter) Progress() float64 {
	if a.total <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, float64(a.done)/float64(a.total)))
}

// ETA extrapolates the remaining time from the elapsed time and progress.
// ok is false before any progress and after the run is complete.
func (a *Adapter) ETA() (time.Duration, bool) {
	f := a.Progress()
	if a.started.IsZero() || f <= 0 || f >= 1 {
		return 0, false
	}
	elapsed := a.now().Sub(a.started)
	return time.Duration(float64(elapsed) * (1/f - 1)), true
}

// FinalLambda prefers the renormalization estimate, then the fitted slope.
// It is NaN when neither is available.
func (a *Adapter) FinalLambda() float64 {
	if a.result != nil && !math.IsNaN(a.result.Lambda) && !math.IsInf(a.result.Lambda, 0) {
		return a.result.Lambda
	}
	if a.fit != nil && !math.IsNaN(a.fit.Slope) && !math.IsInf(a.fit.Slope, 0) {
		return a.fit.Slope
	}
	return math.NaN()
}

// LastRunningLambda is the most recent finite running estimate in the series.
func (a *Adapter) LastRunningLambda() (float64, bool) {
	rl := a.series.RunningLambda
	for i := len(rl) - 1; i >= 0; i-- {
		if !math.IsNaN(rl[i]) {
			return rl[i], true
		}
	}
	return 0, false
}

// Interpret labels an exponent.
func Interpret(lambda float64) string {
	switch {
	case math.IsNaN(lambda) || math.IsInf(lambda, 0):
		return "no usable estimate"
	case lambda > 0.05:
		return "strongly chaotic"
	case lambda > 0:
		return "chaotic"
	case lambda < -0.05:
		return "stable (convergent)"
	case lambda < 0:
		return "asymptotically stable"
	}
	return "marginal / quasi-periodic"
}
