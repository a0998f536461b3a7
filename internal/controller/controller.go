// Package controller runs Lyapunov computations in the background and
// streams their progress to a single consumer.
//
// A Controller owns one host goroutine holding the state machine
//
//	idle -> running <-> paused -> completed | aborted | error
//
// and one goroutine per run. The consumer talks to it only through channels:
// Start, Pause, Resume and Abort post commands, Notifications delivers
// progress, chunk, fit, result and error messages. At most one run is
// active; a second Start is answered with an "already running" error and
// leaves the active run untouched.
package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/logging"
	"github.com/san-kum/lyapsim/internal/lyapunov"
)

const DefaultBuffer = 64

type Option func(*Controller)

// WithLogger sets the logger for run lifecycle events. nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBuffer sets the capacity of the notification channel.
func WithBuffer(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.buffer = n
		}
	}
}

type snapshotRequest struct {
	status Status
	reply  chan Snapshot
}

type runExit struct {
	run    uint64
	status Status
	err    error
	state  lyapunov.RunState
	lambda float64
	note   Notification
}

type runHandle struct {
	run    uint64
	cancel context.CancelFunc
	pause  chan bool
	snap   chan snapshotRequest
	// gate is closed once the host has no queued notifications left, so a
	// run never overtakes the terminal notification of the one before it.
	gate chan struct{}
}

type Controller struct {
	log    *slog.Logger
	buffer int

	cmds  chan Command
	snaps chan snapshotRequest
	exits chan runExit
	notes chan Notification

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a controller. Call Close to release it.
func New(opts ...Option) *Controller {
	c := &Controller{
		log:    logging.Discard(),
		buffer: DefaultBuffer,
		cmds:   make(chan Command),
		snaps:  make(chan snapshotRequest),
		exits:  make(chan runExit),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.notes = make(chan Notification, c.buffer)

	go c.host()
	return c
}

// Notifications is closed after Close returns.
func (c *Controller) Notifications() <-chan Notification {
	return c.notes
}

func (c *Controller) Send(cmd Command) error {
	select {
	case c.cmds <- cmd:
		return nil
	case <-c.quit:
		return ErrClosed
	}
}

func (c *Controller) Start(p lyapunov.Params) error {
	return c.Send(Command{Kind: CmdStart, Params: p})
}

func (c *Controller) Pause() error  { return c.Send(Command{Kind: CmdPause}) }
func (c *Controller) Resume() error { return c.Send(Command{Kind: CmdResume}) }
func (c *Controller) Abort() error  { return c.Send(Command{Kind: CmdAbort}) }

// Snapshot asks the goroutine owning the current run for its state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotRequest{reply: make(chan Snapshot, 1)}
	select {
	case c.snaps <- req:
	case <-c.quit:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Close aborts any active run and waits for every goroutine to exit. It is
// safe to call more than once and from any state.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
	return nil
}

// host owns the state machine. Nothing outside this goroutine reads or
// writes its fields. The host never blocks on the consumer: rejections and
// terminal notifications wait in outbox until the notification channel has
// room.
type host struct {
	c      *Controller
	seq    uint64
	status Status
	active *runHandle
	last   lyapunov.RunState
	outbox []Notification
	gate   chan struct{}
}

func (c *Controller) host() {
	h := &host{c: c, status: StatusIdle}
	defer close(c.done)
	defer close(c.notes)

	for {
		var (
			out  chan<- Notification
			next Notification
		)
		if len(h.outbox) > 0 {
			out, next = c.notes, h.outbox[0]
		}

		select {
		case out <- next:
			h.outbox[0] = Notification{}
			h.outbox = h.outbox[1:]
			if len(h.outbox) == 0 {
				h.release()
			}
		case cmd := <-c.cmds:
			h.handle(cmd)
		case req := <-c.snaps:
			h.snapshot(req)
		case ex := <-c.exits:
			h.exited(ex)
		case <-c.quit:
			h.shutdown()
			return
		}
	}
}

func (h *host) handle(cmd Command) {
	log := h.c.log
	switch cmd.Kind {
	case CmdStart:
		if h.status.Active() {
			log.Warn("start rejected", "run", h.active.run)
			h.notify(errorNotification(h.active.run, dynamo.ErrAlreadyRunning))
			return
		}
		h.start(cmd.Params.Sanitize())

	case CmdPause:
		if h.status != StatusRunning {
			return
		}
		h.status = StatusPaused
		setPaused(h.active.pause, true)
		log.Info("run paused", "run", h.active.run)

	case CmdResume:
		if h.status != StatusPaused {
			return
		}
		h.status = StatusRunning
		setPaused(h.active.pause, false)
		log.Info("run resumed", "run", h.active.run)

	case CmdAbort:
		if !h.status.Active() {
			return
		}
		h.active.cancel()
		log.Info("abort requested", "run", h.active.run)
	}
}

func (h *host) start(p lyapunov.Params) {
	h.seq++
	ctx, cancel := context.WithCancel(context.Background())
	run := &runHandle{
		run:    h.seq,
		cancel: cancel,
		pause:  make(chan bool, 1),
		snap:   make(chan snapshotRequest),
		gate:   make(chan struct{}),
	}
	if len(h.outbox) == 0 {
		close(run.gate)
	} else {
		h.gate = run.gate
	}
	h.active = run
	h.status = StatusRunning
	h.last = lyapunov.RunState{}

	h.c.log.Info("run started",
		"run", run.run,
		"system", p.System,
		"steps", p.TotalWork(),
		"delta0", p.Delta0,
	)

	r := newRunner(ctx, h.c, run, p)
	go r.execute()
}

// setPaused replaces any undelivered pause state. The host is the only
// sender, so after draining the send never blocks.
func setPaused(ch chan bool, paused bool) {
	select {
	case <-ch:
	default:
	}
	ch <- paused
}

func (h *host) snapshot(req snapshotRequest) {
	if h.active == nil {
		req.reply <- Snapshot{Run: h.seq, Status: h.status, RunState: h.last}
		return
	}
	req.status = h.status
	select {
	case h.active.snap <- req:
	case ex := <-h.c.exits:
		h.exited(ex)
		req.reply <- Snapshot{Run: h.seq, Status: h.status, RunState: h.last}
	}
}

func (h *host) exited(ex runExit) {
	if h.active == nil || ex.run != h.active.run {
		return
	}
	h.active.cancel()
	h.active = nil
	h.status = ex.status
	h.last = ex.state
	h.notify(ex.note)

	log := h.c.log.With("run", ex.run, "steps", ex.state.StepIndex, "events", ex.state.RenormEvents)
	switch ex.status {
	case StatusCompleted:
		log.Info("run completed", "lambda", ex.lambda)
	case StatusAborted:
		log.Info("run aborted")
	default:
		log.Warn("run failed", "class", Classify(ex.err), "err", ex.err)
	}
}

// notify queues n behind anything the host has not delivered yet.
func (h *host) notify(n Notification) {
	h.outbox = append(h.outbox, n)
}

// release lets a run waiting on earlier notifications start emitting.
func (h *host) release() {
	if h.gate != nil {
		close(h.gate)
		h.gate = nil
	}
}

// shutdown drops whatever is still queued.
func (h *host) shutdown() {
	if h.active != nil {
		h.active.cancel()
		for h.active != nil {
			h.exited(<-h.c.exits)
		}
	}
	h.outbox = nil
}
