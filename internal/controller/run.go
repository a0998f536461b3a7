package controller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/lyapunov"
)

// yieldMask gives other goroutines a turn every 256 steps.
const yieldMask = 0xff

// runner executes one run. Everything it touches is owned by its goroutine;
// the host reaches it only through the handle channels.
type runner struct {
	ctx    context.Context
	c      *Controller
	handle *runHandle
	log    *slog.Logger

	tracker *lyapunov.Tracker
	chunk   []lyapunov.Sample
	series  lyapunov.Series
	paused  bool
}

func newRunner(ctx context.Context, c *Controller, h *runHandle, p lyapunov.Params) *runner {
	return &runner{
		ctx:     ctx,
		c:       c,
		handle:  h,
		log:     c.log.With("run", h.run),
		tracker: lyapunov.NewTracker(p),
		chunk:   make([]lyapunov.Sample, 0, p.ChunkSize),
	}
}

// execute hands the exit and its terminal notification to the host, which
// updates the state before the consumer sees the notification. A Start
// issued in reaction to it is therefore accepted.
func (r *runner) execute() {
	r.wait()
	status, err := r.safeLoop()

	ex := runExit{
		run:    r.handle.run,
		status: status,
		err:    err,
		state:  r.tracker.State(),
		lambda: r.tracker.Lambda(),
	}
	if err != nil {
		ex.note = errorNotification(r.handle.run, err)
	} else {
		ex.note = Notification{
			Kind: KindResult,
			Run:  r.handle.run,
			Result: lyapunov.Result{
				Lambda:       ex.lambda,
				RenormEvents: ex.state.RenormEvents,
				Series:       r.series,
			},
		}
	}
	r.finish(ex)
}

// wait holds the run until the host has delivered what it queued for
// earlier runs. An abort falls through to the first checkpoint.
func (r *runner) wait() {
	for {
		select {
		case <-r.handle.gate:
			return
		case <-r.ctx.Done():
			return
		case req := <-r.handle.snap:
			r.answer(req)
		}
	}
}

func (r *runner) safeLoop() (status Status, err error) {
	defer func() {
		if v := recover(); v != nil {
			status, err = StatusFailed, fmt.Errorf("%w: %v", ErrInternal, v)
		}
	}()
	status, err = r.loop()
	return
}

func (r *runner) loop() (Status, error) {
	p := r.tracker.Params()
	total := r.tracker.Total()

	for step := 0; step < total; step++ {
		if err := r.checkpoint(); err != nil {
			return StatusAborted, err
		}

		obs, err := r.tracker.Step()
		if err != nil {
			return StatusFailed, err
		}

		if obs.Sampled {
			r.chunk = append(r.chunk, obs.Sample)
			r.series.Append(obs.Sample)
			if len(r.chunk) == cap(r.chunk) {
				if err := r.flush(); err != nil {
					return StatusAborted, err
				}
			}
		}

		if (step+1)%p.ChunkSize == 0 || step == total-1 {
			if err := r.emit(Notification{Kind: KindProgress, Done: step + 1, Total: total}); err != nil {
				return StatusAborted, err
			}
		}

		if step&yieldMask == 0 {
			runtime.Gosched()
		}
	}

	if err := r.flush(); err != nil {
		return StatusAborted, err
	}
	if fit, ok := r.series.Fit(); ok {
		if err := r.emit(Notification{Kind: KindFit, Fit: fit}); err != nil {
			return StatusAborted, err
		}
	}
	if err := r.checkpoint(); err != nil {
		return StatusAborted, err
	}
	return StatusCompleted, nil
}

// checkpoint observes pause, resume, snapshot and abort requests. While
// paused it blocks until resumed or aborted.
func (r *runner) checkpoint() error {
	for {
		if r.ctx.Err() != nil {
			return dynamo.ErrAborted
		}
		if r.paused {
			select {
			case p := <-r.handle.pause:
				r.paused = p
			case req := <-r.handle.snap:
				r.answer(req)
			case <-r.ctx.Done():
			}
			continue
		}
		select {
		case p := <-r.handle.pause:
			r.paused = p
		case req := <-r.handle.snap:
			r.answer(req)
		default:
			return nil
		}
	}
}

func (r *runner) flush() error {
	if len(r.chunk) == 0 {
		return nil
	}
	points := make([]lyapunov.Sample, len(r.chunk))
	copy(points, r.chunk)
	r.chunk = r.chunk[:0]

	r.log.Debug("chunk", "points", len(points), "t_last", points[len(points)-1].T)
	return r.emit(Notification{Kind: KindChunk, Points: points})
}

// emit delivers a non-terminal notification unless the run is aborted first.
func (r *runner) emit(n Notification) error {
	n.Run = r.handle.run
	for {
		select {
		case r.c.notes <- n:
			return nil
		case req := <-r.handle.snap:
			r.answer(req)
		case <-r.ctx.Done():
			return dynamo.ErrAborted
		}
	}
}

func (r *runner) finish(ex runExit) {
	for {
		select {
		case r.c.exits <- ex:
			return
		case req := <-r.handle.snap:
			r.answer(req)
		}
	}
}

func (r *runner) answer(req snapshotRequest) {
	req.reply <- Snapshot{
		Run:      r.handle.run,
		Status:   req.status,
		RunState: r.tracker.State(),
	}
}
