package controller

import (
	"context"
	"errors"

	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/lyapunov"
)

var (
	ErrClosed   = errors.New("controller: closed")
	ErrInternal = errors.New("controller: internal error")
)

// AbortMessage is the text of the error notification that ends an aborted run.
const AbortMessage = "computation aborted"

type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusCompleted
	StatusAborted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	case StatusFailed:
		return "error"
	}
	return "unknown"
}

// Active reports whether a run is in progress.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted || s == StatusFailed
}

type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdPause
	CmdResume
	CmdAbort
)

func (k CommandKind) String() string {
	switch k {
	case CmdStart:
		return "start"
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdAbort:
		return "abort"
	}
	return "unknown"
}

// Command is a request from the consumer. Params is only read for CmdStart.
type Command struct {
	Kind   CommandKind
	Params lyapunov.Params
}

type Kind int

const (
	KindProgress Kind = iota
	KindChunk
	KindFit
	KindResult
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindChunk:
		return "chunk"
	case KindFit:
		return "fit"
	case KindResult:
		return "result"
	case KindError:
		return "error"
	}
	return "unknown"
}

type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassAborted
	ClassNumericOverflow
	ClassAlreadyRunning
	ClassInternal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassAborted:
		return "aborted"
	case ClassNumericOverflow:
		return "numeric overflow"
	case ClassAlreadyRunning:
		return "already running"
	case ClassInternal:
		return "internal"
	}
	return "unknown"
}

// Classify maps an error to the class carried by error notifications.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, dynamo.ErrAborted), errors.Is(err, context.Canceled):
		return ClassAborted
	case errors.Is(err, dynamo.ErrNumericOverflow):
		return ClassNumericOverflow
	case errors.Is(err, dynamo.ErrAlreadyRunning):
		return ClassAlreadyRunning
	}
	return ClassInternal
}

// Notification is a message from a run to the consumer, discriminated by
// Kind. Payload fields not belonging to Kind are zero. Payloads are never
// mutated after sending.
type Notification struct {
	Kind Kind
	Run  uint64

	// progress
	Done  int
	Total int

	// chunk
	Points []lyapunov.Sample

	// fit
	Fit lyapunov.FitResult

	// result
	Result lyapunov.Result

	// error
	Message string
	Class   ErrorClass
	Err     error
}

// Terminal reports whether no further notification follows for the same run.
// A rejected start is an error notification but does not end the active run.
func (n Notification) Terminal() bool {
	return n.Kind == KindResult || (n.Kind == KindError && n.Class != ClassAlreadyRunning)
}

func errorNotification(run uint64, err error) Notification {
	class := Classify(err)
	msg := err.Error()
	if class == ClassAborted {
		msg = AbortMessage
	}
	return Notification{Kind: KindError, Run: run, Message: msg, Class: class, Err: err}
}

// Snapshot is the controller state as seen by the goroutine owning the run.
type Snapshot struct {
	Run    uint64
	Status Status
	lyapunov.RunState
}
