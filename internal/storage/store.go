// Package storage persists finished runs: their parameters, outcome and the
// sampled separation series.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

type RunMetadata struct {
	ID           string              `json:"id"`
	System       string              `json:"system"`
	Timestamp    time.Time           `json:"timestamp"`
	Status       string              `json:"status"`
	Lambda       *float64            `json:"lambda,omitempty"`
	RenormEvents int                 `json:"renorm_events"`
	Samples      int                 `json:"samples"`
	Fit          *lyapunov.FitResult `json:"fit,omitempty"`
	Params       lyapunov.Params     `json:"params"`
}

// LambdaOrNaN unwraps Lambda.
func (m RunMetadata) LambdaOrNaN() float64 {
	if m.Lambda == nil {
		return math.NaN()
	}
	return *m.Lambda
}

// Record is a finished run ready to be saved.
type Record struct {
	Params lyapunov.Params
	Status string
	Result lyapunov.Result
	Fit    *lyapunov.FitResult
}

func (r Record) metadata(id string, now time.Time) RunMetadata {
	meta := RunMetadata{
		ID:           id,
		System:       string(r.Params.System),
		Timestamp:    now,
		Status:       r.Status,
		RenormEvents: r.Result.RenormEvents,
		Samples:      r.Result.Series.Len(),
		Fit:          r.Fit,
		Params:       r.Params,
	}
	if l := r.Result.Lambda; !math.IsNaN(l) && !math.IsInf(l, 0) {
		meta.Lambda = &l
	}
	return meta
}

type Store interface {
	Save(ctx context.Context, rec Record) (string, error)
	List(ctx context.Context) ([]RunMetadata, error)
	Load(ctx context.Context, id string) (*RunMetadata, error)
	LoadSeries(ctx context.Context, id string) (lyapunov.Series, error)
	Close() error
}

// NewRunID returns an identifier like "logistic_5f0c2a9e".
func NewRunID(system string) string {
	return fmt.Sprintf("%s_%s", system, uuid.NewString()[:8])
}

// Open returns the store of the given kind rooted at dir.
func Open(kind, dir string) (Store, error) {
	switch kind {
	case "", KindFile:
		s := NewFileStore(dir)
		if err := s.Init(); err != nil {
			return nil, err
		}
		return s, nil
	case KindSQLite:
		return NewSQLStore(filepath.Join(dir, "runs.db"))
	}
	return nil, fmt.Errorf("unknown store kind %q", kind)
}
