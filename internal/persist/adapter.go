package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/multitimer/internal/timer"
)

// Adapter implements engine.Persister on top of a Backend.
//
// Thread-safety: Adapter holds no mutable state of its own; concurrency is
// delegated to the Backend. The Engine serializes Save calls.
type Adapter struct {
	backend Backend
	now     func() time.Time
	logger  *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithNow overrides the SavedAt clock.
func WithNow(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter creates an Adapter writing to backend.
func NewAdapter(backend Backend, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		backend: backend,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Backend returns the underlying backend.
func (a *Adapter) Backend() Backend {
	return a.backend
}

// Save overwrites the slot with timers. Failures are returned as *WriteError.
func (a *Adapter) Save(ctx context.Context, timers []timer.Timer) error {
	env := Envelope{
		Version: CurrentVersion,
		SavedAt: a.now().UTC(),
		Slot:    DefaultSlot,
		Timers:  FromTimers(timers),
	}
	if err := a.backend.Write(ctx, env); err != nil {
		return &WriteError{Source: a.backend.Describe(), Err: err}
	}
	return nil
}

// Load returns the saved collection in saved order.
//
// A slot that was never written yields (nil, nil). Unreadable or malformed
// data yields (nil, *LoadError). Records that break timer invariants or
// repeat an id are dropped and logged; the rest are returned.
func (a *Adapter) Load(ctx context.Context) ([]timer.Timer, error) {
	env, err := a.backend.Read(ctx)
	if errors.Is(err, ErrNoState) {
		a.logger.Debug("no saved timers", "backend", a.backend.Describe())
		return nil, nil
	}
	if err != nil {
		return nil, &LoadError{Source: a.backend.Describe(), Err: err}
	}
	if env.Version > CurrentVersion {
		return nil, &LoadError{
			Source: a.backend.Describe(),
			Err:    fmt.Errorf("format version %d is newer than supported version %d", env.Version, CurrentVersion),
		}
	}
	if env.Slot != "" && env.Slot != DefaultSlot {
		return nil, &LoadError{
			Source: a.backend.Describe(),
			Err:    fmt.Errorf("slot %q does not match %q", env.Slot, DefaultSlot),
		}
	}
	if env.Version < CurrentVersion {
		a.logger.Info("upgrading saved timers", "from_version", env.Version, "to_version", CurrentVersion)
	}

	timers := make([]timer.Timer, 0, len(env.Timers))
	seen := make(map[timer.ID]bool, len(env.Timers))
	for i, r := range env.Timers {
		t := r.Timer()
		if err := t.Validate(); err != nil {
			a.logger.Warn("dropping invalid saved timer", "index", i, "timer", t.ID, "error", err)
			continue
		}
		if seen[t.ID] {
			a.logger.Warn("dropping duplicate saved timer", "index", i, "timer", t.ID)
			continue
		}
		seen[t.ID] = true
		timers = append(timers, t)
	}

	a.logger.Debug("loaded timers", "backend", a.backend.Describe(), "timers", len(timers), "saved_at", env.SavedAt)
	return timers, nil
}
