package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/multitimer/internal/timer"
)

// ErrInjected is returned by MemoryPersister when a failure is injected.
var ErrInjected = errors.New("injected storage failure")

// MemoryPersister keeps the last saved snapshot in memory and counts writes.
// Implements engine.Persister.
type MemoryPersister struct {
	mu       sync.Mutex
	saved    []timer.Timer
	saves    int
	failSave bool
	failLoad bool
}

// NewMemoryPersister creates a persister seeded with initial.
func NewMemoryPersister(initial ...timer.Timer) *MemoryPersister {
	return &MemoryPersister{saved: append([]timer.Timer(nil), initial...)}
}

// Save stores a copy of timers.
func (p *MemoryPersister) Save(_ context.Context, timers []timer.Timer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSave {
		return ErrInjected
	}
	p.saved = append([]timer.Timer(nil), timers...)
	p.saves++
	return nil
}

// Load returns a copy of the last saved snapshot.
func (p *MemoryPersister) Load(context.Context) ([]timer.Timer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failLoad {
		return nil, ErrInjected
	}
	return append([]timer.Timer(nil), p.saved...), nil
}

// Saved returns the last saved snapshot.
func (p *MemoryPersister) Saved() []timer.Timer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]timer.Timer(nil), p.saved...)
}

// Saves returns how many successful writes happened.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// FailSaves makes subsequent saves fail (or succeed again).
func (p *MemoryPersister) FailSaves(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failSave = fail
}

// FailLoads makes subsequent loads fail (or succeed again).
func (p *MemoryPersister) FailLoads(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failLoad = fail
}
