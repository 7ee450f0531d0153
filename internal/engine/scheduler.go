package engine

import (
	"time"

	"github.com/roach88/multitimer/internal/timer"
)

// TickFunc is invoked for every tick of a binding. gen identifies the binding
// that produced the tick so that ticks from a released binding can be
// recognized and ignored.
type TickFunc func(id timer.ID, gen uint64)

// Scheduler owns at most one periodic tick source per timer id.
//
// The Scheduler never touches timer state. It only maps ids to live tick
// sources; the Engine consults live Store state on every tick.
//
// Thread-safety: Scheduler is NOT safe for concurrent use. The Engine calls
// it only while holding its mutex.
type Scheduler struct {
	source   TickSource
	interval time.Duration
	onTick   TickFunc
	bindings map[timer.ID]binding
	nextGen  uint64
}

type binding struct {
	gen    uint64
	ticker Ticker
}

// NewScheduler creates a Scheduler that starts tick sources from source.
func NewScheduler(source TickSource, interval time.Duration, onTick TickFunc) *Scheduler {
	if source == nil {
		source = SystemTickSource{}
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		source:   source,
		interval: interval,
		onTick:   onTick,
		bindings: make(map[timer.ID]binding),
	}
}

// Bind attaches a tick source to id. Returns false, doing nothing, when id is
// already bound.
func (s *Scheduler) Bind(id timer.ID) bool {
	if _, ok := s.bindings[id]; ok {
		return false
	}
	s.nextGen++
	gen := s.nextGen
	onTick := s.onTick
	ticker := s.source.Every(s.interval, func() {
		onTick(id, gen)
	})
	s.bindings[id] = binding{gen: gen, ticker: ticker}
	return true
}

// Unbind stops and forgets the tick source for id. Returns false if there was
// none. Idempotent.
func (s *Scheduler) Unbind(id timer.ID) bool {
	b, ok := s.bindings[id]
	if !ok {
		return false
	}
	delete(s.bindings, id)
	b.ticker.Stop()
	return true
}

// UnbindAll stops every tick source and returns how many were released.
func (s *Scheduler) UnbindAll() int {
	n := len(s.bindings)
	for id, b := range s.bindings {
		delete(s.bindings, id)
		b.ticker.Stop()
	}
	return n
}

// Bound reports whether id currently has a tick source.
func (s *Scheduler) Bound(id timer.ID) bool {
	_, ok := s.bindings[id]
	return ok
}

// Current reports whether gen is the live binding for id.
func (s *Scheduler) Current(id timer.ID, gen uint64) bool {
	b, ok := s.bindings[id]
	return ok && b.gen == gen
}

// Len returns the number of live bindings.
func (s *Scheduler) Len() int {
	return len(s.bindings)
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
