package engine

import (
	"sync"
	"time"
)

// DefaultTickInterval is one simulated second.
const DefaultTickInterval = time.Second

// Ticker is a running periodic tick source. Stop must be idempotent and must
// not wait for an in-flight callback to return: the callback may be blocked on
// the Engine lock held by the caller of Stop.
type Ticker interface {
	Stop()
}

// TickSource creates periodic tick sources. Every calls fn once per interval
// until the returned Ticker is stopped. Calls for one Ticker are sequential.
type TickSource interface {
	Every(interval time.Duration, fn func()) Ticker
}

// SystemTickSource backs each binding with a time.Ticker and one goroutine.
type SystemTickSource struct{}

// Every starts a goroutine delivering ticks from a time.Ticker.
func (SystemTickSource) Every(interval time.Duration, fn func()) Ticker {
	t := &systemTicker{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type systemTicker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *systemTicker) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Stop may race with a tick already delivered on C.
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

// Stop signals the goroutine to exit. Safe to call more than once.
func (t *systemTicker) Stop() {
	t.once.Do(func() { close(t.done) })
}

// IdleTickSource never fires. Bindings still exist, so IsRunning is tracked
// correctly, but remaining time never changes. Used by one-shot CLI commands
// that only rewrite persisted state.
type IdleTickSource struct{}

// Every returns a Ticker that never fires.
func (IdleTickSource) Every(time.Duration, func()) Ticker {
	return idleTicker{}
}

type idleTicker struct{}

func (idleTicker) Stop() {}

// ManualTickSource delivers ticks only when Advance is called, synchronously
// on the caller's goroutine. Used by tests and the scenario harness.
//
// Advance must not be called while holding the Engine lock.
type ManualTickSource struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

// NewManualTickSource creates a ManualTickSource with no tickers.
func NewManualTickSource() *ManualTickSource {
	return &ManualTickSource{}
}

// Every registers fn. The interval is ignored.
func (s *ManualTickSource) Every(_ time.Duration, fn func()) Ticker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTicker{fn: fn}
	s.tickers = append(s.tickers, t)
	return t
}

// Advance fires every live ticker n times. Each round takes a fresh view of
// the live tickers, so a ticker stopped during a round (auto-stop at zero,
// a delete from a callback) receives no further ticks.
func (s *ManualTickSource) Advance(n int) {
	for i := 0; i < n; i++ {
		for _, t := range s.live() {
			if !t.stopped() {
				t.fn()
			}
		}
	}
}

// Active returns the number of tickers that have not been stopped.
func (s *ManualTickSource) Active() int {
	return len(s.live())
}

// Created returns the number of tickers ever registered.
func (s *ManualTickSource) Created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickers)
}

func (s *ManualTickSource) live() []*manualTicker {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.tickers[:0:0]
	for _, t := range s.tickers {
		if !t.stopped() {
			live = append(live, t)
		}
	}
	return live
}

type manualTicker struct {
	mu   sync.Mutex
	fn   func()
	done bool
}

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()
}

func (t *manualTicker) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
