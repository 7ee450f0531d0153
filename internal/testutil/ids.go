package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/multitimer/internal/timer"
)

// SequentialIDs generates deterministic timer ids: prefix1, prefix2, ...
//
// SequentialIDs never runs out and can be reset so the same scenario
// produces identical ids on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "t".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "t"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID implements engine.IDGenerator.
func (g *SequentialIDs) NewID() timer.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return timer.ID(fmt.Sprintf("%s%d", g.prefix, g.n))
}

// Reset restarts numbering at 1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
