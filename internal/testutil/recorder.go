package testutil

import (
	"sync"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/timer"
)

// CueRecorder records every cue it is asked to play.
// Implements engine.Notifier.
type CueRecorder struct {
	mu   sync.Mutex
	cues []engine.Cue
}

// NewCueRecorder creates an empty recorder.
func NewCueRecorder() *CueRecorder {
	return &CueRecorder{}
}

// PlayCue records c.
func (r *CueRecorder) PlayCue(c engine.Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, c)
}

// Cues returns a copy of everything recorded so far.
func (r *CueRecorder) Cues() []engine.Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Cue(nil), r.cues...)
}

// Count returns how many cues of kind were recorded for id.
func (r *CueRecorder) Count(id timer.ID, kind timer.AlarmKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cues {
		if c.TimerID == id && c.Kind == kind {
			n++
		}
	}
	return n
}
