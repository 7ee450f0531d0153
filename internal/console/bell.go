package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/timer"
)

// Bell prints a terminal bell and a banner for every cue.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell creates a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// PlayCue implements engine.Notifier.
func (b *Bell) PlayCue(c engine.Cue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.w, "\a*** %s: %s (%s) ***\n", banner(c.Kind), c.StudentName, c.ExamName)
}

func banner(kind timer.AlarmKind) string {
	if kind == timer.KindFiveMin {
		return "5 minutes left"
	}
	return "Time is up"
}
