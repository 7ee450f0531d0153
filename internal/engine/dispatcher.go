package engine

import (
	"log/slog"

	"github.com/roach88/multitimer/internal/timer"
)

// Cue is a request to play an alarm sound for one timer.
type Cue struct {
	Seq         int64           `json:"seq"`
	TimerID     timer.ID        `json:"timerId"`
	Kind        timer.AlarmKind `json:"kind"`
	StudentName string          `json:"studentName"`
	ExamName    string          `json:"examName"`
}

// Notifier plays alarm cues. PlayCue is fire-and-forget and is always called
// without the Engine lock held.
type Notifier interface {
	PlayCue(Cue)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Cue)

// PlayCue calls f(c).
func (f NotifierFunc) PlayCue(c Cue) { f(c) }

// Dispatcher drives the per-timer alarm state machine.
//
// For a given timer and kind a Cue is produced at most once: Fire only
// succeeds on a pending alarm and moves it to fired. The state lives on the
// timer itself, so deleting the timer deletes its alarm state.
type Dispatcher struct {
	notifier Notifier
	clock    *Clock
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil notifier drops cues.
func NewDispatcher(notifier Notifier, clock *Clock, logger *slog.Logger) *Dispatcher {
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: notifier, clock: clock, logger: logger}
}

// Fire records a crossing of kind on t. It returns the cue to deliver, or
// false if that alarm already fired.
// Must be called with the Engine lock held.
func (d *Dispatcher) Fire(t *timer.Timer, kind timer.AlarmKind) (Cue, bool) {
	if !t.Alarms.Fire(kind) {
		return Cue{}, false
	}
	cue := Cue{
		Seq:         d.clock.Next(),
		TimerID:     t.ID,
		Kind:        kind,
		StudentName: t.StudentName,
		ExamName:    t.ExamName,
	}
	d.logger.Info("alarm fired", "timer", t.ID, "kind", kind, "student", t.StudentName, "exam", t.ExamName)
	return cue, true
}

// Acknowledge silences a fired alarm. Pending or already acknowledged alarms
// are left alone and false is returned.
// Must be called with the Engine lock held.
func (d *Dispatcher) Acknowledge(t *timer.Timer, kind timer.AlarmKind) bool {
	if !t.Alarms.Acknowledge(kind) {
		return false
	}
	d.logger.Info("alarm acknowledged", "timer", t.ID, "kind", kind)
	return true
}

// Deliver hands cues to the Notifier in order.
// Must be called without the Engine lock held.
func (d *Dispatcher) Deliver(cues []Cue) {
	if d.notifier == nil {
		return
	}
	for _, c := range cues {
		d.notifier.PlayCue(c)
	}
}
