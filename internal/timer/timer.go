package timer

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FiveMinuteThreshold is the remaining time, in seconds, at which the
// five-minute warning fires.
const FiveMinuteThreshold = 300

// ID identifies a timer. Assigned once at creation and never reused within a
// running process.
type ID string

// Timer is the durable state of one countdown.
type Timer struct {
	ID               ID     `json:"id"`
	StudentName      string `json:"studentName"`
	ExamName         string `json:"examName"`
	DurationSeconds  int    `json:"durationSeconds"`
	RemainingSeconds int    `json:"remainingSeconds"`
	IsRunning        bool   `json:"isRunning"`
	Alarms           Alarms `json:"alarms"`
}

// New builds a fresh, stopped timer with the full duration remaining.
// Names are normalized with NormalizeName before validation.
func New(id ID, studentName, examName string, durationSeconds int) (Timer, error) {
	if id == "" {
		return Timer{}, NewValidationError("id", "must not be empty")
	}
	if err := ValidateFields(studentName, examName, durationSeconds); err != nil {
		return Timer{}, err
	}
	return Timer{
		ID:               id,
		StudentName:      NormalizeName(studentName),
		ExamName:         NormalizeName(examName),
		DurationSeconds:  durationSeconds,
		RemainingSeconds: durationSeconds,
		Alarms:           NewAlarms(),
	}, nil
}

// ValidateFields checks creation input before an id is assigned.
func ValidateFields(studentName, examName string, durationSeconds int) error {
	if NormalizeName(studentName) == "" {
		return NewValidationError("studentName", "must not be empty")
	}
	if NormalizeName(examName) == "" {
		return NewValidationError("examName", "must not be empty")
	}
	if durationSeconds <= 0 {
		return NewValidationError("durationSeconds", fmt.Sprintf("must be positive, got %d", durationSeconds))
	}
	return nil
}

// NormalizeName trims surrounding whitespace and converts the name to NFC so
// that visually identical names compare equal regardless of input method.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// WarnedFiveMin reports whether the five-minute alarm has fired.
func (t Timer) WarnedFiveMin() bool {
	return t.Alarms.FiveMin != AlarmPending
}

// WarnedEnd reports whether the end alarm has fired.
func (t Timer) WarnedEnd() bool {
	return t.Alarms.End != AlarmPending
}

// Started reports whether the countdown has ever advanced or is running.
func (t Timer) Started() bool {
	return t.IsRunning || t.RemainingSeconds < t.DurationSeconds
}

// Finished reports whether the countdown reached zero.
func (t Timer) Finished() bool {
	return t.RemainingSeconds == 0
}

// Validate checks the structural invariants of a record, typically one read
// back from storage.
func (t Timer) Validate() error {
	if t.ID == "" {
		return NewValidationError("id", "must not be empty")
	}
	if t.StudentName == "" {
		return NewValidationError("studentName", "must not be empty")
	}
	if t.ExamName == "" {
		return NewValidationError("examName", "must not be empty")
	}
	if t.DurationSeconds <= 0 {
		return NewValidationError("durationSeconds", fmt.Sprintf("must be positive, got %d", t.DurationSeconds))
	}
	if t.RemainingSeconds < 0 || t.RemainingSeconds > t.DurationSeconds {
		return NewValidationError("remainingSeconds",
			fmt.Sprintf("%d outside [0, %d]", t.RemainingSeconds, t.DurationSeconds))
	}
	if t.RemainingSeconds == 0 && t.IsRunning {
		return NewValidationError("isRunning", "finished timer cannot be running")
	}
	if !t.Alarms.FiveMin.Valid() {
		return NewValidationError("alarms.fiveMin", fmt.Sprintf("unknown state %q", t.Alarms.FiveMin))
	}
	if !t.Alarms.End.Valid() {
		return NewValidationError("alarms.end", fmt.Sprintf("unknown state %q", t.Alarms.End))
	}
	return nil
}

// MinutesToSeconds converts a duration entered in minutes, possibly
// fractional, to whole seconds rounded to nearest. The result must be at
// least one second.
func MinutesToSeconds(minutes float64) (int, error) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0, NewValidationError("durationMinutes", "must be a number")
	}
	seconds := math.Round(minutes * 60)
	if seconds < 1 {
		return 0, NewValidationError("durationMinutes", fmt.Sprintf("must be at least one second, got %g minutes", minutes))
	}
	if seconds > math.MaxInt32 {
		return 0, NewValidationError("durationMinutes", fmt.Sprintf("too large: %g minutes", minutes))
	}
	return int(seconds), nil
}
