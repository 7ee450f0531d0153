package persist

import (
	"time"

	"github.com/roach88/multitimer/internal/timer"
)

// CurrentVersion is the Envelope format written by this package.
const CurrentVersion = 1

// DefaultSlot is the well-known slot name.
const DefaultSlot = "timers"

// Envelope is the unit written to and read from a Backend.
type Envelope struct {
	Version int       `json:"version" cbor:"1,keyasint"`
	SavedAt time.Time `json:"savedAt" cbor:"2,keyasint"`
	Slot    string    `json:"slot" cbor:"3,keyasint"`
	Timers  []Record  `json:"timers" cbor:"4,keyasint"`
}

// Record is the durable form of one timer.
//
// WarnedFiveMin and WarnedEnd are kept next to the alarm states so that
// readers that only know the flags still see them. A set flag promotes an
// absent or pending state to fired.
type Record struct {
	ID               string `json:"id" cbor:"1,keyasint"`
	StudentName      string `json:"studentName" cbor:"2,keyasint"`
	ExamName         string `json:"examName" cbor:"3,keyasint"`
	DurationSeconds  int    `json:"durationSeconds" cbor:"4,keyasint"`
	RemainingSeconds int    `json:"remainingSeconds" cbor:"5,keyasint"`
	IsRunning        bool   `json:"isRunning" cbor:"6,keyasint"`
	WarnedFiveMin    bool   `json:"warnedFiveMin" cbor:"7,keyasint"`
	WarnedEnd        bool   `json:"warnedEnd" cbor:"8,keyasint"`
	FiveMinState     string `json:"fiveMinState,omitempty" cbor:"9,keyasint,omitempty"`
	EndState         string `json:"endState,omitempty" cbor:"10,keyasint,omitempty"`
}

// FromTimer converts a timer to its durable form.
func FromTimer(t timer.Timer) Record {
	return Record{
		ID:               string(t.ID),
		StudentName:      t.StudentName,
		ExamName:         t.ExamName,
		DurationSeconds:  t.DurationSeconds,
		RemainingSeconds: t.RemainingSeconds,
		IsRunning:        t.IsRunning,
		WarnedFiveMin:    t.WarnedFiveMin(),
		WarnedEnd:        t.WarnedEnd(),
		FiveMinState:     string(t.Alarms.FiveMin),
		EndState:         string(t.Alarms.End),
	}
}

// FromTimers converts an ordered collection.
func FromTimers(timers []timer.Timer) []Record {
	records := make([]Record, 0, len(timers))
	for _, t := range timers {
		records = append(records, FromTimer(t))
	}
	return records
}

// Timer converts the record back. The result is not validated.
func (r Record) Timer() timer.Timer {
	return timer.Timer{
		ID:               timer.ID(r.ID),
		StudentName:      r.StudentName,
		ExamName:         r.ExamName,
		DurationSeconds:  r.DurationSeconds,
		RemainingSeconds: r.RemainingSeconds,
		IsRunning:        r.IsRunning,
		Alarms: timer.Alarms{
			FiveMin: alarmState(r.FiveMinState, r.WarnedFiveMin),
			End:     alarmState(r.EndState, r.WarnedEnd),
		},
	}
}

// alarmState merges the stored state with the legacy flag. A set flag never
// lets an alarm load as pending.
func alarmState(state string, warned bool) timer.AlarmState {
	s := timer.AlarmState(state)
	if s == "" {
		s = timer.AlarmPending
	}
	if warned && s == timer.AlarmPending {
		return timer.AlarmFired
	}
	return s
}
