package timer

import "fmt"

// AlarmKind names one of the two thresholds a timer can cross.
type AlarmKind string

const (
	// KindFiveMin fires when the remaining time ticks down to FiveMinuteThreshold.
	KindFiveMin AlarmKind = "five_min"

	// KindEnd fires when the remaining time ticks down to zero.
	KindEnd AlarmKind = "end"
)

// ParseAlarmKind converts user input into an AlarmKind.
func ParseAlarmKind(s string) (AlarmKind, error) {
	switch AlarmKind(s) {
	case KindFiveMin, KindEnd:
		return AlarmKind(s), nil
	case "five-min", "fivemin", "warn":
		return KindFiveMin, nil
	default:
		return "", NewValidationError("kind", fmt.Sprintf("unknown alarm kind %q (want %s or %s)", s, KindFiveMin, KindEnd))
	}
}

// AlarmState is the lifecycle position of one alarm kind on one timer.
type AlarmState string

const (
	// AlarmPending is the initial state: the threshold has not been crossed.
	AlarmPending AlarmState = "pending"

	// AlarmFired means the cue was delivered and awaits acknowledgement.
	AlarmFired AlarmState = "fired"

	// AlarmAcknowledged is terminal until the timer is destroyed.
	AlarmAcknowledged AlarmState = "acknowledged"
)

// Valid reports whether s is one of the known states.
func (s AlarmState) Valid() bool {
	switch s {
	case AlarmPending, AlarmFired, AlarmAcknowledged:
		return true
	}
	return false
}

// Alarms is the alarm sub-state of a timer, one state per kind.
type Alarms struct {
	FiveMin AlarmState `json:"fiveMin"`
	End     AlarmState `json:"end"`
}

// NewAlarms returns both kinds pending.
func NewAlarms() Alarms {
	return Alarms{FiveMin: AlarmPending, End: AlarmPending}
}

// State returns the state for kind. Unknown kinds report pending.
func (a Alarms) State(kind AlarmKind) AlarmState {
	switch kind {
	case KindFiveMin:
		return a.FiveMin
	case KindEnd:
		return a.End
	}
	return AlarmPending
}

// Fire moves kind from pending to fired. It returns false, leaving the state
// untouched, when the alarm already fired or was acknowledged.
func (a *Alarms) Fire(kind AlarmKind) bool {
	return a.advance(kind, AlarmPending, AlarmFired)
}

// Acknowledge moves kind from fired to acknowledged. Any other starting state
// is left alone and false is returned.
func (a *Alarms) Acknowledge(kind AlarmKind) bool {
	return a.advance(kind, AlarmFired, AlarmAcknowledged)
}

func (a *Alarms) advance(kind AlarmKind, from, to AlarmState) bool {
	var slot *AlarmState
	switch kind {
	case KindFiveMin:
		slot = &a.FiveMin
	case KindEnd:
		slot = &a.End
	default:
		return false
	}
	if *slot != from {
		return false
	}
	*slot = to
	return true
}
