package harness

import (
	"fmt"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/testutil"
	"github.com/roach88/multitimer/internal/timer"
)

// AssertionContext is what assertions inspect after the last step.
type AssertionContext struct {
	Engine *engine.Engine
	Refs   map[string]timer.ID
	Cues   *testutil.CueRecorder
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Ref      string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("assertion %s(%s) failed: expected %s, got %s", e.Type, e.Ref, e.Expected, e.Actual)
	}
	return fmt.Sprintf("assertion %s failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. It does not stop at the first failure.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTimerState:
		return assertTimerState(a, actx)
	case AssertTimerAbsent:
		if _, err := actx.Engine.Get(actx.Refs[a.Ref]); err == nil {
			return &AssertionError{Type: a.Type, Ref: a.Ref, Expected: "no timer", Actual: "timer exists"}
		}
		return nil
	case AssertCueCount:
		kind, err := timer.ParseAlarmKind(a.Kind)
		if err != nil {
			return err
		}
		got := actx.Cues.Count(actx.Refs[a.Ref], kind)
		if got != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Ref:      a.Ref,
				Expected: fmt.Sprintf("%d %s cue(s)", *a.Count, kind),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
		return nil
	case AssertTimerCount:
		return compareCount(a, actx.Engine.Len())
	case AssertBoundCount:
		return compareCount(a, actx.Engine.BoundCount())
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func compareCount(a Assertion, got int) error {
	if got != *a.Count {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d", *a.Count), Actual: fmt.Sprintf("%d", got)}
	}
	return nil
}

// assertTimerState compares only the fields the assertion sets.
func assertTimerState(a Assertion, actx *AssertionContext) error {
	t, err := actx.Engine.Get(actx.Refs[a.Ref])
	if err != nil {
		return &AssertionError{Type: a.Type, Ref: a.Ref, Expected: "timer exists", Actual: "not found"}
	}

	fail := func(field string, want, got any) error {
		return &AssertionError{
			Type:     a.Type,
			Ref:      a.Ref,
			Expected: fmt.Sprintf("%s=%v", field, want),
			Actual:   fmt.Sprintf("%s=%v", field, got),
		}
	}

	if a.Remaining != nil && *a.Remaining != t.RemainingSeconds {
		return fail("remaining", *a.Remaining, t.RemainingSeconds)
	}
	if a.Running != nil && *a.Running != t.IsRunning {
		return fail("running", *a.Running, t.IsRunning)
	}
	if a.FiveMin != "" && timer.AlarmState(a.FiveMin) != t.Alarms.FiveMin {
		return fail("five_min", a.FiveMin, t.Alarms.FiveMin)
	}
	if a.End != "" && timer.AlarmState(a.End) != t.Alarms.End {
		return fail("end", a.End, t.Alarms.End)
	}
	return nil
}
