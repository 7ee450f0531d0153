package harness

import (
	"fmt"
	"strings"
)

// TraceEvent is one line of a scenario trace: a command, or a cue produced
// by the preceding command.
type TraceEvent struct {
	Step   int    `json:"step"`
	Op     string `json:"op"`
	Ref    string `json:"ref,omitempty"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// String renders the event as it appears in golden files.
func (e TraceEvent) String() string {
	if e.Op == "cue" {
		return fmt.Sprintf("    cue %s %s", e.Ref, e.Detail)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", e.Step, e.Op)
	if e.Ref != "" {
		b.WriteString(" " + e.Ref)
	}
	if e.Detail != "" {
		b.WriteString(" " + e.Detail)
	}
	if e.Error != "" {
		b.WriteString(" -> error " + e.Error)
	}
	return b.String()
}

// FinalTimer is the state of one timer after the last step.
type FinalTimer struct {
	Ref       string `json:"ref"`
	ID        string `json:"id"`
	Remaining int    `json:"remaining"`
	Running   bool   `json:"running"`
	Bound     bool   `json:"bound"`
	FiveMin   string `json:"fiveMin"`
	End       string `json:"end"`
}

// String renders the timer as it appears in golden files.
func (f FinalTimer) String() string {
	return fmt.Sprintf("  %s %s remaining=%d running=%t bound=%t five_min=%s end=%s",
		f.Ref, f.ID, f.Remaining, f.Running, f.Bound, f.FiveMin, f.End)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace lists commands and cues in execution order.
	Trace []TraceEvent `json:"trace"`

	// Final lists the surviving timers in collection order.
	Final []FinalTimer `json:"final"`

	// Errors describes every failure. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []TraceEvent{},
		Final:  []FinalTimer{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Transcript renders the trace and final state as deterministic text.
func (r *Result) Transcript() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", r.Name)
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	b.WriteString("final:\n")
	if len(r.Final) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, f := range r.Final {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	return b.String()
}
