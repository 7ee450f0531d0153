package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/multitimer/internal/persist"
	"github.com/roach88/multitimer/internal/timer"
)

// Scenario is a scripted sequence of commands plus final assertions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Storage selects the persistence backend used across restarts.
	// Empty means sqlite.
	Storage string `yaml:"storage,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one command. Exactly one command field must be set.
type Step struct {
	Create  *CreateStep `yaml:"create,omitempty"`
	Start   string      `yaml:"start,omitempty"`
	Pause   string      `yaml:"pause,omitempty"`
	Delete  string      `yaml:"delete,omitempty"`
	Tick    *TickStep   `yaml:"tick,omitempty"`
	Ack     *AckStep    `yaml:"ack,omitempty"`
	Clear   *struct{}   `yaml:"clear,omitempty"`
	Restart *struct{}   `yaml:"restart,omitempty"`

	// ExpectError names the error code the command must fail with:
	// "validation" or "not_found". Empty means the command must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// CreateStep creates a timer and binds it to Ref.
type CreateStep struct {
	Ref     string  `yaml:"ref"`
	Student string  `yaml:"student"`
	Exam    string  `yaml:"exam"`
	Minutes float64 `yaml:"minutes"`
}

// TickStep delivers Count ticks. With Ref set only that timer is ticked
// (through Engine.Tick); otherwise every live binding is.
type TickStep struct {
	Ref   string `yaml:"ref,omitempty"`
	Count int    `yaml:"count"`
}

// AckStep acknowledges one alarm.
type AckStep struct {
	Ref  string `yaml:"ref"`
	Kind string `yaml:"kind"`
}

// Assertion checks the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Ref string `yaml:"ref,omitempty"`

	// timer_state fields. Unset fields are not checked.
	Remaining *int   `yaml:"remaining,omitempty"`
	Running   *bool  `yaml:"running,omitempty"`
	FiveMin   string `yaml:"five_min,omitempty"`
	End       string `yaml:"end,omitempty"`

	// cue_count
	Kind string `yaml:"kind,omitempty"`

	// cue_count, timer_count, bound_count
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTimerState  = "timer_state"
	AssertTimerAbsent = "timer_absent"
	AssertCueCount    = "cue_count"
	AssertTimerCount  = "timer_count"
	AssertBoundCount  = "bound_count"
)

// Expected error codes.
const (
	ExpectValidation = "validation"
	ExpectNotFound   = "not_found"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Storage {
	case "", persist.BackendSQLite, persist.BackendJSON, persist.BackendCBOR:
	default:
		return fmt.Errorf("unknown storage %q", s.Storage)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	refs := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step, refs); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], refs); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, refs map[string]bool) error {
	set := 0
	for _, present := range []bool{
		step.Create != nil, step.Start != "", step.Pause != "", step.Delete != "",
		step.Tick != nil, step.Ack != nil, step.Clear != nil, step.Restart != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one command is required, found %d", i, set)
	}

	switch step.ExpectError {
	case "", ExpectValidation, ExpectNotFound:
	default:
		return fmt.Errorf("steps[%d]: unknown expect_error %q", i, step.ExpectError)
	}

	known := func(ref string) error {
		if !refs[ref] {
			return fmt.Errorf("steps[%d]: ref %q is used before create", i, ref)
		}
		return nil
	}

	switch {
	case step.Create != nil:
		if step.Create.Ref == "" {
			return fmt.Errorf("steps[%d].create: ref is required", i)
		}
		if refs[step.Create.Ref] {
			return fmt.Errorf("steps[%d].create: ref %q already used", i, step.Create.Ref)
		}
		// A create expected to fail binds nothing.
		if step.ExpectError == "" {
			refs[step.Create.Ref] = true
		}
	case step.Start != "":
		return known(step.Start)
	case step.Pause != "":
		return known(step.Pause)
	case step.Delete != "":
		return known(step.Delete)
	case step.Tick != nil:
		if step.Tick.Count <= 0 {
			return fmt.Errorf("steps[%d].tick: count must be positive", i)
		}
		if step.Tick.Ref != "" {
			return known(step.Tick.Ref)
		}
	case step.Ack != nil:
		if step.ExpectError != ExpectValidation {
			if _, err := timer.ParseAlarmKind(step.Ack.Kind); err != nil {
				return fmt.Errorf("steps[%d].ack: %w", i, err)
			}
		}
		return known(step.Ack.Ref)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, refs map[string]bool) error {
	needRef := func() error {
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for %s", index, a.Type)
		}
		if !refs[a.Ref] {
			return fmt.Errorf("assertions[%d]: unknown ref %q", index, a.Ref)
		}
		return nil
	}
	needCount := func() error {
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTimerState:
		if err := needRef(); err != nil {
			return err
		}
		for _, st := range []string{a.FiveMin, a.End} {
			if st != "" && !timer.AlarmState(st).Valid() {
				return fmt.Errorf("assertions[%d]: unknown alarm state %q", index, st)
			}
		}
	case AssertTimerAbsent:
		return needRef()
	case AssertCueCount:
		if err := needRef(); err != nil {
			return err
		}
		if _, err := timer.ParseAlarmKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		return needCount()
	case AssertTimerCount, AssertBoundCount:
		return needCount()
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
