package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Start and tick one timer"
steps:
  - create: {ref: ana, student: Ana, exam: Math, minutes: 1.5}
  - start: ana
  - tick: {count: 3}
assertions:
  - type: timer_state
    ref: ana
    remaining: 87
    running: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Start and tick one timer", scenario.Description)
	require.Len(t, scenario.Steps, 3)
	require.NotNil(t, scenario.Steps[0].Create)
	assert.Equal(t, "Ana", scenario.Steps[0].Create.Student)
	assert.Equal(t, 1.5, scenario.Steps[0].Create.Minutes)
	assert.Equal(t, "ana", scenario.Steps[1].Start)
	require.NotNil(t, scenario.Steps[2].Tick)
	assert.Equal(t, 3, scenario.Steps[2].Tick.Count)
	assert.Empty(t, scenario.Steps[2].Tick.Ref)

	require.Len(t, scenario.Assertions, 1)
	require.NotNil(t, scenario.Assertions[0].Remaining)
	assert.Equal(t, 87, *scenario.Assertions[0].Remaining)
	require.NotNil(t, scenario.Assertions[0].Running)
	assert.True(t, *scenario.Assertions[0].Running)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_EmptyCommandsDecode(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: empty_commands
description: clear and restart carry no arguments
steps:
  - clear: {}
  - restart: {}
assertions:
  - type: timer_count
    count: 0
`))
	require.NoError(t, err)
	assert.NotNil(t, scenario.Steps[0].Clear)
	assert.NotNil(t, scenario.Steps[1].Restart)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown field",
			yaml: `
name: x
description: x
steps:
  - clear: {}
assertion:
  - type: timer_count
    count: 0
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: `
description: x
steps:
  - clear: {}
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: x
steps:
  - clear: {}
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: "description is required",
		},
		{
			name: "no steps",
			yaml: `
name: x
description: x
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: "steps list is required",
		},
		{
			name: "no assertions",
			yaml: `
name: x
description: x
steps:
  - clear: {}
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown storage",
			yaml: `
name: x
description: x
storage: redis
steps:
  - clear: {}
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: `unknown storage "redis"`,
		},
		{
			name: "two commands in one step",
			yaml: `
name: x
description: x
steps:
  - clear: {}
    restart: {}
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: "exactly one command is required, found 2",
		},
		{
			name: "empty step",
			yaml: `
name: x
description: x
steps:
  - expect_error: validation
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: "exactly one command is required, found 0",
		},
		{
			name: "ref used before create",
			yaml: `
name: x
description: x
steps:
  - start: ana
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: `ref "ana" is used before create`,
		},
		{
			name: "failed create binds nothing",
			yaml: `
name: x
description: x
steps:
  - create: {ref: ana, student: "", exam: Math, minutes: 1}
    expect_error: validation
  - start: ana
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: `ref "ana" is used before create`,
		},
		{
			name: "duplicate ref",
			yaml: `
name: x
description: x
steps:
  - create: {ref: ana, student: Ana, exam: Math, minutes: 1}
  - create: {ref: ana, student: Ben, exam: Art, minutes: 1}
assertions:
  - type: timer_count
    count: 2
`,
			wantErr: `ref "ana" already used`,
		},
		{
			name: "non-positive tick count",
			yaml: `
name: x
description: x
steps:
  - tick: {count: 0}
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: "count must be positive",
		},
		{
			name: "unknown alarm kind",
			yaml: `
name: x
description: x
steps:
  - create: {ref: ana, student: Ana, exam: Math, minutes: 1}
  - ack: {ref: ana, kind: bell}
assertions:
  - type: timer_count
    count: 1
`,
			wantErr: "steps[1].ack",
		},
		{
			name: "unknown expect_error",
			yaml: `
name: x
description: x
steps:
  - clear: {}
    expect_error: boom
assertions:
  - type: timer_count
    count: 0
`,
			wantErr: `unknown expect_error "boom"`,
		},
		{
			name: "unknown assertion type",
			yaml: `
name: x
description: x
steps:
  - clear: {}
assertions:
  - type: trace_contains
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "assertion ref unknown",
			yaml: `
name: x
description: x
steps:
  - clear: {}
assertions:
  - type: timer_absent
    ref: ghost
`,
			wantErr: `unknown ref "ghost"`,
		},
		{
			name: "count missing",
			yaml: `
name: x
description: x
steps:
  - clear: {}
assertions:
  - type: bound_count
`,
			wantErr: "non-negative count is required for bound_count",
		},
		{
			name: "unknown alarm state",
			yaml: `
name: x
description: x
steps:
  - create: {ref: ana, student: Ana, exam: Math, minutes: 1}
assertions:
  - type: timer_state
    ref: ana
    end: ringing
`,
			wantErr: `unknown alarm state "ringing"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_ValidationAckMayUseUnknownKind(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: x
description: x
steps:
  - create: {ref: ana, student: Ana, exam: Math, minutes: 1}
  - ack: {ref: ana, kind: bell}
    expect_error: validation
assertions:
  - type: timer_count
    count: 1
`))
	require.NoError(t, err)
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	dir := t.TempDir()
	write := func(file, name string) {
		content := "name: " + name + "\ndescription: x\nsteps:\n  - clear: {}\nassertions:\n  - type: timer_count\n    count: 0\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0644))
	}
	write("b.yaml", "second")
	write("a.yml", "first")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "second", scenarios[1].Name)
}

func TestLoadScenarios_EmptyDir(t *testing.T) {
	_, err := LoadScenarios(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files found")
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\n"), 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
