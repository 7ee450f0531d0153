package persist

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multitimer/internal/timer"
)

var fixedNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestAdapter(t *testing.T, b Backend) (*Adapter, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	a := NewAdapter(b,
		WithNow(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	return a, &logs
}

func sampleTimers(t *testing.T) []timer.Timer {
	t.Helper()
	a, err := timer.New("t1", "Ana", "Math", 360)
	require.NoError(t, err)
	a.RemainingSeconds = 300
	a.IsRunning = true
	a.Alarms.FiveMin = timer.AlarmFired

	b, err := timer.New("t2", "Ben", "Art", 60)
	require.NoError(t, err)

	c, err := timer.New("t3", "Cleo", "Bio", 30)
	require.NoError(t, err)
	c.RemainingSeconds = 0
	c.Alarms.End = timer.AlarmAcknowledged

	return []timer.Timer{a, b, c}
}

func TestAdapter_SaveLoadEveryBackend(t *testing.T) {
	ctx := context.Background()
	for kind, b := range openBackends(t) {
		t.Run(kind, func(t *testing.T) {
			a, _ := newTestAdapter(t, b)
			want := sampleTimers(t)

			require.NoError(t, a.Save(ctx, want))
			got, err := a.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			env, err := b.Read(ctx)
			require.NoError(t, err)
			assert.True(t, fixedNow.Equal(env.SavedAt))
		})
	}
}

func TestAdapter_EmptyCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	for kind, b := range openBackends(t) {
		t.Run(kind, func(t *testing.T) {
			a, _ := newTestAdapter(t, b)

			require.NoError(t, a.Save(ctx, sampleTimers(t)))
			require.NoError(t, a.Save(ctx, nil))

			got, err := a.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestAdapter_LoadMissingIsEmpty(t *testing.T) {
	a, _ := newTestAdapter(t, NewFileBackend(filepath.Join(t.TempDir(), "none.json"), nil))

	got, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAdapter_LoadMalformedIsLoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 1, "timers": "nope"}`), 0644))
	a, _ := newTestAdapter(t, NewFileBackend(path, JSONCodec{}))

	got, err := a.Load(context.Background())
	assert.Nil(t, got)
	assert.True(t, IsLoadError(err))
	assert.Contains(t, err.Error(), path)
}

func TestAdapter_LoadNewerVersionIsLoadError(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(filepath.Join(t.TempDir(), "timers.json"), nil)
	env := sampleEnvelope()
	env.Version = CurrentVersion + 1
	require.NoError(t, b.Write(ctx, env))
	a, _ := newTestAdapter(t, b)

	_, err := a.Load(ctx)
	assert.True(t, IsLoadError(err))
}

func TestAdapter_LoadOtherSlotIsLoadError(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(filepath.Join(t.TempDir(), "timers.json"), nil)
	env := sampleEnvelope()
	env.Slot = "other"
	require.NoError(t, b.Write(ctx, env))
	a, _ := newTestAdapter(t, b)

	_, err := a.Load(ctx)
	assert.True(t, IsLoadError(err))
}

func TestAdapter_DropsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(filepath.Join(t.TempDir(), "timers.json"), nil)
	env := sampleEnvelope()
	env.Timers = append(env.Timers,
		Record{ID: "neg", StudentName: "X", ExamName: "Y", DurationSeconds: 60, RemainingSeconds: -1},
		Record{ID: "over", StudentName: "X", ExamName: "Y", DurationSeconds: 60, RemainingSeconds: 61},
		Record{ID: "done-running", StudentName: "X", ExamName: "Y", DurationSeconds: 60, IsRunning: true},
		Record{ID: "", StudentName: "X", ExamName: "Y", DurationSeconds: 60, RemainingSeconds: 60},
		Record{ID: "bad-state", StudentName: "X", ExamName: "Y", DurationSeconds: 60, RemainingSeconds: 60, EndState: "ringing"},
		env.Timers[0],
	)
	require.NoError(t, b.Write(ctx, env))
	a, logs := newTestAdapter(t, b)

	got, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, timer.ID("t1"), got[0].ID)
	assert.Equal(t, timer.ID("t2"), got[1].ID)
	assert.Equal(t, 5, strings.Count(logs.String(), "dropping invalid saved timer"))
	assert.Equal(t, 1, strings.Count(logs.String(), "dropping duplicate saved timer"))
}

func TestAdapter_LegacyFileUpgrades(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "timers.json")
	legacy := `[{"id": 1718000000000, "studentName": "Ana", "examName": "Math", "duration": "6", "timeLeft": 300, "isRunning": true}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))
	a, logs := newTestAdapter(t, NewFileBackend(path, JSONCodec{}))

	got, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 360, got[0].DurationSeconds)
	assert.Equal(t, 300, got[0].RemainingSeconds)
	assert.True(t, got[0].IsRunning)
	assert.Contains(t, logs.String(), "upgrading saved timers")

	// The next save writes the current format.
	require.NoError(t, a.Save(ctx, got))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 1`)
}

type failingBackend struct{ err error }

func (f failingBackend) Write(context.Context, Envelope) error  { return f.err }
func (f failingBackend) Read(context.Context) (Envelope, error) { return Envelope{}, f.err }
func (f failingBackend) Describe() string                       { return "failing" }

func TestAdapter_ErrorsAreTyped(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("disk on fire")
	a, _ := newTestAdapter(t, failingBackend{err: cause})

	err := a.Save(ctx, sampleTimers(t))
	assert.True(t, IsWriteError(err))
	assert.False(t, IsLoadError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save failing: disk on fire", err.Error())

	_, err = a.Load(ctx)
	assert.True(t, IsLoadError(err))
	assert.ErrorIs(t, err, cause)
}

func TestAdapter_LegacyFinishedRunningTimerLoads(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "timers.json")
	legacy := `[
	  {"id": 1, "studentName": "Ana", "examName": "Math", "duration": 1, "timeLeft": 0, "isRunning": true},
	  {"id": 2, "studentName": "Ben", "examName": "Art", "duration": 1, "timeLeft": 20, "isRunning": true}
	]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))
	a, logs := newTestAdapter(t, NewFileBackend(path, JSONCodec{}))

	got, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotContains(t, logs.String(), "dropping invalid saved timer")

	assert.Equal(t, timer.ID("1"), got[0].ID)
	assert.Equal(t, 0, got[0].RemainingSeconds)
	assert.False(t, got[0].IsRunning)
	assert.Equal(t, timer.AlarmFired, got[0].Alarms.End)
	assert.True(t, got[1].IsRunning)
	assert.Equal(t, timer.AlarmPending, got[1].Alarms.End)
}
