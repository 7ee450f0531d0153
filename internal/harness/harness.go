package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/persist"
	"github.com/roach88/multitimer/internal/store"
	"github.com/roach88/multitimer/internal/testutil"
	"github.com/roach88/multitimer/internal/timer"
)

// savedAt is stamped on every save so stored envelopes are reproducible.
var savedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness is the scenario execution environment.
// It runs scenarios with manual ticks and sequential ids.
type Harness struct {
	backend      persist.Backend
	closeBackend func() error
	tmpDir       string

	ids    *testutil.SequentialIDs
	cues   *testutil.CueRecorder
	logger *slog.Logger

	eng   *engine.Engine
	ticks *engine.ManualTickSource

	refs     map[string]timer.ID
	names    map[timer.ID]string
	cuesSeen int
	result   *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against fresh storage for isolation. Step failures and
// assertion failures are reported in the Result; the returned error is only
// for infrastructure problems.
//
// Execution flow:
// 1. Open storage and boot an engine (restoring nothing)
// 2. Execute steps, recording the trace and any cues
// 3. Capture the final state
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer h.close()

	ctx := context.Background()
	if _, err := h.boot(ctx); err != nil {
		return nil, fmt.Errorf("failed to boot engine: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i+1, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	h.captureFinal()

	actx := &AssertionContext{
		Engine: h.eng,
		Refs:   h.refs,
		Cues:   h.cues,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	h := &Harness{
		ids:    testutil.NewSequentialIDs("t"),
		cues:   testutil.NewCueRecorder(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in scenarios
		refs:   make(map[string]timer.ID),
		names:  make(map[timer.ID]string),
		result: NewResult(scenario.Name),
	}

	switch scenario.Storage {
	case "", persist.BackendSQLite:
		st, err := store.Open(store.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		h.backend = persist.NewSQLiteBackend(st, persist.DefaultSlot)
		h.closeBackend = st.Close
	default:
		dir, err := os.MkdirTemp("", "multitimer-scenario-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		backend, closeFn, err := persist.Open(scenario.Storage, filepath.Join(dir, "timers."+scenario.Storage))
		if err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
		h.tmpDir = dir
		h.backend = backend
		h.closeBackend = closeFn
	}
	return h, nil
}

func (h *Harness) close() {
	if h.eng != nil {
		h.eng.Close()
	}
	if h.closeBackend != nil {
		h.closeBackend()
	}
	if h.tmpDir != "" {
		os.RemoveAll(h.tmpDir)
	}
}

// boot creates a fresh engine over the shared storage and restores it.
func (h *Harness) boot(ctx context.Context) (int, error) {
	h.ticks = engine.NewManualTickSource()
	adapter := persist.NewAdapter(h.backend,
		persist.WithNow(func() time.Time { return savedAt }),
		persist.WithLogger(h.logger),
	)
	h.eng = engine.New(
		engine.WithPersister(adapter),
		engine.WithIDGenerator(h.ids),
		engine.WithTickSource(h.ticks),
		engine.WithNotifier(h.cues),
		engine.WithLogger(h.logger),
	)
	return h.eng.Restore(ctx)
}

// execute runs one step and records it.
func (h *Harness) execute(ctx context.Context, n int, step Step) error {
	event := TraceEvent{Step: n}
	var err error

	switch {
	case step.Create != nil:
		c := step.Create
		event.Op = "create"
		event.Ref = c.Ref
		event.Detail = fmt.Sprintf("%q %q %gmin", c.Student, c.Exam, c.Minutes)
		var secs int
		secs, err = timer.MinutesToSeconds(c.Minutes)
		if err == nil {
			var id timer.ID
			id, err = h.eng.Create(ctx, c.Student, c.Exam, secs)
			if err == nil {
				h.refs[c.Ref] = id
				h.names[id] = c.Ref
				event.Detail += " -> " + string(id)
			}
		}

	case step.Start != "":
		event.Op, event.Ref = "start", step.Start
		err = h.eng.Start(ctx, h.refs[step.Start])

	case step.Pause != "":
		event.Op, event.Ref = "pause", step.Pause
		err = h.eng.Pause(ctx, h.refs[step.Pause])

	case step.Delete != "":
		event.Op, event.Ref = "delete", step.Delete
		err = h.eng.Delete(ctx, h.refs[step.Delete])

	case step.Tick != nil:
		event.Op = "tick"
		if step.Tick.Ref == "" {
			event.Detail = fmt.Sprintf("all x%d", step.Tick.Count)
			h.ticks.Advance(step.Tick.Count)
			break
		}
		event.Ref = step.Tick.Ref
		event.Detail = fmt.Sprintf("x%d", step.Tick.Count)
		for i := 0; i < step.Tick.Count && err == nil; i++ {
			err = h.eng.Tick(ctx, h.refs[step.Tick.Ref])
		}

	case step.Ack != nil:
		event.Op, event.Ref, event.Detail = "ack", step.Ack.Ref, step.Ack.Kind
		err = h.eng.Acknowledge(ctx, h.refs[step.Ack.Ref], timer.AlarmKind(step.Ack.Kind))

	case step.Clear != nil:
		event.Op = "clear"
		err = h.eng.ClearAll(ctx)

	case step.Restart != nil:
		event.Op = "restart"
		if cerr := h.eng.Close(); cerr != nil {
			return cerr
		}
		var restored int
		restored, err = h.boot(ctx)
		if err != nil {
			return err
		}
		event.Detail = fmt.Sprintf("restored=%d", restored)
	}

	if err != nil {
		event.Error = errorName(err)
	}
	h.result.Trace = append(h.result.Trace, event)

	if event.Error != step.ExpectError {
		switch {
		case step.ExpectError == "":
			h.result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", n, event.Op, err))
		case err == nil:
			h.result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got success", n, event.Op, step.ExpectError))
		default:
			h.result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %v", n, event.Op, step.ExpectError, err))
		}
	}

	h.recordCues(n)
	return nil
}

// recordCues appends cues delivered since the last call.
func (h *Harness) recordCues(n int) {
	cues := h.cues.Cues()
	for _, c := range cues[h.cuesSeen:] {
		h.result.Trace = append(h.result.Trace, TraceEvent{
			Step:   n,
			Op:     "cue",
			Ref:    h.refName(c.TimerID),
			Detail: string(c.Kind),
		})
	}
	h.cuesSeen = len(cues)
}

func (h *Harness) captureFinal() {
	for _, t := range h.eng.Snapshot() {
		h.result.Final = append(h.result.Final, FinalTimer{
			Ref:       h.refName(t.ID),
			ID:        string(t.ID),
			Remaining: t.RemainingSeconds,
			Running:   t.IsRunning,
			Bound:     h.eng.Bound(t.ID),
			FiveMin:   string(t.Alarms.FiveMin),
			End:       string(t.Alarms.End),
		})
	}
}

func (h *Harness) refName(id timer.ID) string {
	if ref, ok := h.names[id]; ok {
		return ref
	}
	return string(id)
}

// errorName maps an engine error to its scenario name.
func errorName(err error) string {
	switch timer.CodeOf(err) {
	case timer.ErrCodeValidation:
		return ExpectValidation
	case timer.ErrCodeNotFound:
		return ExpectNotFound
	}
	return "error"
}
