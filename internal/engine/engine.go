package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/multitimer/internal/timer"
)

// Persister stores and retrieves the ordered timer collection.
// Implemented by persist.Adapter.
type Persister interface {
	Save(ctx context.Context, timers []timer.Timer) error
	Load(ctx context.Context) ([]timer.Timer, error)
}

// Change is delivered to Listeners after every mutation.
type Change struct {
	Seq    int64         `json:"seq"`
	Timers []timer.Timer `json:"timers"`
}

// Listener observes the collection after every mutation. TimersChanged is
// always called without the Engine lock held; deliveries from concurrent
// ticks may arrive out of order, use Change.Seq to discard stale ones.
type Listener interface {
	TimersChanged(Change)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Change)

// TimersChanged calls f(c).
func (f ListenerFunc) TimersChanged(c Change) { f(c) }

// Engine is the authoritative Timer Store.
//
// INVARIANTS (all maintained under mu):
//   - order lists every id in timers exactly once, in insertion order
//   - timers[id].IsRunning == sched.Bound(id)
//   - 0 <= RemainingSeconds <= DurationSeconds
type Engine struct {
	mu        sync.Mutex
	order     []timer.ID
	timers    map[timer.ID]*timer.Timer
	sched     *Scheduler
	alarms    *Dispatcher
	clock     *Clock
	persister Persister
	ids       IDGenerator
	logger    *slog.Logger
	listeners []Listener
	tickCtx   context.Context
	closed    bool

	lastPersistErr error

	// construction-time settings, consumed by New
	tickSource   TickSource
	tickInterval time.Duration
	notifier     Notifier
}

// Option configures an Engine.
type Option func(*Engine)

// WithPersister sets the durable store written after every mutation.
// Without one the Engine is memory-only.
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persister = p }
}

// WithIDGenerator overrides the default UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithTickSource overrides the default SystemTickSource.
func WithTickSource(s TickSource) Option {
	return func(e *Engine) { e.tickSource = s }
}

// WithTickInterval sets the period of one simulated second.
//
// Default: 1s (DefaultTickInterval)
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// WithNotifier sets the alarm cue receiver.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithListener registers a change observer. May be given more than once.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithContext sets the context passed to the Persister on tick-driven saves.
// Default: context.Background().
func WithContext(ctx context.Context) Option {
	return func(e *Engine) { e.tickCtx = ctx }
}

// New creates an empty Engine. Call Restore to load persisted state.
func New(opts ...Option) *Engine {
	e := &Engine{
		timers:  make(map[timer.ID]*timer.Timer),
		clock:   NewClock(),
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		tickCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sched = NewScheduler(e.tickSource, e.tickInterval, e.onBindingTick)
	e.alarms = NewDispatcher(e.notifier, e.clock, e.logger)
	return e
}

// outbox collects deliveries produced under the lock.
type outbox struct {
	cues   []Cue
	change *Change
}

// Create appends a new stopped timer and returns its id.
func (e *Engine) Create(ctx context.Context, studentName, examName string, durationSeconds int) (timer.ID, error) {
	if err := timer.ValidateFields(studentName, examName, durationSeconds); err != nil {
		return "", fmt.Errorf("create timer: %w", err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrClosed
	}

	id, err := e.allocateIDLocked()
	if err != nil {
		e.mu.Unlock()
		return "", err
	}
	t, err := timer.New(id, studentName, examName, durationSeconds)
	if err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("create timer: %w", err)
	}

	e.timers[id] = &t
	e.order = append(e.order, id)
	e.logger.Info("timer created", "timer", id, "student", t.StudentName, "exam", t.ExamName, "duration", durationSeconds)

	out := e.commitLocked(ctx)
	e.mu.Unlock()
	e.flush(out)
	return id, nil
}

// allocateIDLocked draws ids until one is unused.
func (e *Engine) allocateIDLocked() (timer.ID, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id := e.ids.NewID()
		if _, exists := e.timers[id]; !exists && id != "" {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Start binds a tick source to the timer. Starting a running or finished
// timer is a no-op.
func (e *Engine) Start(ctx context.Context, id timer.ID) error {
	return e.mutate(ctx, id, func(t *timer.Timer) bool {
		if t.IsRunning || t.RemainingSeconds == 0 {
			return false
		}
		if !e.sched.Bind(id) {
			// Binding without the running flag would break the invariant; heal it.
			e.logger.Warn("timer already bound while stopped", "timer", id)
		}
		t.IsRunning = true
		e.logger.Info("timer started", "timer", id, "remaining", t.RemainingSeconds)
		return true
	})
}

// Pause releases the tick source and keeps the remaining time. Pausing a
// stopped timer is a no-op.
func (e *Engine) Pause(ctx context.Context, id timer.ID) error {
	return e.mutate(ctx, id, func(t *timer.Timer) bool {
		if !t.IsRunning {
			return false
		}
		e.sched.Unbind(id)
		t.IsRunning = false
		e.logger.Info("timer paused", "timer", id, "remaining", t.RemainingSeconds)
		return true
	})
}

// Acknowledge silences a fired alarm. Acknowledging a pending or already
// acknowledged alarm is a no-op.
func (e *Engine) Acknowledge(ctx context.Context, id timer.ID, kind timer.AlarmKind) error {
	kind, err := timer.ParseAlarmKind(string(kind))
	if err != nil {
		return err
	}
	return e.mutate(ctx, id, func(t *timer.Timer) bool {
		return e.alarms.Acknowledge(t, kind)
	})
}

// mutate runs fn on the timer under the lock and commits if fn reports a
// change.
func (e *Engine) mutate(ctx context.Context, id timer.ID, fn func(t *timer.Timer) bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return timer.NewNotFoundError(id)
	}
	var out outbox
	if fn(t) {
		out = e.commitLocked(ctx)
	}
	e.mu.Unlock()
	e.flush(out)
	return nil
}

// Delete releases the timer's tick source and removes it together with its
// alarm state.
func (e *Engine) Delete(ctx context.Context, id timer.ID) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if _, ok := e.timers[id]; !ok {
		e.mu.Unlock()
		return timer.NewNotFoundError(id)
	}

	e.sched.Unbind(id)
	delete(e.timers, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.logger.Info("timer deleted", "timer", id)

	out := e.commitLocked(ctx)
	e.mu.Unlock()
	e.flush(out)
	return nil
}

// ClearAll releases every tick source and empties the collection.
func (e *Engine) ClearAll(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}

	released := e.sched.UnbindAll()
	count := len(e.order)
	e.timers = make(map[timer.ID]*timer.Timer)
	e.order = nil
	e.logger.Info("all timers cleared", "timers", count, "released_bindings", released)

	out := e.commitLocked(ctx)
	e.mu.Unlock()
	e.flush(out)
	return nil
}

// ReplaceAll atomically swaps the whole collection. Every previous binding is
// released and every incoming timer with IsRunning set is bound again. The
// incoming records must satisfy timer.Validate and have distinct ids;
// otherwise nothing changes.
func (e *Engine) ReplaceAll(ctx context.Context, timers []timer.Timer) error {
	next, order, err := indexTimers(timers)
	if err != nil {
		return err
	}
	return e.replace(ctx, next, order, true)
}

func indexTimers(timers []timer.Timer) (map[timer.ID]*timer.Timer, []timer.ID, error) {
	next := make(map[timer.ID]*timer.Timer, len(timers))
	order := make([]timer.ID, 0, len(timers))
	for i := range timers {
		t := timers[i]
		if err := t.Validate(); err != nil {
			return nil, nil, fmt.Errorf("replace timers: record %d: %w", i, err)
		}
		if _, dup := next[t.ID]; dup {
			return nil, nil, fmt.Errorf("replace timers: %w", timer.NewValidationError("id", fmt.Sprintf("duplicate id %q", t.ID)))
		}
		next[t.ID] = &t
		order = append(order, t.ID)
	}
	return next, order, nil
}

// replace installs next as the collection. With save false the Persister is
// not written, so state that failed to load stays where it is.
func (e *Engine) replace(ctx context.Context, next map[timer.ID]*timer.Timer, order []timer.ID, save bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}

	e.sched.UnbindAll()
	e.timers = next
	e.order = order
	resumed := 0
	for _, id := range order {
		if next[id].IsRunning {
			e.sched.Bind(id)
			resumed++
		}
	}
	e.logger.Info("timers replaced", "timers", len(order), "resumed", resumed)

	var out outbox
	if save {
		out = e.commitLocked(ctx)
	} else {
		out = e.changeLocked()
	}
	e.mu.Unlock()
	e.flush(out)
	return nil
}

// Restore loads the persisted collection and reconciles it: timers saved
// while running resume from their saved remaining time. Returns the number
// of timers loaded. Unreadable or rejected state is treated as "no prior
// state" in memory and left untouched in storage until the next command
// saves over it.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	if e.persister == nil {
		return 0, nil
	}
	timers, err := e.persister.Load(ctx)
	if err != nil {
		e.logger.Warn("loading timers failed, starting empty", "error", err)
		return 0, e.replace(ctx, map[timer.ID]*timer.Timer{}, nil, false)
	}
	next, order, err := indexTimers(timers)
	if err != nil {
		e.logger.Warn("persisted timers rejected, starting empty", "error", err)
		return 0, e.replace(ctx, map[timer.ID]*timer.Timer{}, nil, false)
	}
	if err := e.replace(ctx, next, order, true); err != nil {
		return 0, err
	}
	return len(order), nil
}

// Tick advances one timer by one second, exactly as its tick source would.
// A tick for a timer without a live binding has no effect. Returns
// NotFoundError when the timer does not exist.
func (e *Engine) Tick(ctx context.Context, id timer.ID) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return timer.NewNotFoundError(id)
	}
	var out outbox
	if e.sched.Bound(id) {
		out = e.tickLocked(ctx, t)
	}
	e.mu.Unlock()
	e.flush(out)
	return nil
}

// onBindingTick is the Scheduler callback. Runs on a tick source goroutine.
func (e *Engine) onBindingTick(id timer.ID, gen uint64) {
	e.mu.Lock()
	if e.closed || !e.sched.Current(id, gen) {
		// Released while this tick was in flight.
		e.mu.Unlock()
		return
	}
	t, ok := e.timers[id]
	if !ok {
		e.sched.Unbind(id)
		e.mu.Unlock()
		return
	}
	out := e.tickLocked(e.tickCtx, t)
	e.mu.Unlock()
	e.flush(out)
}

// tickLocked applies one tick to a bound timer.
func (e *Engine) tickLocked(ctx context.Context, t *timer.Timer) outbox {
	if t.RemainingSeconds == 0 {
		// Finished between scheduling and delivery: release and stop.
		e.sched.Unbind(t.ID)
		if !t.IsRunning {
			return outbox{}
		}
		t.IsRunning = false
		return e.commitLocked(ctx)
	}

	t.RemainingSeconds--
	e.logger.Debug("tick", "timer", t.ID, "remaining", t.RemainingSeconds)

	var cues []Cue
	if t.RemainingSeconds == timer.FiveMinuteThreshold {
		if cue, ok := e.alarms.Fire(t, timer.KindFiveMin); ok {
			cues = append(cues, cue)
		}
	}
	if t.RemainingSeconds == 0 {
		e.sched.Unbind(t.ID)
		t.IsRunning = false
		e.logger.Info("timer finished", "timer", t.ID)
		if cue, ok := e.alarms.Fire(t, timer.KindEnd); ok {
			cues = append(cues, cue)
		}
	}

	out := e.commitLocked(ctx)
	out.cues = cues
	return out
}

// commitLocked persists the current snapshot and prepares the change
// notification.
func (e *Engine) commitLocked(ctx context.Context) outbox {
	snap := e.snapshotLocked()
	if e.persister != nil {
		if err := e.persister.Save(ctx, snap); err != nil {
			e.lastPersistErr = err
			e.logger.Warn("persisting timers failed, keeping in-memory state", "error", err)
		} else {
			e.lastPersistErr = nil
		}
	}
	return e.changeOf(snap)
}

// changeLocked prepares a change notification without persisting.
func (e *Engine) changeLocked() outbox {
	return e.changeOf(e.snapshotLocked())
}

func (e *Engine) changeOf(snap []timer.Timer) outbox {
	if len(e.listeners) == 0 {
		return outbox{}
	}
	return outbox{change: &Change{Seq: e.clock.Next(), Timers: snap}}
}

// flush delivers what commitLocked and the Dispatcher produced.
// Must be called without the lock held.
func (e *Engine) flush(out outbox) {
	if out.change != nil {
		for _, l := range e.listeners {
			l.TimersChanged(*out.change)
		}
	}
	e.alarms.Deliver(out.cues)
}

func (e *Engine) snapshotLocked() []timer.Timer {
	snap := make([]timer.Timer, 0, len(e.order))
	for _, id := range e.order {
		snap = append(snap, *e.timers[id])
	}
	return snap
}

// Snapshot returns an ordered copy of every timer.
func (e *Engine) Snapshot() []timer.Timer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Get returns a copy of one timer.
func (e *Engine) Get(id timer.ID) (timer.Timer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.timers[id]
	if !ok {
		return timer.Timer{}, timer.NewNotFoundError(id)
	}
	return *t, nil
}

// Len returns the number of timers.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

// Bound reports whether id has a live tick source.
func (e *Engine) Bound(id timer.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Bound(id)
}

// BoundCount returns the number of live tick sources.
func (e *Engine) BoundCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Len()
}

// LastPersistError returns the error from the most recent save, or nil if it
// succeeded.
func (e *Engine) LastPersistError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPersistErr
}

// Close releases every tick source without touching timer state, so timers
// that were running are still marked running in storage and resume on the
// next Restore. Further commands return ErrClosed. Safe to call twice.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	released := e.sched.UnbindAll()
	e.logger.Info("engine closed", "released_bindings", released)
	return nil
}
