package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/multitimer/internal/timer"
)

// ErrSlotNotFound is returned by LoadTimers when nothing was ever saved under
// the slot.
var ErrSlotNotFound = errors.New("slot not found")

// SlotInfo describes the last save of a slot.
type SlotInfo struct {
	Slot       string
	SavedAt    time.Time
	TimerCount int
}

// SaveTimers replaces the contents of slot with timers, preserving order.
// The previous contents are deleted and the new rows inserted in one
// transaction.
func (s *Store) SaveTimers(ctx context.Context, slot string, timers []timer.Timer, savedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save timers: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM timers WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("save timers: clear slot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO slots (slot, saved_at, timer_count)
		VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET saved_at = excluded.saved_at, timer_count = excluded.timer_count
	`, slot, savedAt.UTC().Format(time.RFC3339Nano), len(timers))
	if err != nil {
		return fmt.Errorf("save timers: upsert slot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO timers
		(slot, position, id, student_name, exam_name, duration_seconds, remaining_seconds, is_running, five_min_state, end_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save timers: prepare: %w", err)
	}
	defer stmt.Close()

	for i, t := range timers {
		_, err := stmt.ExecContext(ctx,
			slot,
			i,
			string(t.ID),
			t.StudentName,
			t.ExamName,
			t.DurationSeconds,
			t.RemainingSeconds,
			t.IsRunning,
			string(t.Alarms.FiveMin),
			string(t.Alarms.End),
		)
		if err != nil {
			return fmt.Errorf("save timers: insert %q: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save timers: commit: %w", err)
	}
	return nil
}

// LoadTimers returns the collection saved under slot in saved order.
// Returns ErrSlotNotFound if the slot was never written. Rows are returned
// as stored; callers validate them.
func (s *Store) LoadTimers(ctx context.Context, slot string) ([]timer.Timer, SlotInfo, error) {
	info, err := s.slotInfo(ctx, slot)
	if err != nil {
		return nil, SlotInfo{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_name, exam_name, duration_seconds, remaining_seconds, is_running, five_min_state, end_state
		FROM timers
		WHERE slot = ?
		ORDER BY position ASC
	`, slot)
	if err != nil {
		return nil, SlotInfo{}, fmt.Errorf("query timers: %w", err)
	}
	defer rows.Close()

	timers := []timer.Timer{}
	for rows.Next() {
		var (
			t              timer.Timer
			id             string
			fiveMin, ended string
		)
		if err := rows.Scan(&id, &t.StudentName, &t.ExamName, &t.DurationSeconds,
			&t.RemainingSeconds, &t.IsRunning, &fiveMin, &ended); err != nil {
			return nil, SlotInfo{}, fmt.Errorf("scan timer: %w", err)
		}
		t.ID = timer.ID(id)
		t.Alarms = timer.Alarms{FiveMin: timer.AlarmState(fiveMin), End: timer.AlarmState(ended)}
		timers = append(timers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, SlotInfo{}, fmt.Errorf("iterate timers: %w", err)
	}

	return timers, info, nil
}

// DeleteSlot removes slot and its timers. Deleting a missing slot is a no-op.
func (s *Store) DeleteSlot(ctx context.Context, slot string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

func (s *Store) slotInfo(ctx context.Context, slot string) (SlotInfo, error) {
	var savedAt string
	info := SlotInfo{Slot: slot}
	err := s.db.QueryRowContext(ctx, `
		SELECT saved_at, timer_count FROM slots WHERE slot = ?
	`, slot).Scan(&savedAt, &info.TimerCount)
	if errors.Is(err, sql.ErrNoRows) {
		return SlotInfo{}, ErrSlotNotFound
	}
	if err != nil {
		return SlotInfo{}, fmt.Errorf("query slot: %w", err)
	}
	info.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return SlotInfo{}, fmt.Errorf("parse saved_at %q: %w", savedAt, err)
	}
	return info, nil
}
