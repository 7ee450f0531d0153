// Package timer defines the durable record for one exam countdown.
//
// A Timer holds only durable fields: identity, display names, the configured
// duration, the remaining time, the running flag and the per-kind alarm state.
// Runtime handles (tick sources) never live here; the engine's Scheduler keeps
// them keyed by ID.
//
// # Invariants
//
//   - 0 <= RemainingSeconds <= DurationSeconds
//   - RemainingSeconds == 0 implies IsRunning == false
//   - Alarm states only move forward: pending -> fired -> acknowledged
//
// Validate checks the first two for records coming back from storage.
package timer
