// Package engine implements the multi-timer scheduling engine.
//
// The Engine is the authoritative Timer Store. It owns three collaborators:
//
//   - Scheduler: one periodic tick source per running timer, keyed by id
//   - Dispatcher: the per-timer alarm state machine and cue delivery
//   - Persister: the durable snapshot written after every mutation
//
// ARCHITECTURE:
//
// Single Serialization Point:
// Every command (Create, Start, Pause, Delete, ClearAll, ReplaceAll,
// Acknowledge) and every tick takes the Engine mutex. Mutations are therefore
// linearized no matter how many tick goroutines are running, and the
// Persister only ever sees a complete, consistent snapshot.
//
// Tick Flow:
//  1. A TickSource fires the callback registered by Scheduler.Bind
//  2. The callback carries (id, generation); the Engine re-checks under the
//     lock that the binding is still current, otherwise the tick is dropped
//  3. Remaining time is decremented; threshold crossings fire alarms
//  4. The snapshot is persisted
//  5. After the lock is released, cues go to the Notifier and the new
//     snapshot goes to Listeners
//
// Cue and change delivery happens outside the lock, so a Notifier or Listener
// may call back into the Engine. Deliveries are stamped with a monotonic seq
// from Clock so out-of-order arrivals from concurrent ticks can be detected.
//
// Restarting:
// Restore loads the persisted collection and re-binds every timer that was
// running at save time. Time that passed while the process was down is not
// subtracted.
package engine
