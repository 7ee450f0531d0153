// Package store provides SQLite-backed durable storage for timer collections.
//
// A collection is saved under a named slot. Saving overwrites the whole slot
// in a single transaction, so readers never observe a half-written
// collection. Rows keep the order the engine presented them in via an
// explicit position column.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Slot deletion cascades to its timers
//
// The store does not validate timer invariants. Records read back are
// checked by the persist package, which decides what to drop.
package store
