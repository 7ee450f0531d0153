// Package persist saves and restores the timer collection.
//
// The Adapter implements engine.Persister on top of a Backend. Every save
// overwrites a single well-known slot with an Envelope: a versioned wrapper
// around the ordered durable fields of every timer. Runtime handles such as
// tick bindings are never persisted.
//
// Backends:
//   - SQLiteBackend: rows in a store.Store, one transaction per save
//   - FileBackend: the whole Envelope in one file, encoded by a Codec
//     (JSONCodec or CBORCodec), replaced atomically via rename
//
// Loading is fail soft. A missing slot is an empty collection. Unreadable or
// malformed data is reported as *LoadError and the caller starts empty.
// Individual records that break timer invariants are dropped with a warning.
package persist
