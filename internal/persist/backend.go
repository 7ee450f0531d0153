package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/multitimer/internal/store"
	"github.com/roach88/multitimer/internal/timer"
)

// Backend stores one Envelope per slot.
type Backend interface {
	// Write replaces the saved Envelope.
	Write(ctx context.Context, env Envelope) error
	// Read returns the saved Envelope, or ErrNoState.
	Read(ctx context.Context) (Envelope, error)
	// Describe names the backend and its location for logs.
	Describe() string
}

// FileBackend keeps the Envelope in a single file.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a crash mid-write leaves the previous state readable.
type FileBackend struct {
	mu    sync.Mutex
	path  string
	codec Codec
}

// NewFileBackend creates a file backend. A nil codec means JSONCodec.
func NewFileBackend(path string, codec Codec) *FileBackend {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &FileBackend{path: path, codec: codec}
}

// Describe returns "<codec> file <path>".
func (b *FileBackend) Describe() string {
	return fmt.Sprintf("%s file %s", b.codec.Name(), b.path)
}

// Write encodes env and atomically replaces the file.
func (b *FileBackend) Write(_ context.Context, env Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.codec.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", b.codec.Name(), err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Read decodes the file. Returns ErrNoState if it does not exist.
func (b *FileBackend) Read(_ context.Context) (Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return Envelope{}, ErrNoState
	}
	if err != nil {
		return Envelope{}, err
	}

	var env Envelope
	if err := b.codec.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", b.codec.Name(), err)
	}
	return env, nil
}

// SQLiteBackend keeps the collection as rows of a store.Store slot.
// The store owns versioning through its schema, so Read always reports
// CurrentVersion.
type SQLiteBackend struct {
	store *store.Store
	slot  string
}

// NewSQLiteBackend creates a backend writing to slot. An empty slot means
// DefaultSlot.
func NewSQLiteBackend(s *store.Store, slot string) *SQLiteBackend {
	if slot == "" {
		slot = DefaultSlot
	}
	return &SQLiteBackend{store: s, slot: slot}
}

// Describe returns "sqlite slot <slot>".
func (b *SQLiteBackend) Describe() string {
	return "sqlite slot " + b.slot
}

// Write replaces the slot's rows.
func (b *SQLiteBackend) Write(ctx context.Context, env Envelope) error {
	timers := make([]timer.Timer, 0, len(env.Timers))
	for _, r := range env.Timers {
		timers = append(timers, r.Timer())
	}
	return b.store.SaveTimers(ctx, b.slot, timers, env.SavedAt)
}

// Read loads the slot's rows.
func (b *SQLiteBackend) Read(ctx context.Context) (Envelope, error) {
	timers, info, err := b.store.LoadTimers(ctx, b.slot)
	if errors.Is(err, store.ErrSlotNotFound) {
		return Envelope{}, ErrNoState
	}
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Version: CurrentVersion,
		SavedAt: info.SavedAt,
		Slot:    b.slot,
		Timers:  FromTimers(timers),
	}, nil
}
