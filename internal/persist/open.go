package persist

import (
	"fmt"

	"github.com/roach88/multitimer/internal/store"
)

// Backend kinds accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendCBOR   = "cbor"
)

// Open creates the backend named kind at path. The returned close function
// releases the backend's resources and is never nil.
func Open(kind, path string) (Backend, func() error, error) {
	noop := func() error { return nil }
	switch kind {
	case BackendSQLite, "":
		s, err := store.Open(path)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite backend: %w", err)
		}
		return NewSQLiteBackend(s, DefaultSlot), s.Close, nil
	case BackendJSON, BackendCBOR:
		codec, err := CodecFor(kind)
		if err != nil {
			return nil, noop, err
		}
		return NewFileBackend(path, codec), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown storage backend %q (want sqlite, json or cbor)", kind)
}
