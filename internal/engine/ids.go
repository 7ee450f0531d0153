package engine

import (
	"github.com/google/uuid"

	"github.com/roach88/multitimer/internal/timer"
)

// IDGenerator assigns identities to new timers.
// Implemented by UUIDv7Generator and testutil.SequentialIDs.
type IDGenerator interface {
	NewID() timer.ID
}

// UUIDv7Generator generates time-sortable UUIDv7 timer ids.
//
// UUIDv7 embeds a millisecond timestamp in the most significant bits and the
// google/uuid implementation keeps a monotonic counter within the same
// millisecond, so ids are unique within a process and sort by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) NewID() timer.ID {
	return timer.ID(uuid.Must(uuid.NewV7()).String())
}
