package persist

import (
	"errors"
	"fmt"
)

// ErrNoState is returned by a Backend when nothing was ever saved.
var ErrNoState = errors.New("no saved state")

// LoadError reports saved state that could not be read or decoded.
// Callers recover by starting with an empty collection.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError reports a failed save. The in-memory state stays authoritative.
type WriteError struct {
	Source string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Source, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsLoadError returns true if err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsWriteError returns true if err is or wraps a *WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
