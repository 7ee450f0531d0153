package engine

import "errors"

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("engine closed")

// ErrIDExhausted is returned when the IDGenerator keeps producing ids that are
// already in use.
var ErrIDExhausted = errors.New("could not allocate a unique timer id")
