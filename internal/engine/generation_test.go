package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_StaleTickIgnored(t *testing.T) {
	ctx := context.Background()
	e := New(
		WithTickSource(NewManualTickSource()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	defer e.Close()

	id, err := e.Create(ctx, "Ana", "Math", 60)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx, id))

	// Capture the generation of the first binding, then rebind.
	e.mu.Lock()
	oldGen := e.sched.bindings[id].gen
	e.mu.Unlock()
	require.NoError(t, e.Pause(ctx, id))
	require.NoError(t, e.Start(ctx, id))

	e.onBindingTick(id, oldGen)
	got, err := e.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 60, got.RemainingSeconds, "tick from released binding must be ignored")
}
