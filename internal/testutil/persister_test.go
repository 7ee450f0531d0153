package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multitimer/internal/timer"
)

func TestMemoryPersister_SaveLoad(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()

	tm, err := timer.New("t1", "Ana", "Math", 60)
	require.NoError(t, err)

	require.NoError(t, p.Save(ctx, []timer.Timer{tm}))
	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []timer.Timer{tm}, loaded)
	assert.Equal(t, 1, p.Saves())
}

func TestMemoryPersister_InjectedFailures(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()

	p.FailSaves(true)
	assert.ErrorIs(t, p.Save(ctx, nil), ErrInjected)
	assert.Equal(t, 0, p.Saves())

	p.FailLoads(true)
	_, err := p.Load(ctx)
	assert.ErrorIs(t, err, ErrInjected)
}
