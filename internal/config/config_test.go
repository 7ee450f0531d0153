package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, Config{
		Storage: Storage{Backend: "sqlite", Path: ""},
		Tick:    "1s",
		Server:  Server{Addr: "127.0.0.1:8080"},
		Log:     Log{Level: "info"},
	}, cfg)
	assert.Equal(t, "multitimer.db", cfg.StoragePath())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())

	d, err := cfg.TickInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.cue")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(path, true)
	assert.Error(t, err, "an explicitly requested file must exist")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multitimer.cue")
	src := `
storage: {
	backend: "cbor"
	path:    "/var/lib/multitimer/state.cbor"
}
tick: "250ms"
log: level: "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "cbor", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/multitimer/state.cbor", cfg.StoragePath())
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr, "unset fields keep defaults")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	d, err := cfg.TickInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestParse_BackendDefaultPaths(t *testing.T) {
	tests := []struct {
		backend string
		path    string
	}{
		{"sqlite", "multitimer.db"},
		{"json", "multitimer.json"},
		{"cbor", "multitimer.cbor"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg, err := Parse([]byte(`storage: backend: "`+tt.backend+`"`), "test.cue")
			require.NoError(t, err)
			assert.Equal(t, tt.path, cfg.StoragePath())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown backend", `storage: backend: "postgres"`},
		{"unknown field", `storage: bakend: "json"`},
		{"bad tick", `tick: "soon"`},
		{"zero tick", `tick: "0s"`},
		{"bad log level", `log: level: "chatty"`},
		{"wrong type", `server: addr: 8080`},
		{"syntax", `storage: {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			var cfgErr *Error
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestParse_ErrorHasPosition(t *testing.T) {
	_, err := Parse([]byte("log: level: \"info\"\nstorage: {\n"), "multitimer.cue")
	require.Error(t, err)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, cfgErr.Pos.IsValid())
	assert.Contains(t, err.Error(), "multitimer.cue:")
}
