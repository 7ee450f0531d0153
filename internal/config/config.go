// Package config loads multitimer settings from a CUE file validated
// against an embedded schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is the config file looked up when no --config flag is given.
const DefaultFile = "multitimer.cue"

// Config is the decoded configuration.
type Config struct {
	Storage Storage `json:"storage"`
	Tick    string  `json:"tick"`
	Server  Server  `json:"server"`
	Log     Log     `json:"log"`
}

// Storage selects the persistence backend.
type Storage struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// Server configures `multitimer serve`.
type Server struct {
	Addr string `json:"addr"`
}

// Log configures the slog handler.
type Log struct {
	Level string `json:"level"`
}

// Error is a configuration problem, positioned when CUE knows where.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg, err := decode(nil, "")
	if err != nil {
		panic(fmt.Sprintf("embedded config schema is invalid: %v", err))
	}
	return cfg
}

// Load reads path and returns the validated configuration. A missing file
// yields Default() unless required is set.
func Load(path string, required bool) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decode(data, path)
}

// Parse validates CUE source. filename is used in error positions.
func Parse(data []byte, filename string) (Config, error) {
	return decode(data, filename)
}

func decode(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	value := schema.LookupPath(cue.ParsePath("#Config"))

	if data != nil {
		file := ctx.CompileBytes(data, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return Config{}, formatCUEError(err)
		}
		value = value.Unify(file)
	}

	if err := value.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	if err := value.Validate(); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	if _, err := cfg.TickInterval(); err != nil {
		return Config{}, &Error{Field: "tick", Message: err.Error(), Pos: value.LookupPath(cue.ParsePath("tick")).Pos()}
	}
	return cfg, nil
}

// TickInterval parses Tick. It must be positive.
func (c Config) TickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Tick)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	return d, nil
}

// LogLevel maps Log.Level to a slog level. Unknown values mean Info.
func (c Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// StoragePath returns Storage.Path, or a backend-specific default file name
// in the working directory.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	switch c.Storage.Backend {
	case "json":
		return "multitimer.json"
	case "cbor":
		return "multitimer.cbor"
	}
	return "multitimer.db"
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	cfgErr := &Error{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
