package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/multitimer/internal/config"
	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/persist"
)

const defaultConfigName = config.DefaultFile

// session is the configuration, logger and storage shared by every command.
type session struct {
	cfg          config.Config
	logger       *slog.Logger
	backend      persist.Backend
	closeBackend func() error
}

// openSession loads configuration, applies flag overrides, configures
// logging to logOut and opens the timer store.
func openSession(opts *RootOptions, logOut io.Writer) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level := cfg.LogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	path := cfg.StoragePath()
	logger.Debug("opening timer store", "backend", cfg.Storage.Backend, "path", path)
	backend, closeFn, err := persist.Open(cfg.Storage.Backend, path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open timer store", err)
	}

	return &session{cfg: cfg, logger: logger, backend: backend, closeBackend: closeFn}, nil
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	path, required := opts.ConfigPath, true
	if path == "" {
		path, required = config.DefaultFile, false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return config.Config{}, err
	}

	if opts.Backend != "" {
		switch opts.Backend {
		case persist.BackendSQLite, persist.BackendJSON, persist.BackendCBOR:
		default:
			return config.Config{}, fmt.Errorf("unknown backend %q (want sqlite, json or cbor)", opts.Backend)
		}
		if opts.Backend != cfg.Storage.Backend && opts.Database == "" {
			// The configured path belongs to the configured backend.
			cfg.Storage.Path = ""
		}
		cfg.Storage.Backend = opts.Backend
	}
	if opts.Database != "" {
		cfg.Storage.Path = opts.Database
	}
	return cfg, nil
}

// newEngine restores an Engine over the session's store. Load problems are
// logged and the engine starts empty.
func (s *session) newEngine(ctx context.Context, extra ...engine.Option) (*engine.Engine, error) {
	interval, err := s.cfg.TickInterval()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid tick interval", err)
	}

	adapter := persist.NewAdapter(s.backend, persist.WithLogger(s.logger))
	opts := []engine.Option{
		engine.WithPersister(adapter),
		engine.WithTickInterval(interval),
		engine.WithLogger(s.logger),
		engine.WithContext(ctx),
	}
	eng := engine.New(append(opts, extra...)...)

	restored, err := eng.Restore(ctx)
	if err != nil {
		eng.Close()
		return nil, WrapExitError(ExitCommandError, "failed to restore timers", err)
	}
	s.logger.Info("timers restored", "count", restored, "store", s.backend.Describe())
	return eng, nil
}

func (s *session) Close() {
	if err := s.closeBackend(); err != nil {
		s.logger.Error("error closing timer store", "error", err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM, or when parent is done.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
