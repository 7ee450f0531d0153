package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve timers over HTTP and WebSocket",
		Long: `Run every timer in the store behind a JSON API.

Browsers connected to /api/ws receive a full snapshot after every change
and a cue message when an alarm fires.

Example:
  multitimer serve
  multitimer serve --addr :9000 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := signalContext(cmd.Context(), sess.logger)
	defer cancel()

	hub := server.NewHub(sess.logger)
	go hub.Run(ctx)

	eng, err := sess.newEngine(ctx, engine.WithListener(hub), engine.WithNotifier(hub))
	if err != nil {
		return err
	}
	defer eng.Close()

	addr := opts.Addr
	if addr == "" {
		addr = sess.cfg.Server.Addr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving timers on http://%s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := server.New(eng, hub, sess.logger).ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitCommandError, "server error", err)
	}
	sess.logger.Info("server stopped gracefully")
	return nil
}
