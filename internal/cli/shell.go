package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/multitimer/internal/console"
	"github.com/roach88/multitimer/internal/engine"
)

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run timers in an interactive console",
		Long: `Open an interactive console that runs every timer in the store.

Running timers tick once per tick interval while the console is open and
ring the terminal bell when an alarm fires. Type 'help' for commands.

Example:
  multitimer shell
  multitimer shell --backend json --db ./room-12.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(rootOpts, cmd)
		},
	}
}

func runShell(opts *RootOptions, cmd *cobra.Command) error {
	// Piped input is read as a script without terminal handling.
	var (
		rlIn   io.ReadCloser
		rlOut  io.Writer
		out    io.Writer
		logOut io.Writer
	)
	if in := cmd.InOrStdin(); in != os.Stdin {
		rlIn, rlOut = io.NopCloser(in), io.Discard
		out, logOut = cmd.OutOrStdout(), cmd.ErrOrStderr()
	}

	rl, err := console.NewReadline(rlIn, rlOut)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start console", err)
	}
	if out == nil {
		out, logOut = rl.Stdout(), rl.Stderr()
	}

	sess, err := openSession(opts, logOut)
	if err != nil {
		rl.Close()
		return err
	}
	defer sess.Close()

	ctx, cancel := signalContext(cmd.Context(), sess.logger)
	defer cancel()

	eng, err := sess.newEngine(ctx, engine.WithNotifier(console.NewBell(out)))
	if err != nil {
		rl.Close()
		return err
	}
	defer eng.Close()

	return console.Run(ctx, rl, console.NewShell(eng, out))
}
