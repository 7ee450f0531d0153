package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/multitimer/internal/console"
	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/render"
	"github.com/roach88/multitimer/internal/timer"
)

// oneShot restores the store without ticking, runs fn and checks that the
// result was saved. Running timers stay marked running for the next shell
// or serve.
func oneShot(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, eng *engine.Engine, f *OutputFormatter) error) error {
	sess, err := openSession(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	eng, err := sess.newEngine(ctx, engine.WithTickSource(engine.IdleTickSource{}))
	if err != nil {
		return err
	}
	defer eng.Close()

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if err := fn(ctx, eng, f); err != nil {
		return f.Reject(err)
	}
	if err := eng.LastPersistError(); err != nil {
		return WrapExitError(ExitCommandError, "failed to save timers", err)
	}
	return nil
}

// rowOf returns the current row of id.
func rowOf(eng *engine.Engine, id timer.ID) (render.Row, error) {
	for i, t := range eng.Snapshot() {
		if t.ID == id {
			return render.NewRow(i+1, t), nil
		}
	}
	return render.Row{}, timer.NewNotFoundError(id)
}

// refCommand builds a command that applies op to the timer named by its
// single <ref> argument and prints the resulting row.
func refCommand(opts *RootOptions, use, short, verb string, op func(ctx context.Context, eng *engine.Engine, id timer.ID) error) *cobra.Command {
	return &cobra.Command{
		Use:           use + " <ref>",
		Short:         short,
		Long:          short + ".\n\n<ref> is a row number, a timer id, or a unique id prefix.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(opts, cmd, func(ctx context.Context, eng *engine.Engine, f *OutputFormatter) error {
				id, err := console.Resolve(eng.Snapshot(), args[0])
				if err != nil {
					return err
				}
				if err := op(ctx, eng, id); err != nil {
					return err
				}
				row, err := rowOf(eng, id)
				if err != nil {
					return err
				}
				return f.Success(row, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s %s (%s, %s): %s\n", verb, row.ID, row.StudentName, row.ExamName, row.Action)
					return err
				})
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "Show every stored timer",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(rootOpts, cmd, func(_ context.Context, eng *engine.Engine, f *OutputFormatter) error {
				rows := render.Rows(eng.Snapshot())
				return f.Success(rows, func(w io.Writer) error {
					return render.WriteTable(w, rows)
				})
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <student> <exam> <minutes>",
		Short: "Add a stopped timer",
		Long: `Add a timer for one student's exam. Minutes may be fractional and are
rounded to whole seconds.

Example:
  multitimer add "Ana Lima" Math 45
  multitimer add Ben Physics 1.5`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine, f *OutputFormatter) error {
				minutes, err := strconv.ParseFloat(args[2], 64)
				if err != nil {
					return timer.NewValidationError("durationMinutes", fmt.Sprintf("%q is not a number", args[2]))
				}
				secs, err := timer.MinutesToSeconds(minutes)
				if err != nil {
					return err
				}
				id, err := eng.Create(ctx, args[0], args[1], secs)
				if err != nil {
					return err
				}
				row, err := rowOf(eng, id)
				if err != nil {
					return err
				}
				return f.Success(row, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added %s (row %d)\n", row.ID, row.Index)
					return err
				})
			})
		},
	}
}

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := refCommand(rootOpts, "start", "Mark a timer running", "Started",
		func(ctx context.Context, eng *engine.Engine, id timer.ID) error {
			return eng.Start(ctx, id)
		})
	cmd.Aliases = []string{"resume"}
	return cmd
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(rootOpts *RootOptions) *cobra.Command {
	return refCommand(rootOpts, "pause", "Pause a timer", "Paused",
		func(ctx context.Context, eng *engine.Engine, id timer.ID) error {
			return eng.Pause(ctx, id)
		})
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <ref>",
		Aliases:       []string{"rm"},
		Short:         "Delete a timer",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine, f *OutputFormatter) error {
				id, err := console.Resolve(eng.Snapshot(), args[0])
				if err != nil {
					return err
				}
				if err := eng.Delete(ctx, id); err != nil {
					return err
				}
				return f.Success(map[string]string{"deleted": string(id)}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted %s\n", id)
					return err
				})
			})
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Delete every timer",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine, f *OutputFormatter) error {
				n := eng.Len()
				if err := eng.ClearAll(ctx); err != nil {
					return err
				}
				return f.Success(map[string]int{"cleared": n}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Cleared %d timer(s)\n", n)
					return err
				})
			})
		},
	}
}

// NewAckCommand creates the ack command.
func NewAckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ack <ref> <five_min|end>",
		Short:         "Acknowledge a fired alarm",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine, f *OutputFormatter) error {
				kind, err := timer.ParseAlarmKind(args[1])
				if err != nil {
					return err
				}
				id, err := console.Resolve(eng.Snapshot(), args[0])
				if err != nil {
					return err
				}
				if err := eng.Acknowledge(ctx, id, kind); err != nil {
					return err
				}
				row, err := rowOf(eng, id)
				if err != nil {
					return err
				}
				return f.Success(row, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Acknowledged %s alarm of %s\n", kind, row.ID)
					return err
				})
			})
		},
	}
}
