package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/render"
	"github.com/roach88/multitimer/internal/timer"
)

// Shell executes console commands against an Engine.
type Shell struct {
	eng *engine.Engine
	out io.Writer
}

// NewShell creates a Shell that prints to out.
func NewShell(eng *engine.Engine, out io.Writer) *Shell {
	return &Shell{eng: eng, out: out}
}

// Exec runs one command line. It returns true when the line asks to quit.
// Command errors are printed, not returned.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool) {
	args, err := splitArgs(strings.TrimSpace(line))
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	cmd := strings.ToLower(args[0])
	args = args[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "list", "ls", "l":
		err = s.cmdList()
	case "add", "a":
		err = s.cmdAdd(ctx, args)
	case "start", "resume", "s":
		err = s.withRef(args, "start <ref>", func(id timer.ID) error {
			return s.eng.Start(ctx, id)
		})
	case "pause", "p":
		err = s.withRef(args, "pause <ref>", func(id timer.ID) error {
			return s.eng.Pause(ctx, id)
		})
	case "toggle", "t":
		err = s.cmdToggle(ctx, args)
	case "delete", "del", "rm":
		err = s.withRef(args, "delete <ref>", func(id timer.ID) error {
			return s.eng.Delete(ctx, id)
		})
	case "clear":
		err = s.eng.ClearAll(ctx)
	case "ack":
		err = s.cmdAck(ctx, args)
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return false
	}

	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}
	if perr := s.eng.LastPersistError(); perr != nil {
		fmt.Fprintf(s.out, "Warning: timers not saved: %v\n", perr)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Exam Timer Commands:
  add <student> <exam> <minutes>  - Add a timer (quote names with spaces)
  start <ref>                     - Start or resume a timer
  pause <ref>                     - Pause a running timer
  toggle <ref>                    - Start if stopped, pause if running
  delete <ref>                    - Delete a timer
  clear                           - Delete every timer
  ack <ref> <five_min|end>        - Acknowledge a fired alarm
  list                            - Show all timers
  help                            - Show this help
  quit                            - Exit

  <ref> is a row number, a timer id, or a unique id prefix.`)
}

func (s *Shell) cmdList() error {
	return render.WriteTable(s.out, render.Rows(s.eng.Snapshot()))
}

func (s *Shell) cmdAdd(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usageError("add <student> <exam> <minutes>")
	}
	minutes, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return timer.NewValidationError("durationMinutes", fmt.Sprintf("%q is not a number", args[2]))
	}
	secs, err := timer.MinutesToSeconds(minutes)
	if err != nil {
		return err
	}
	id, err := s.eng.Create(ctx, args[0], args[1], secs)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added %s (row %d)\n", id, s.eng.Len())
	return nil
}

func (s *Shell) cmdToggle(ctx context.Context, args []string) error {
	return s.withRef(args, "toggle <ref>", func(id timer.ID) error {
		t, err := s.eng.Get(id)
		if err != nil {
			return err
		}
		if t.IsRunning {
			return s.eng.Pause(ctx, id)
		}
		return s.eng.Start(ctx, id)
	})
}

func (s *Shell) cmdAck(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("ack <ref> <five_min|end>")
	}
	kind, err := timer.ParseAlarmKind(args[1])
	if err != nil {
		return err
	}
	return s.withRef(args[:1], "ack <ref> <five_min|end>", func(id timer.ID) error {
		return s.eng.Acknowledge(ctx, id, kind)
	})
}

func (s *Shell) withRef(args []string, usage string, fn func(timer.ID) error) error {
	if len(args) != 1 {
		return usageError(usage)
	}
	id, err := Resolve(s.eng.Snapshot(), args[0])
	if err != nil {
		return err
	}
	return fn(id)
}

func usageError(usage string) error {
	return errors.New("usage: " + usage)
}
