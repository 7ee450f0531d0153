package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// Prompt is shown before every command line.
const Prompt = "timers> "

// NewReadline creates the prompt with command completion. in and out may be
// nil to use the process terminal; a non-nil in is read as a script.
func NewReadline(in io.ReadCloser, out io.Writer) (*readline.Instance, error) {
	cfg := &readline.Config{
		Prompt:          Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
		Stdout:          out,
	}
	if in != nil {
		cfg.Stdin = in
		cfg.FuncIsTerminal = func() bool { return false }
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("add"),
		readline.PcItem("start"),
		readline.PcItem("resume"),
		readline.PcItem("pause"),
		readline.PcItem("toggle"),
		readline.PcItem("delete"),
		readline.PcItem("clear"),
		readline.PcItem("ack"),
		readline.PcItem("list"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Run reads commands until quit, EOF, or ctx is done. Interrupts clear the
// current line.
func Run(ctx context.Context, rl *readline.Instance, sh *Shell) error {
	defer rl.Close()

	sh.printHelp()
	if err := sh.cmdList(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(rl.Stdout(), "Exiting...")
				return nil
			}
			return err
		}

		if sh.Exec(ctx, line) {
			return nil
		}
	}
}
