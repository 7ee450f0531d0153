package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/multitimer/internal/timer"
)

// Resolve maps a row number, id, or unique id prefix to a timer id.
// Row numbers take precedence over ids that happen to be numeric.
func Resolve(snapshot []timer.Timer, ref string) (timer.ID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", timer.NewValidationError("ref", "must not be empty")
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(snapshot) {
			return snapshot[n-1].ID, nil
		}
	}

	var match timer.ID
	for _, t := range snapshot {
		if string(t.ID) == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(string(t.ID), ref) {
			if match != "" {
				return "", timer.NewValidationError("ref", fmt.Sprintf("%q matches more than one timer", ref))
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", timer.NewNotFoundError(timer.ID(ref))
	}
	return match, nil
}

// splitArgs splits a command line on whitespace. Double quotes group words,
// so `add "Ana Lima" Math 45` yields four fields.
func splitArgs(line string) ([]string, error) {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
		inField bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			inField = true
		case !inQuote && (r == ' ' || r == '\t'):
			if inField {
				fields = append(fields, cur.String())
				cur.Reset()
				inField = false
			}
		default:
			cur.WriteRune(r)
			inField = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inField {
		fields = append(fields, cur.String())
	}
	return fields, nil
}
