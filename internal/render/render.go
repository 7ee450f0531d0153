// Package render turns timer snapshots into display rows.
package render

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/roach88/multitimer/internal/timer"
)

// Action labels for the start/pause control.
const (
	ActionStart  = "Start"
	ActionResume = "Resume"
	ActionPause  = "Pause"
)

// NotStarted is shown as the time left of a timer that never ran.
const NotStarted = "-"

// Row is the presentation of one timer.
type Row struct {
	Index            int    `json:"index"`
	ID               string `json:"id"`
	StudentName      string `json:"studentName"`
	ExamName         string `json:"examName"`
	DurationSeconds  int    `json:"durationSeconds"`
	RemainingSeconds int    `json:"remainingSeconds"`
	IsRunning        bool   `json:"isRunning"`
	FiveMinAlarm     string `json:"fiveMinAlarmState"`
	EndAlarm         string `json:"endAlarmState"`

	Duration string `json:"duration"`
	TimeLeft string `json:"timeLeft"`
	Action   string `json:"action"`
	Urgent   bool   `json:"urgent"`
}

// FormatClock renders seconds as MM:SS. Minutes are zero-padded to two
// digits and grow past 99 as needed. Negative input renders as 00:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// DurationMinutes renders a configured duration, e.g. "45 minutes" or
// "1.5 minutes".
func DurationMinutes(seconds int) string {
	minutes := strconv.FormatFloat(float64(seconds)/60, 'f', -1, 64)
	if minutes == "1" {
		return "1 minute"
	}
	return minutes + " minutes"
}

// TimeLeft returns NotStarted for a timer that never ran, otherwise its
// remaining time as MM:SS.
func TimeLeft(t timer.Timer) string {
	if !t.Started() {
		return NotStarted
	}
	return FormatClock(t.RemainingSeconds)
}

// Action returns the label of the start/pause control for t.
func Action(t timer.Timer) string {
	switch {
	case t.IsRunning:
		return ActionPause
	case t.Started():
		return ActionResume
	}
	return ActionStart
}

// Urgent reports whether the remaining time is within the five-minute
// window.
func Urgent(t timer.Timer) bool {
	return t.RemainingSeconds <= timer.FiveMinuteThreshold
}

// NewRow builds the row for t at 1-based position index.
func NewRow(index int, t timer.Timer) Row {
	return Row{
		Index:            index,
		ID:               string(t.ID),
		StudentName:      t.StudentName,
		ExamName:         t.ExamName,
		DurationSeconds:  t.DurationSeconds,
		RemainingSeconds: t.RemainingSeconds,
		IsRunning:        t.IsRunning,
		FiveMinAlarm:     string(t.Alarms.FiveMin),
		EndAlarm:         string(t.Alarms.End),
		Duration:         DurationMinutes(t.DurationSeconds),
		TimeLeft:         TimeLeft(t),
		Action:           Action(t),
		Urgent:           Urgent(t),
	}
}

// Rows builds rows for an ordered snapshot. Never returns nil.
func Rows(snapshot []timer.Timer) []Row {
	rows := make([]Row, 0, len(snapshot))
	for i, t := range snapshot {
		rows = append(rows, NewRow(i+1, t))
	}
	return rows
}

// WriteTable writes rows as an aligned text table. Urgent rows are marked
// with "!" and alarms that await acknowledgement are listed in the last
// column.
func WriteTable(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No timers.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTUDENT\tEXAM\tDURATION\tTIME LEFT\tACTION\tALARMS")
	for _, r := range rows {
		timeLeft := r.TimeLeft
		if r.Urgent && r.TimeLeft != NotStarted {
			timeLeft += " !"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Index, r.StudentName, r.ExamName, r.Duration, timeLeft, r.Action, alarmSummary(r))
	}
	return tw.Flush()
}

func alarmSummary(r Row) string {
	var s string
	if r.FiveMinAlarm == string(timer.AlarmFired) {
		s = "5-min"
	}
	if r.EndAlarm == string(timer.AlarmFired) {
		if s != "" {
			s += ", "
		}
		s += "end"
	}
	if s == "" {
		return "-"
	}
	return s
}
