// Package console is the interactive front end of multitimer.
//
// A Shell parses one command line at a time and applies it to an
// engine.Engine; Run drives a Shell from a readline prompt. Bell prints
// alarm cues to the same terminal.
//
// Commands refer to timers by 1-based row number, by full id, or by a
// unique id prefix.
package console
