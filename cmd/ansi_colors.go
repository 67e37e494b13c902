package cmd

import (
	"os"

	"golang.org/x/term"
)

// ANSI escape codes for terminal coloring.
const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDarkGray = "\033[90m"
)

// colorize wraps s in the given ANSI color when stdout is a terminal, so
// piped output stays free of escape codes.
func colorize(s string, ansiColor string) string {
	if !stdoutIsTerminal() {
		return s
	}
	return ansiColor + s + ansiReset
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
