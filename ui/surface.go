// Package ui holds the optional console dashboard. The bridge runs headless
// by default; the tview dashboard is used only on an interactive terminal.
package ui

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	ModeHeadless = "headless"
	ModeTview    = "tview"
)

// Surface abstracts the dashboard so alternative console renderers can plug in.
// Implementations must be safe for concurrent calls from the stats and health
// loops.
type Surface interface {
	WaitReady()
	Stop()
	SetStats(lines []string)
	SetReading(line string)
	AppendEvent(line string)
	AppendSystem(line string)
	SystemWriter() io.Writer
}

// IsStdoutTTY reports whether stdout is an interactive terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Wanted reports whether mode asks for the dashboard and a terminal is
// available to draw it.
func Wanted(mode string, tty bool) bool {
	return strings.EqualFold(strings.TrimSpace(mode), ModeTview) && tty
}
