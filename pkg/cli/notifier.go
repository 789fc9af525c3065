package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// consoleNotifier prints notifications as single lines, colored when w is a
// terminal
type consoleNotifier struct {
	mu      sync.Mutex
	w       io.Writer
	success lipgloss.Style
	failure lipgloss.Style
}

func newConsoleNotifier(w io.Writer) *consoleNotifier {
	r := lipgloss.NewRenderer(w)
	return &consoleNotifier{
		w:       w,
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		failure: r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func (x *consoleNotifier) Success(_ context.Context, msg string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	fmt.Fprintln(x.w, x.success.Render("✔ "+msg))
}

func (x *consoleNotifier) Failure(_ context.Context, msg string, _ error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	fmt.Fprintln(x.w, x.failure.Render("✘ "+msg))
}
