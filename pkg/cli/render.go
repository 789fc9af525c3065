package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"
)

// renderFunc formats an assistant reply for display
type renderFunc func(string) string

func plainText(s string) string { return s }

// markdownFor returns a renderer for replies written to w. Replies are
// rendered as styled markdown only when w is a terminal.
func markdownFor(w io.Writer) renderFunc {
	f, ok := w.(*os.File)
	if !ok || !readline.IsTerminal(int(f.Fd())) {
		return plainText
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return plainText
	}

	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.Trim(out, "\n")
	}
}
