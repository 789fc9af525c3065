package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"
)

// runReadSource parses args with a command whose action captures readSource
func runReadSource(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var (
		file string
		got  string
	)
	cmd := &cli.Command{
		Name:   "complete",
		Reader: strings.NewReader(stdin),
		Flags:  []cli.Flag{fileFlag(&file)},
		Action: func(_ context.Context, c *cli.Command) error {
			var err error
			got, err = readSource(c, file)
			return err
		},
	}
	gt.NoError(t, cmd.Run(context.Background(), append([]string{"complete"}, args...)))
	return got
}

func TestReadSource(t *testing.T) {
	t.Run("args", func(t *testing.T) {
		gt.Equal(t, runReadSource(t, "ignored", "const", "x", "="), "const x =")
	})

	t.Run("stdin", func(t *testing.T) {
		gt.Equal(t, runReadSource(t, "func main() {}\n"), "func main() {}\n")
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "main.go")
		gt.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o600))
		gt.Equal(t, runReadSource(t, "ignored", "--file", path, "ignored too"), "package main\n")
	})
}
