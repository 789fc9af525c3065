package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Version is overwritten at build time
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "devpilot",
		Usage:   "AI development assistant: code help, voice, workflows and metrics",
		Version: Version,
		Commands: []*cli.Command{
			completeCommand(),
			generateCommand(),
			analyzeCommand(),
			chatCommand(),
			voiceCommand(),
			workflowCommand(),
			shellCommand(),
			serveCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
