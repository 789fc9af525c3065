package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func voiceCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "voice",
		Usage: "Ask a question by voice; press Enter to stop recording",
		Flags: flagsOf(globalFlags(&cfg), llmFlags(&cfg), audioFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, sess, err := cfg.openSession(ctx, c, true)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			if err := sess.Voice.Start(ctx); err != nil {
				return err
			}

			w := c.Root().Writer
			fmt.Fprintln(w, "Listening... press Enter to stop.")
			_, _ = bufio.NewReader(c.Root().Reader).ReadString('\n')

			result, err := sess.Voice.Stop(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "You: %s\n\nAssistant: %s\n", result.Transcription, result.Response)
			return nil
		},
	}
}
