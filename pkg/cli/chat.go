package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "chat",
		Usage:     "Talk to the development assistant; interactive without arguments",
		ArgsUsage: "[message]",
		Flags:     flagsOf(globalFlags(&cfg), llmFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, sess, err := cfg.openSession(ctx, c, false)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			w := c.Root().Writer
			render := markdownFor(w)
			if c.Args().Len() > 0 {
				reply, err := sess.Chat.Send(ctx, strings.Join(c.Args().Slice(), " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(w, render(reply))
				return nil
			}

			scanner := bufio.NewScanner(c.Root().Reader)
			fmt.Fprintf(w, "Chat session started. Type 'exit' to quit.\n")

			for {
				fmt.Fprintf(w, "> ")
				if !scanner.Scan() {
					break
				}

				message := strings.TrimSpace(scanner.Text())
				if message == "exit" {
					break
				}
				if message == "" {
					continue
				}

				reply, err := sess.Chat.Send(ctx, message)
				if err != nil {
					// input errors were already reported; keep the session alive
					if errors.Is(err, model.ErrCollaborator) || errors.Is(err, model.ErrInvalidInput) {
						continue
					}
					return err
				}
				fmt.Fprintln(w, render(reply))
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}
