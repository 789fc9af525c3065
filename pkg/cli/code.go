package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/devpilot/pkg/usecase/code"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// readSource returns the file content, the joined args, or stdin in that order
func readSource(c *cli.Command, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read source file", goerr.V("path", file))
		}
		return string(data), nil
	}
	if c.Args().Len() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}

	data, err := io.ReadAll(c.Root().Reader)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read stdin")
	}
	return string(data), nil
}

func languageFlag(language *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "language",
		Aliases:     []string{"L"},
		Usage:       "Programming language",
		Value:       code.DefaultLanguage,
		Sources:     cli.EnvVars("DEVPILOT_LANGUAGE"),
		Destination: language,
	}
}

func fileFlag(file *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "Read source from file instead of arguments or stdin",
		Destination: file,
	}
}

func completeCommand() *cli.Command {
	var (
		cfg      config
		language string
		file     string
	)

	return &cli.Command{
		Name:      "complete",
		Usage:     "Continue a piece of code",
		ArgsUsage: "[code]",
		Flags:     flagsOf([]cli.Flag{languageFlag(&language), fileFlag(&file)}, globalFlags(&cfg), llmFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, sess, err := cfg.openSession(ctx, c, false)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			src, err := readSource(c, file)
			if err != nil {
				return err
			}

			suggestion, err := sess.Code.Complete(ctx, src, language)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, suggestion.Code)
			return nil
		},
	}
}

func generateCommand() *cli.Command {
	var (
		cfg      config
		language string
	)

	return &cli.Command{
		Name:      "generate",
		Usage:     "Write code from a natural language prompt",
		ArgsUsage: "<prompt>",
		Flags:     flagsOf([]cli.Flag{languageFlag(&language)}, globalFlags(&cfg), llmFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, sess, err := cfg.openSession(ctx, c, false)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			prompt, err := readSource(c, "")
			if err != nil {
				return err
			}

			suggestion, err := sess.Code.Generate(ctx, prompt, language)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, suggestion.Code)
			return nil
		},
	}
}

func analyzeCommand() *cli.Command {
	var (
		cfg      config
		language string
		file     string
	)

	return &cli.Command{
		Name:      "analyze",
		Usage:     "Review code and print feedback",
		ArgsUsage: "[code]",
		Flags:     flagsOf([]cli.Flag{languageFlag(&language), fileFlag(&file)}, globalFlags(&cfg), llmFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, sess, err := cfg.openSession(ctx, c, false)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			src, err := readSource(c, file)
			if err != nil {
				return err
			}

			analysis, err := sess.Code.Analyze(ctx, src, language)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, markdownFor(c.Root().Writer)(analysis))
			return nil
		},
	}
}
