package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/workflow"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func workflowCommand() *cli.Command {
	return &cli.Command{
		Name:  "workflow",
		Usage: "Create and run automated development workflows",
		Commands: []*cli.Command{
			workflowCreateCommand(),
			workflowRunCommand(),
			workflowTemplatesCommand(),
		},
	}
}

func workflowCreateCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "create",
		Usage:     "Plan a workflow from a description",
		ArgsUsage: "<description>",
		Flags:     flagsOf(globalFlags(&cfg), llmFlags(&cfg), workflowFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, sess, err := cfg.openSession(ctx, c, false)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			task, err := sess.Workflow.Create(ctx, strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return err
			}

			printInteraction(c.Root().Writer, sess.State().Interactions)
			fmt.Fprintf(c.Root().Writer, "\nID: %s\n", task.ID)
			return nil
		},
	}
}

func workflowRunCommand() *cli.Command {
	var (
		cfg       config
		templates []string
	)

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "template",
			Aliases:     []string{"t"},
			Usage:       "Run a quick template by title (repeatable)",
			Destination: &templates,
		},
	}

	return &cli.Command{
		Name:      "run",
		Usage:     "Create workflows and run them to completion concurrently",
		ArgsUsage: "[description]...",
		Flags:     flagsOf(flags, globalFlags(&cfg), llmFlags(&cfg), workflowFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			descriptions := c.Args().Slice()
			if len(templates) > 0 {
				resolved, err := resolveTemplates(&cfg, templates)
				if err != nil {
					return err
				}
				descriptions = append(descriptions, resolved...)
			}
			if len(descriptions) == 0 {
				return model.InputError("at least one description or template is required")
			}

			ctx, sess, err := cfg.openSession(ctx, c, false)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			unsubscribe := sess.Store().Subscribe(newProgressPrinter(c.Root().Writer).print)
			defer unsubscribe()

			eg, ctx := errgroup.WithContext(ctx)
			for _, desc := range descriptions {
				eg.Go(func() error {
					task, err := sess.Workflow.Create(ctx, desc)
					if err != nil {
						return err
					}
					if err := sess.Workflow.Start(ctx, task.ID); err != nil {
						return err
					}
					return sess.Workflow.Wait(ctx, task.ID)
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			metrics := sess.RefreshMetrics()
			fmt.Fprintf(c.Root().Writer, "\n%d workflow(s) completed\n", metrics.WorkflowsCompleted)
			return nil
		},
	}
}

func workflowTemplatesCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "templates",
		Usage: "List workflow quick templates",
		Flags: workflowFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			templates, err := cfg.loadTemplates()
			if err != nil {
				return err
			}
			for _, t := range templates {
				fmt.Fprintf(c.Root().Writer, "%s %s\n    %s\n", t.Icon, t.Title, t.Description)
			}
			return nil
		},
	}
}

// resolveTemplates maps template titles to their descriptions
func resolveTemplates(cfg *config, titles []string) ([]string, error) {
	templates, err := cfg.loadTemplates()
	if err != nil {
		return nil, err
	}

	byTitle := make(map[string]workflow.Template, len(templates))
	for _, t := range templates {
		byTitle[strings.ToLower(t.Title)] = t
	}

	descriptions := make([]string, 0, len(titles))
	for _, title := range titles {
		t, ok := byTitle[strings.ToLower(title)]
		if !ok {
			return nil, goerr.Wrap(model.ErrInvalidInput, "unknown template", goerr.V("title", title))
		}
		descriptions = append(descriptions, t.Description)
	}
	return descriptions, nil
}

// progressPrinter writes a line whenever a task's status or progress changes
type progressPrinter struct {
	w    io.Writer
	mu   sync.Mutex
	last map[model.WorkflowID]model.WorkflowTask
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, last: make(map[model.WorkflowID]model.WorkflowTask)}
}

func (x *progressPrinter) print(state store.State) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, task := range state.Workflows {
		prev, ok := x.last[task.ID]
		if ok && prev.Status == task.Status && prev.Progress == task.Progress {
			continue
		}
		x.last[task.ID] = task
		fmt.Fprintf(x.w, "[%-9s] %3.0f%% %s\n", task.Status, task.Progress, task.Title)
	}
}

// printInteraction writes the newest interaction message
func printInteraction(w io.Writer, interactions []model.Interaction) {
	if len(interactions) == 0 {
		return
	}
	fmt.Fprintln(w, interactions[len(interactions)-1].Message)
}
