package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/devpilot/pkg/metrics"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/session"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const shellHelp = `Commands:
  /complete <code>        continue code
  /generate <prompt>      write code from a prompt
  /analyze <code>         review code
  /lang <language>        set the language of code commands
  /voice                  record a question, then /stop to send it
  /stop                   stop recording and get a spoken reply
  /cancel                 discard the current recording
  /workflow <description> plan a workflow
  /templates              list workflow quick templates
  /start <id>             start a workflow
  /pause <id>             pause a workflow
  /fail <id> [reason]     mark a running workflow as failed
  /workflows              list workflows
  /suggestions            show the latest code suggestions
  /history                show recent interactions
  /metrics                show usage metrics
  /help                   show this help
  /exit                   quit
Anything else is sent to the assistant as a chat message.`

const defaultFailReason = "Marked as failed by user"

func shellCommand() *cli.Command {
	var (
		cfg      config
		language string
		history  string
	)

	flags := []cli.Flag{
		languageFlag(&language),
		&cli.StringFlag{
			Name:        "history-file",
			Usage:       "Line editor history file",
			Value:       defaultHistoryFile(),
			Sources:     cli.EnvVars("DEVPILOT_HISTORY_FILE"),
			Destination: &history,
		},
	}

	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive assistant session",
		Flags: flagsOf(flags, globalFlags(&cfg), llmFlags(&cfg), audioFlags(&cfg), workflowFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, sess, err := cfg.openSession(ctx, c, true)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)

			if history != "" {
				if err := os.MkdirAll(filepath.Dir(history), 0o700); err != nil {
					return goerr.Wrap(err, "failed to create history directory", goerr.V("path", history))
				}
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "devpilot> ",
				HistoryFile:     history,
				AutoComplete:    shellCompleter(),
				InterruptPrompt: "^C",
				EOFPrompt:       "/exit",
			})
			if err != nil {
				return err
			}
			defer rl.Close()

			sh := &shell{
				cfg:      &cfg,
				sess:     sess,
				w:        rl.Stdout(),
				render:   markdownFor(os.Stdout),
				language: language,
			}

			stopIndicator := sh.bindIndicator(rl.Stderr())
			defer stopIndicator()

			fmt.Fprintf(sh.w, "Welcome %s. Type /help for commands.\n", displayName(sess))
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				if quit := sh.handle(ctx, strings.TrimSpace(line)); quit {
					return nil
				}
			}
		},
	}
}

type shell struct {
	cfg      *config
	sess     *session.Session
	w        io.Writer
	render   renderFunc
	language string
}

// reply prints an assistant answer
func (sh *shell) reply(text string) {
	if sh.render != nil {
		text = sh.render(text)
	}
	fmt.Fprintln(sh.w, text)
}

// bindIndicator shows a spinner while a voice round-trip is recording or
// being processed
func (sh *shell) bindIndicator(w io.Writer) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))

	var phase atomic.Value
	phase.Store("")
	changed := make(chan struct{}, 1)
	unsubscribe := sh.sess.Store().Subscribe(func(state store.State) {
		phase.Store(indicatorSuffix(state))
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-changed:
				suffix := phase.Load().(string)
				if suffix == "" {
					s.Stop()
					continue
				}
				s.Lock()
				s.Suffix = suffix
				s.Unlock()
				s.Start()
			case <-done:
				s.Stop()
				return
			}
		}
	}()

	return func() {
		unsubscribe()
		close(done)
		<-finished
	}
}

func indicatorSuffix(state store.State) string {
	switch {
	case state.IsVoiceRecording:
		return " recording... (/stop to send)"
	case state.IsProcessing:
		return " thinking..."
	default:
		return ""
	}
}

// handle runs one input line and reports whether the shell should exit
func (sh *shell) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		sh.sess.Navigate(viewChat)
		if reply, err := sh.sess.Chat.Send(ctx, line); err == nil {
			sh.reply(reply)
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/help":
		fmt.Fprintln(sh.w, shellHelp)

	case "/lang":
		if arg != "" {
			sh.language = arg
		}
		fmt.Fprintf(sh.w, "language: %s\n", sh.language)
	case "/complete":
		sh.sess.Navigate(viewCode)
		if s, err := sh.sess.Code.Complete(ctx, arg, sh.language); err == nil {
			fmt.Fprintln(sh.w, s.Code)
		}
	case "/generate":
		sh.sess.Navigate(viewCode)
		if s, err := sh.sess.Code.Generate(ctx, arg, sh.language); err == nil {
			fmt.Fprintln(sh.w, s.Code)
		}
	case "/analyze":
		sh.sess.Navigate(viewCode)
		if analysis, err := sh.sess.Code.Analyze(ctx, arg, sh.language); err == nil {
			sh.reply(analysis)
		}
	case "/suggestions":
		for _, s := range sh.sess.State().RecentSuggestions(5) {
			fmt.Fprintf(sh.w, "[%s %.0f%%] %s\n", s.Language, s.Confidence*100, s.Context)
			fmt.Fprintln(sh.w, s.Code)
		}

	case "/voice":
		sh.sess.Navigate(viewVoice)
		// other start failures are already reported by the notifier
		if err := sh.sess.Voice.Start(ctx); errors.Is(err, model.ErrPipelineBusy) {
			fmt.Fprintln(sh.w, err)
		}
	case "/stop":
		if result, err := sh.sess.Voice.Stop(ctx); err == nil {
			fmt.Fprintf(sh.w, "You: %s\n\n", result.Transcription)
			sh.reply("Assistant: " + result.Response)
		}
	case "/cancel":
		if err := sh.sess.Voice.Cancel(ctx); err != nil {
			logging.From(ctx).Warn("failed to cancel recording", "error", err)
		}

	case "/workflow":
		sh.sess.Navigate(viewWorkflows)
		if task, err := sh.sess.Workflow.Create(ctx, arg); err == nil {
			printInteraction(sh.w, sh.sess.State().Interactions)
			fmt.Fprintf(sh.w, "ID: %s\n", task.ID)
		}
	case "/templates":
		templates, err := sh.cfg.loadTemplates()
		if err != nil {
			fmt.Fprintln(sh.w, err)
			break
		}
		for _, t := range templates {
			fmt.Fprintf(sh.w, "%s %s: %s\n", t.Icon, t.Title, t.Description)
		}
	case "/start":
		if err := sh.sess.Workflow.Start(ctx, model.WorkflowID(arg)); err != nil {
			fmt.Fprintln(sh.w, err)
		}
	case "/pause":
		if err := sh.sess.Workflow.Pause(ctx, model.WorkflowID(arg)); err != nil {
			fmt.Fprintln(sh.w, err)
		}
	case "/fail":
		id, reason, _ := strings.Cut(arg, " ")
		if reason = strings.TrimSpace(reason); reason == "" {
			reason = defaultFailReason
		}
		if err := sh.sess.Workflow.Fail(ctx, model.WorkflowID(id), reason); err != nil {
			fmt.Fprintln(sh.w, err)
		}
	case "/workflows":
		sh.sess.Navigate(viewWorkflows)
		for _, task := range sh.sess.State().Workflows {
			fmt.Fprintf(sh.w, "%s [%-9s] %3.0f%% %s\n", task.ID, task.Status, task.Progress, task.Title)
		}

	case "/history":
		sh.sess.Navigate(viewHistory)
		interactions := sh.sess.State().Interactions
		for i := len(interactions) - 1; i >= 0 && i >= len(interactions)-10; i-- {
			x := interactions[i]
			fmt.Fprintf(sh.w, "%s [%s] %s\n", x.Timestamp.Format(time.TimeOnly), x.Kind, firstLine(x.Message))
		}
	case "/metrics":
		sh.sess.Navigate(viewMetrics)
		sh.printMetrics()

	default:
		fmt.Fprintf(sh.w, "unknown command %s, type /help\n", cmd)
	}
	return false
}

func (sh *shell) printMetrics() {
	m := sh.sess.RefreshMetrics()
	raw, err := json.MarshalIndent(struct {
		model.Metrics
		AverageResponseTime string                        `json:"average_response_time"`
		ByKind              map[model.InteractionKind]int `json:"by_kind"`
	}{
		Metrics:             m,
		AverageResponseTime: m.AverageResponseTime.String(),
		ByKind:              metrics.CountByKind(sh.sess.State().Interactions),
	}, "", "  ")
	if err != nil {
		fmt.Fprintln(sh.w, err)
		return
	}
	fmt.Fprintln(sh.w, string(raw))
}

func shellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("/complete"),
		readline.PcItem("/generate"),
		readline.PcItem("/analyze"),
		readline.PcItem("/lang"),
		readline.PcItem("/voice"),
		readline.PcItem("/stop"),
		readline.PcItem("/cancel"),
		readline.PcItem("/workflow"),
		readline.PcItem("/templates"),
		readline.PcItem("/start"),
		readline.PcItem("/pause"),
		readline.PcItem("/fail"),
		readline.PcItem("/workflows"),
		readline.PcItem("/suggestions"),
		readline.PcItem("/history"),
		readline.PcItem("/metrics"),
		readline.PcItem("/help"),
		readline.PcItem("/exit"),
	)
}

func defaultHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "devpilot", "history")
}

func displayName(sess *session.Session) string {
	user := sess.State().User
	if user == nil {
		return "guest"
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	return user.Email
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
