package cli

import (
	"context"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/m-mizutani/devpilot/pkg/adapter"
	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/usecase/session"
	"github.com/m-mizutani/devpilot/pkg/usecase/workflow"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	logLevel string
	timeout  time.Duration

	// Text inference
	geminiProject  string
	geminiLocation string
	geminiModel    string

	// Speech and audio devices
	openaiAPIKey  string
	openaiBaseURL string
	voice         string
	recordCommand string
	playCommand   string

	// Workflow lifecycle
	workflowSteps    int64
	workflowInterval time.Duration
	templateFile     string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("DEVPILOT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Timeout of each inference call",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("DEVPILOT_TIMEOUT"),
			Destination: &cfg.timeout,
		},
	}
}

// llmFlags returns flags for text inference with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Value:       adapter.DefaultGeminiModel,
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// audioFlags returns flags for speech and local audio devices
func audioFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key for speech recognition and synthesis",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL of an OpenAI compatible speech API",
			Sources:     cli.EnvVars("OPENAI_BASE_URL"),
			Destination: &cfg.openaiBaseURL,
		},
		&cli.StringFlag{
			Name:        "voice",
			Usage:       "Voice of synthesized replies",
			Value:       "alloy",
			Sources:     cli.EnvVars("DEVPILOT_VOICE"),
			Destination: &cfg.voice,
		},
		&cli.StringFlag{
			Name:        "record-command",
			Usage:       "Command writing WAV audio to stdout until interrupted",
			Value:       strings.Join(adapter.DefaultRecordCommand, " "),
			Sources:     cli.EnvVars("DEVPILOT_RECORD_COMMAND"),
			Destination: &cfg.recordCommand,
		},
		&cli.StringFlag{
			Name:        "play-command",
			Usage:       "Command playing WAV audio from stdin",
			Value:       strings.Join(adapter.DefaultPlayCommand, " "),
			Sources:     cli.EnvVars("DEVPILOT_PLAY_COMMAND"),
			Destination: &cfg.playCommand,
		},
	}
}

// workflowFlags returns flags for the workflow lifecycle
func workflowFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "workflow-steps",
			Usage:       "Number of progress ticks of a workflow run",
			Value:       workflow.DefaultSteps,
			Sources:     cli.EnvVars("DEVPILOT_WORKFLOW_STEPS"),
			Destination: &cfg.workflowSteps,
		},
		&cli.DurationFlag{
			Name:        "workflow-interval",
			Usage:       "Interval between workflow progress ticks",
			Value:       workflow.DefaultInterval,
			Sources:     cli.EnvVars("DEVPILOT_WORKFLOW_INTERVAL"),
			Destination: &cfg.workflowInterval,
		},
		&cli.StringFlag{
			Name:        "template-file",
			Usage:       "YAML file of workflow quick templates",
			Sources:     cli.EnvVars("DEVPILOT_TEMPLATE_FILE"),
			Destination: &cfg.templateFile,
		},
	}
}

// flagsOf concatenates flag groups
func flagsOf(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

// setupLogger attaches a logger configured by --log-level to ctx
func (cfg *config) setupLogger(ctx context.Context) (context.Context, error) {
	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		return ctx, err
	}
	logger := logging.New(level, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.geminiModel))
}

// newSpeech creates the speech backend, or nil when no API key is set
func (cfg *config) newSpeech() (adapter.Speech, error) {
	if cfg.openaiAPIKey == "" {
		return nil, nil
	}
	var opts []adapter.OpenAIOption
	if cfg.openaiBaseURL != "" {
		opts = append(opts, adapter.WithOpenAIBaseURL(cfg.openaiBaseURL))
	}
	opts = append(opts, adapter.WithVoice(cfg.voice))
	return adapter.NewOpenAISpeech(cfg.openaiAPIKey, opts...)
}

// newInference creates the composite inference client
func (cfg *config) newInference(ctx context.Context) (interfaces.Inference, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	var opts []adapter.InferenceOption
	speech, err := cfg.newSpeech()
	if err != nil {
		return nil, err
	}
	if speech != nil {
		opts = append(opts, adapter.WithSpeech(speech))
	}

	return adapter.NewInference(gemini, opts...), nil
}

// newAudio creates the local audio device from the configured commands
func (cfg *config) newAudio() (interfaces.AudioIO, error) {
	record := strings.Fields(cfg.recordCommand)
	play := strings.Fields(cfg.playCommand)
	if len(record) == 0 {
		return nil, goerr.New("record-command is required")
	}
	if len(play) == 0 {
		return nil, goerr.New("play-command is required")
	}
	return adapter.NewCommandAudio(
		adapter.WithRecordCommand(record...),
		adapter.WithPlayCommand(play...),
	), nil
}

// sessionInput collects the collaborators of a session
type sessionInput struct {
	inference interfaces.Inference
	audio     interfaces.AudioIO
	notifier  interfaces.Notifier
}

// newSession creates a session signed in as the local OS user
func (cfg *config) newSession(ctx context.Context, input sessionInput) (*session.Session, error) {
	sess, err := session.New(ctx, session.NewInput{
		Inference:        input.inference,
		Audio:            input.audio,
		Notifier:         input.notifier,
		Timeout:          cfg.timeout,
		WorkflowSteps:    int(cfg.workflowSteps),
		WorkflowInterval: cfg.workflowInterval,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session")
	}

	sess.SignIn(localUser())
	return sess, nil
}

// loadTemplates reads the template file, or returns the built-in templates
func (cfg *config) loadTemplates() ([]workflow.Template, error) {
	return workflow.LoadTemplates(cfg.templateFile)
}

// localUser identifies the operator running the CLI
func localUser() model.User {
	u, err := user.Current()
	if err != nil {
		return model.User{ID: "local"}
	}
	return model.User{
		ID:        u.Uid,
		Email:     u.Username,
		FirstName: u.Name,
	}
}

// openSession prepares logging and a session for a command. Audio devices
// are only set up when withAudio is true.
func (cfg *config) openSession(ctx context.Context, c *cli.Command, withAudio bool) (context.Context, *session.Session, error) {
	ctx, err := cfg.setupLogger(ctx)
	if err != nil {
		return ctx, nil, err
	}

	inference, err := cfg.newInference(ctx)
	if err != nil {
		return ctx, nil, err
	}

	input := sessionInput{
		inference: inference,
		notifier:  newConsoleNotifier(c.Root().ErrWriter),
	}
	if withAudio {
		if input.audio, err = cfg.newAudio(); err != nil {
			return ctx, nil, err
		}
	}

	sess, err := cfg.newSession(ctx, input)
	if err != nil {
		return ctx, nil, err
	}
	sess.Navigate(viewOf(c))
	return ctx, sess, nil
}

// viewOf names the view a command represents
func viewOf(c *cli.Command) model.ViewID {
	switch c.Name {
	case "complete", "generate", "analyze":
		return viewCode
	case "voice":
		return viewVoice
	case "create", "run", "templates":
		return viewWorkflows
	default:
		return model.ViewID(c.Name)
	}
}

const (
	viewCode      model.ViewID = "code"
	viewChat      model.ViewID = "chat"
	viewVoice     model.ViewID = "voice"
	viewWorkflows model.ViewID = "workflows"
	viewMetrics   model.ViewID = "metrics"
	viewHistory   model.ViewID = "history"
)
