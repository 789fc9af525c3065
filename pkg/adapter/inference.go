package adapter

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/kaptinlin/jsonrepair"
	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Confidence values reported for code suggestions. The backend gives no
// per-result score.
const (
	CompletionConfidence = 0.9
	GenerationConfidence = 0.85
)

var (
	//go:embed prompt/complete.md
	completePromptRaw string
	//go:embed prompt/generate.md
	generatePromptRaw string
	//go:embed prompt/analyze.md
	analyzePromptRaw string
	//go:embed prompt/workflow.md
	workflowPromptRaw string

	completePromptTmpl = template.Must(template.New("complete").Parse(completePromptRaw))
	generatePromptTmpl = template.Must(template.New("generate").Parse(generatePromptRaw))
	analyzePromptTmpl  = template.Must(template.New("analyze").Parse(analyzePromptRaw))
	workflowPromptTmpl = template.Must(template.New("workflow").Parse(workflowPromptRaw))
)

// Speech converts between audio and text
type Speech interface {
	Transcribe(ctx context.Context, audio *model.Audio) (string, error)
	Synthesize(ctx context.Context, text string) (*model.Audio, error)
}

// workflowPlan is the structured response of a plan request
type workflowPlan struct {
	Steps []planStep `json:"steps" jsonschema:"ordered steps of the workflow"`
}

type planStep struct {
	Title  string `json:"title" jsonschema:"short title of the step"`
	Detail string `json:"detail" jsonschema:"one sentence describing the step"`
}

// Inference implements interfaces.Inference with Gemini for text and an
// optional Speech backend for audio.
type Inference struct {
	gemini Gemini
	speech Speech
}

var _ interfaces.Inference = (*Inference)(nil)

// InferenceOption is a functional option for Inference
type InferenceOption func(*Inference)

// WithSpeech sets the speech backend. Without it speech calls fail.
func WithSpeech(speech Speech) InferenceOption {
	return func(x *Inference) {
		x.speech = speech
	}
}

// NewInference creates an Inference backed by gemini
func NewInference(gemini Gemini, opts ...InferenceOption) *Inference {
	x := &Inference{gemini: gemini}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *Inference) CompleteCode(ctx context.Context, code, language string) (*interfaces.CodeCompletion, error) {
	prompt, err := render(completePromptTmpl, map[string]any{"Code": code, "Language": language})
	if err != nil {
		return nil, err
	}
	text, err := x.generate(ctx, prompt, generateConfig(0.1, ""))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to complete code", goerr.V("language", language))
	}
	return &interfaces.CodeCompletion{
		Completion: stripFence(text),
		Confidence: CompletionConfidence,
	}, nil
}

func (x *Inference) GenerateCode(ctx context.Context, prompt, language string) (*interfaces.GeneratedCode, error) {
	input, err := render(generatePromptTmpl, map[string]any{"Prompt": prompt, "Language": language})
	if err != nil {
		return nil, err
	}
	text, err := x.generate(ctx, input, generateConfig(0.1, ""))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate code", goerr.V("language", language))
	}
	return &interfaces.GeneratedCode{
		Code:       stripFence(text),
		Confidence: GenerationConfidence,
		Language:   language,
	}, nil
}

func (x *Inference) AnalyzeCode(ctx context.Context, code string) (string, error) {
	prompt, err := render(analyzePromptTmpl, map[string]any{"Code": code})
	if err != nil {
		return "", err
	}
	text, err := x.generate(ctx, prompt, generateConfig(0.3, ""))
	if err != nil {
		return "", goerr.Wrap(err, "failed to analyze code")
	}
	return strings.TrimSpace(text), nil
}

func (x *Inference) CreateWorkflowPlan(ctx context.Context, description string) (string, error) {
	prompt, err := render(workflowPromptTmpl, map[string]any{"Description": description})
	if err != nil {
		return "", err
	}

	schema, err := schemaFor[workflowPlan]()
	if err != nil {
		return "", err
	}
	config := generateConfig(0.4, "")
	config.ResponseMIMEType = "application/json"
	config.ResponseSchema = schema

	text, err := x.generate(ctx, prompt, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create workflow plan")
	}

	var plan workflowPlan
	if err := unmarshalLenient(text, &plan); err != nil {
		return "", goerr.Wrap(err, "failed to parse workflow plan", goerr.V("text", text))
	}
	if len(plan.Steps) == 0 {
		return "", goerr.New("workflow plan has no steps", goerr.V("text", text))
	}

	return plan.String(), nil
}

func (x *Inference) Chat(ctx context.Context, message, systemContext string) (string, error) {
	text, err := x.generate(ctx, message, generateConfig(0.7, systemContext))
	if err != nil {
		return "", goerr.Wrap(err, "failed to get assistant response")
	}
	return strings.TrimSpace(text), nil
}

func (x *Inference) SpeechToText(ctx context.Context, audio *model.Audio) (string, error) {
	if x.speech == nil {
		return "", goerr.New("speech backend is not configured")
	}
	return x.speech.Transcribe(ctx, audio)
}

func (x *Inference) TextToSpeech(ctx context.Context, text string) (*model.Audio, error) {
	if x.speech == nil {
		return nil, goerr.New("speech backend is not configured")
	}
	return x.speech.Synthesize(ctx, text)
}

func (x *Inference) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	logging.From(ctx).Debug("sending inference request", "prompt_length", len(prompt))
	resp, err := x.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func generateConfig(temperature float32, system string) *genai.GenerateContentConfig {
	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return config
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute prompt template", goerr.V("template", tmpl.Name()))
	}
	return buf.String(), nil
}

// stripFence removes a surrounding Markdown code fence if present
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// String renders the plan as numbered lines
func (p workflowPlan) String() string {
	var b strings.Builder
	for i, step := range p.Steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, step.Title)
		if step.Detail != "" {
			b.WriteString(": ")
			b.WriteString(step.Detail)
		}
	}
	return b.String()
}

// unmarshalLenient decodes model output, repairing truncated or otherwise
// malformed JSON once before giving up
func unmarshalLenient(text string, v any) error {
	err := json.Unmarshal([]byte(text), v)
	var syntaxErr *json.SyntaxError
	if err == nil || !errors.As(err, &syntaxErr) {
		return err
	}

	fixed, repairErr := jsonrepair.JSONRepair(text)
	if repairErr != nil {
		return goerr.Wrap(err, "failed to repair JSON", goerr.V("repair_error", repairErr.Error()))
	}
	return json.Unmarshal([]byte(fixed), v)
}
