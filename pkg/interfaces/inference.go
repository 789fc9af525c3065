package interfaces

import (
	"context"

	"github.com/m-mizutani/devpilot/pkg/model"
)

// CodeCompletion is the result of completing existing code
type CodeCompletion struct {
	Completion string
	Confidence float64
}

// GeneratedCode is the result of generating code from a prompt
type GeneratedCode struct {
	Code       string
	Confidence float64
	Language   string
}

// Inference is the hosted inference API. Every method may fail with an
// opaque error.
type Inference interface {
	// CompleteCode continues the given code
	CompleteCode(ctx context.Context, code, language string) (*CodeCompletion, error)

	// GenerateCode writes code for a natural language prompt
	GenerateCode(ctx context.Context, prompt, language string) (*GeneratedCode, error)

	// AnalyzeCode reviews code and returns feedback text
	AnalyzeCode(ctx context.Context, code string) (string, error)

	// CreateWorkflowPlan returns a step plan for the described workflow
	CreateWorkflowPlan(ctx context.Context, description string) (string, error)

	// Chat replies to a message under the given system context
	Chat(ctx context.Context, message, systemContext string) (string, error)

	// SpeechToText transcribes audio
	SpeechToText(ctx context.Context, audio *model.Audio) (string, error)

	// TextToSpeech synthesizes audio for text
	TextToSpeech(ctx context.Context, text string) (*model.Audio, error)
}
