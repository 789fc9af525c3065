// Package code provides single-shot code completion, generation and
// analysis backed by the inference collaborator.
package code

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/report"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultLanguage = "javascript"
	DefaultTimeout  = 30 * time.Second
)

// UseCase provides code assistance operations
type UseCase struct {
	store     *store.Store
	inference interfaces.Inference
	reporter  *report.Reporter
	timeout   time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithTimeout bounds each inference call
func WithTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

// New creates a new code UseCase instance
func New(st *store.Store, inference interfaces.Inference, reporter *report.Reporter, opts ...Option) *UseCase {
	uc := &UseCase{
		store:     st,
		inference: inference,
		reporter:  reporter,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func languageOrDefault(language string) string {
	if language = strings.TrimSpace(language); language == "" {
		return DefaultLanguage
	}
	return language
}

// Complete continues code and records the suggestion
func (uc *UseCase) Complete(ctx context.Context, code, language string) (*model.CodeSuggestion, error) {
	if strings.TrimSpace(code) == "" {
		return nil, uc.reporter.Failure(ctx, "Please enter some code first", model.InputError("code is empty"))
	}
	language = languageOrDefault(language)

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	resp, err := uc.inference.CompleteCode(callCtx, code, language)
	if err != nil {
		return nil, uc.reporter.Failure(ctx, "Failed to generate code completion",
			model.CollaboratorError(err, "failed to complete code", goerr.V("language", language)))
	}

	suggestion := model.CodeSuggestion{
		ID:         model.NewSuggestionID(),
		Code:       resp.Completion,
		Language:   language,
		Confidence: resp.Confidence,
		Context:    code,
	}

	uc.store.AppendInteraction(model.InteractionDraft{
		Message: "Code completion for " + language + ":\n" + suggestion.Code,
		Kind:    model.InteractionKindCode,
		Metadata: model.CodeCompletionMetadata{
			Suggestion: suggestion,
			Language:   language,
		},
	})

	uc.reporter.Success(ctx, "Code completion generated!")
	return &suggestion, nil
}

// Generate writes code for a prompt and records the suggestion
func (uc *UseCase) Generate(ctx context.Context, prompt, language string) (*model.CodeSuggestion, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, uc.reporter.Failure(ctx, "Please enter a prompt first", model.InputError("prompt is empty"))
	}
	language = languageOrDefault(language)

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	resp, err := uc.inference.GenerateCode(callCtx, prompt, language)
	if err != nil {
		return nil, uc.reporter.Failure(ctx, "Failed to generate code",
			model.CollaboratorError(err, "failed to generate code", goerr.V("language", language)))
	}
	if resp.Language != "" {
		language = resp.Language
	}

	suggestion := model.CodeSuggestion{
		ID:         model.NewSuggestionID(),
		Code:       resp.Code,
		Language:   language,
		Confidence: resp.Confidence,
		Context:    prompt,
	}

	uc.store.AppendInteraction(model.InteractionDraft{
		Message: "Generated code for \"" + prompt + "\":\n" + suggestion.Code,
		Kind:    model.InteractionKindCode,
		Metadata: model.CodeGenerationMetadata{
			Suggestion: suggestion,
			Prompt:     prompt,
			Language:   language,
		},
	})

	uc.reporter.Success(ctx, "Code generated successfully!")
	return &suggestion, nil
}

// Analyze reviews code and records the analysis
func (uc *UseCase) Analyze(ctx context.Context, code, language string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", uc.reporter.Failure(ctx, "Please enter some code to analyze", model.InputError("code is empty"))
	}
	language = languageOrDefault(language)

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	analysis, err := uc.inference.AnalyzeCode(callCtx, code)
	if err != nil {
		return "", uc.reporter.Failure(ctx, "Failed to analyze code",
			model.CollaboratorError(err, "failed to analyze code"))
	}

	uc.store.AppendInteraction(model.InteractionDraft{
		Message: "Code analysis:\n" + analysis,
		Kind:    model.InteractionKindCode,
		Metadata: model.CodeAnalysisMetadata{
			Analysis: analysis,
			Code:     code,
			Language: language,
		},
	})

	uc.reporter.Success(ctx, "Code analysis completed!")
	return analysis, nil
}
