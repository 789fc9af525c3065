package code_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/code"
	"github.com/m-mizutani/devpilot/pkg/usecase/report"
	"github.com/m-mizutani/devpilot/pkg/usecase/testtools"
	"github.com/m-mizutani/gt"
)

func setup(t *testing.T) (*code.UseCase, *store.Store, *testtools.Inference, *testtools.Notifier) {
	t.Helper()
	st := store.New()
	inference := &testtools.Inference{}
	notifier := &testtools.Notifier{}
	return code.New(st, inference, report.New(st, notifier)), st, inference, notifier
}

func TestComplete(t *testing.T) {
	uc, st, inference, notifier := setup(t)
	inference.CompleteCodeFunc = func(_ context.Context, src, language string) (*interfaces.CodeCompletion, error) {
		gt.Equal(t, src, "function add(a, b) {")
		gt.Equal(t, language, "typescript")
		return &interfaces.CodeCompletion{Completion: "  return a + b;\n}", Confidence: 0.9}, nil
	}

	suggestion, err := uc.Complete(context.Background(), "function add(a, b) {", "typescript")
	gt.NoError(t, err)
	gt.Equal(t, suggestion.Code, "  return a + b;\n}")
	gt.Equal(t, suggestion.Language, "typescript")
	gt.Equal(t, suggestion.Confidence, 0.9)
	gt.Equal(t, suggestion.Context, "function add(a, b) {")
	gt.NotEqual(t, suggestion.ID, "")

	state := st.State()
	gt.A(t, state.Interactions).Length(1)
	interaction := state.Interactions[0]
	gt.Equal(t, interaction.Kind, model.InteractionKindCode)
	gt.Equal(t, interaction.Message, "Code completion for typescript:\n  return a + b;\n}")
	gt.Equal(t, interaction.Metadata, model.InteractionMetadata(model.CodeCompletionMetadata{
		Suggestion: *suggestion,
		Language:   "typescript",
	}))

	gt.Equal(t, state.RecentSuggestions(5), []model.CodeSuggestion{*suggestion})
	gt.Equal(t, notifier.Successes(), []string{"Code completion generated!"})
}

func TestCompleteDefaultsLanguage(t *testing.T) {
	uc, _, inference, _ := setup(t)

	suggestion, err := uc.Complete(context.Background(), "const x =", " ")
	gt.NoError(t, err)
	gt.Equal(t, suggestion.Language, code.DefaultLanguage)
	gt.Equal(t, inference.LastArgs("CompleteCode"), []string{"const x =", "javascript"})
}

func TestGenerate(t *testing.T) {
	uc, st, inference, notifier := setup(t)
	inference.GenerateCodeFunc = func(_ context.Context, prompt, language string) (*interfaces.GeneratedCode, error) {
		return &interfaces.GeneratedCode{Code: "def fib(n): ...", Confidence: 0.85, Language: "python"}, nil
	}

	suggestion, err := uc.Generate(context.Background(), "fibonacci function", "python")
	gt.NoError(t, err)
	gt.Equal(t, suggestion.Code, "def fib(n): ...")
	gt.Equal(t, suggestion.Context, "fibonacci function")

	state := st.State()
	gt.A(t, state.Interactions).Length(1)
	gt.Equal(t, state.Interactions[0].Message, "Generated code for \"fibonacci function\":\ndef fib(n): ...")
	md, ok := state.Interactions[0].Metadata.(model.CodeGenerationMetadata)
	gt.True(t, ok)
	gt.Equal(t, md.Prompt, "fibonacci function")
	gt.Equal(t, md.Language, "python")
	gt.Equal(t, md.Suggestion, *suggestion)
	gt.Equal(t, notifier.Successes(), []string{"Code generated successfully!"})
}

func TestAnalyze(t *testing.T) {
	uc, st, inference, notifier := setup(t)
	inference.AnalyzeCodeFunc = func(_ context.Context, src string) (string, error) {
		return "Consider handling the nil case.", nil
	}

	analysis, err := uc.Analyze(context.Background(), "func f(p *T) { p.x = 1 }", "go")
	gt.NoError(t, err)
	gt.Equal(t, analysis, "Consider handling the nil case.")

	state := st.State()
	gt.A(t, state.Interactions).Length(1)
	gt.Equal(t, state.Interactions[0].Message, "Code analysis:\nConsider handling the nil case.")
	gt.Equal(t, state.Interactions[0].Metadata, model.InteractionMetadata(model.CodeAnalysisMetadata{
		Analysis: "Consider handling the nil case.",
		Code:     "func f(p *T) { p.x = 1 }",
		Language: "go",
	}))

	// analyses are not suggestions
	gt.A(t, state.RecentSuggestions(5)).Length(0)
	gt.Equal(t, notifier.Successes(), []string{"Code analysis completed!"})
}

func TestEmptyInput(t *testing.T) {
	testCases := map[string]struct {
		call    func(uc *code.UseCase) error
		message string
	}{
		"complete": {
			call: func(uc *code.UseCase) error {
				_, err := uc.Complete(context.Background(), "  \n", "go")
				return err
			},
			message: "Please enter some code first",
		},
		"generate": {
			call: func(uc *code.UseCase) error {
				_, err := uc.Generate(context.Background(), "", "go")
				return err
			},
			message: "Please enter a prompt first",
		},
		"analyze": {
			call: func(uc *code.UseCase) error {
				_, err := uc.Analyze(context.Background(), "\t", "go")
				return err
			},
			message: "Please enter some code to analyze",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			uc, st, inference, notifier := setup(t)

			err := tc.call(uc)
			gt.True(t, errors.Is(err, model.ErrInvalidInput))

			state := st.State()
			gt.A(t, state.Interactions).Length(0)
			gt.Equal(t, state.LastError, tc.message)
			gt.Equal(t, notifier.Failures(), []string{tc.message})
			gt.Equal(t, inference.CallCount("CompleteCode")+inference.CallCount("GenerateCode")+inference.CallCount("AnalyzeCode"), 0)
		})
	}
}

func TestCollaboratorFailure(t *testing.T) {
	cause := errors.New("deadline exceeded")
	uc, st, inference, _ := setup(t)
	inference.CompleteCodeFunc = func(context.Context, string, string) (*interfaces.CodeCompletion, error) {
		return nil, cause
	}
	inference.GenerateCodeFunc = func(context.Context, string, string) (*interfaces.GeneratedCode, error) {
		return nil, cause
	}
	inference.AnalyzeCodeFunc = func(context.Context, string) (string, error) {
		return "", cause
	}

	_, err := uc.Complete(context.Background(), "x", "go")
	gt.True(t, errors.Is(err, model.ErrCollaborator))
	gt.True(t, errors.Is(err, cause))
	gt.Equal(t, st.State().LastError, "Failed to generate code completion")

	_, err = uc.Generate(context.Background(), "x", "go")
	gt.True(t, errors.Is(err, model.ErrCollaborator))
	gt.Equal(t, st.State().LastError, "Failed to generate code")

	_, err = uc.Analyze(context.Background(), "x", "go")
	gt.True(t, errors.Is(err, model.ErrCollaborator))
	gt.Equal(t, st.State().LastError, "Failed to analyze code")

	gt.A(t, st.State().Interactions).Length(0)
}

func TestTimeout(t *testing.T) {
	st := store.New()
	inference := &testtools.Inference{
		AnalyzeCodeFunc: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	uc := code.New(st, inference, report.New(st, nil), code.WithTimeout(10*time.Millisecond))

	_, err := uc.Analyze(context.Background(), "x", "go")
	gt.True(t, errors.Is(err, context.DeadlineExceeded))
	gt.A(t, st.State().Interactions).Length(0)
}
