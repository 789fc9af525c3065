// Package testtools provides in-memory collaborators for controller tests.
package testtools

import (
	"context"
	"sync"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
)

// Inference is a scriptable interfaces.Inference. A nil function field
// falls back to a canned successful reply.
type Inference struct {
	CompleteCodeFunc       func(ctx context.Context, code, language string) (*interfaces.CodeCompletion, error)
	GenerateCodeFunc       func(ctx context.Context, prompt, language string) (*interfaces.GeneratedCode, error)
	AnalyzeCodeFunc        func(ctx context.Context, code string) (string, error)
	CreateWorkflowPlanFunc func(ctx context.Context, description string) (string, error)
	ChatFunc               func(ctx context.Context, message, systemContext string) (string, error)
	SpeechToTextFunc       func(ctx context.Context, audio *model.Audio) (string, error)
	TextToSpeechFunc       func(ctx context.Context, text string) (*model.Audio, error)

	mu    sync.Mutex
	calls map[string]int
	last  map[string][]string
}

var _ interfaces.Inference = (*Inference)(nil)

// CallCount returns how many times method was called
func (x *Inference) CallCount(method string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.calls[method]
}

// LastArgs returns the string arguments of the latest call to method
func (x *Inference) LastArgs(method string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.last[method]
}

func (x *Inference) record(method string, args ...string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.calls == nil {
		x.calls = make(map[string]int)
		x.last = make(map[string][]string)
	}
	x.calls[method]++
	x.last[method] = args
}

func (x *Inference) CompleteCode(ctx context.Context, code, language string) (*interfaces.CodeCompletion, error) {
	x.record("CompleteCode", code, language)
	if x.CompleteCodeFunc != nil {
		return x.CompleteCodeFunc(ctx, code, language)
	}
	return &interfaces.CodeCompletion{Completion: "// completed", Confidence: 0.9}, nil
}

func (x *Inference) GenerateCode(ctx context.Context, prompt, language string) (*interfaces.GeneratedCode, error) {
	x.record("GenerateCode", prompt, language)
	if x.GenerateCodeFunc != nil {
		return x.GenerateCodeFunc(ctx, prompt, language)
	}
	return &interfaces.GeneratedCode{Code: "// generated", Confidence: 0.85, Language: language}, nil
}

func (x *Inference) AnalyzeCode(ctx context.Context, code string) (string, error) {
	x.record("AnalyzeCode", code)
	if x.AnalyzeCodeFunc != nil {
		return x.AnalyzeCodeFunc(ctx, code)
	}
	return "looks good", nil
}

func (x *Inference) CreateWorkflowPlan(ctx context.Context, description string) (string, error) {
	x.record("CreateWorkflowPlan", description)
	if x.CreateWorkflowPlanFunc != nil {
		return x.CreateWorkflowPlanFunc(ctx, description)
	}
	return "1. Plan\n2. Build", nil
}

func (x *Inference) Chat(ctx context.Context, message, systemContext string) (string, error) {
	x.record("Chat", message, systemContext)
	if x.ChatFunc != nil {
		return x.ChatFunc(ctx, message, systemContext)
	}
	return "ok", nil
}

func (x *Inference) SpeechToText(ctx context.Context, audio *model.Audio) (string, error) {
	x.record("SpeechToText")
	if x.SpeechToTextFunc != nil {
		return x.SpeechToTextFunc(ctx, audio)
	}
	return "hello", nil
}

func (x *Inference) TextToSpeech(ctx context.Context, text string) (*model.Audio, error) {
	x.record("TextToSpeech", text)
	if x.TextToSpeechFunc != nil {
		return x.TextToSpeechFunc(ctx, text)
	}
	return &model.Audio{Data: []byte("speech"), MIMEType: "audio/wav"}, nil
}
