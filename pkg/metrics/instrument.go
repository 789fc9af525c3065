package metrics

import (
	"context"
	"time"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
)

// instrumented wraps an Inference and feeds every successful call into a Sampler.
type instrumented struct {
	next    interfaces.Inference
	sampler *Sampler
	now     func() time.Time
}

// Instrument returns an Inference that records call latency, and the
// confidence of code suggestions, into sampler.
func Instrument(next interfaces.Inference, sampler *Sampler) interfaces.Inference {
	return &instrumented{next: next, sampler: sampler, now: time.Now}
}

func (x *instrumented) observe(start time.Time, err error) {
	if err == nil {
		x.sampler.ObserveLatency(x.now().Sub(start))
	}
}

func (x *instrumented) CompleteCode(ctx context.Context, code, language string) (*interfaces.CodeCompletion, error) {
	start := x.now()
	resp, err := x.next.CompleteCode(ctx, code, language)
	x.observe(start, err)
	if err == nil && resp != nil {
		x.sampler.ObserveConfidence(resp.Confidence)
	}
	return resp, err
}

func (x *instrumented) GenerateCode(ctx context.Context, prompt, language string) (*interfaces.GeneratedCode, error) {
	start := x.now()
	resp, err := x.next.GenerateCode(ctx, prompt, language)
	x.observe(start, err)
	if err == nil && resp != nil {
		x.sampler.ObserveConfidence(resp.Confidence)
	}
	return resp, err
}

func (x *instrumented) AnalyzeCode(ctx context.Context, code string) (string, error) {
	start := x.now()
	resp, err := x.next.AnalyzeCode(ctx, code)
	x.observe(start, err)
	return resp, err
}

func (x *instrumented) CreateWorkflowPlan(ctx context.Context, description string) (string, error) {
	start := x.now()
	resp, err := x.next.CreateWorkflowPlan(ctx, description)
	x.observe(start, err)
	return resp, err
}

func (x *instrumented) Chat(ctx context.Context, message, systemContext string) (string, error) {
	start := x.now()
	resp, err := x.next.Chat(ctx, message, systemContext)
	x.observe(start, err)
	return resp, err
}

func (x *instrumented) SpeechToText(ctx context.Context, audio *model.Audio) (string, error) {
	start := x.now()
	resp, err := x.next.SpeechToText(ctx, audio)
	x.observe(start, err)
	return resp, err
}

func (x *instrumented) TextToSpeech(ctx context.Context, text string) (*model.Audio, error) {
	start := x.now()
	resp, err := x.next.TextToSpeech(ctx, text)
	x.observe(start, err)
	return resp, err
}
