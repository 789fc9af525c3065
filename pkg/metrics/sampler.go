package metrics

import (
	"sync"
	"time"

	"github.com/m-mizutani/devpilot/pkg/model"
)

const defaultWindow = 50

// Sampler keeps a sliding window of observed response latencies and code
// completion confidences. It is safe for concurrent use.
type Sampler struct {
	mu          sync.Mutex
	window      int
	latencies   []time.Duration
	confidences []float64
}

// SamplerOption is a functional option for Sampler
type SamplerOption func(*Sampler)

// WithWindow sets how many recent observations are averaged
func WithWindow(n int) SamplerOption {
	return func(s *Sampler) {
		if n > 0 {
			s.window = n
		}
	}
}

// NewSampler creates an empty Sampler
func NewSampler(opts ...SamplerOption) *Sampler {
	s := &Sampler{window: defaultWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ObserveLatency records the duration of one inference call
func (s *Sampler) ObserveLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = appendWindow(s.latencies, d, s.window)
}

// ObserveConfidence records the confidence reported for one code suggestion
func (s *Sampler) ObserveConfidence(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confidences = appendWindow(s.confidences, c, s.window)
}

// Samples returns the window averages. Fields with no observation are nil.
func (s *Sampler) Samples() model.Samples {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out model.Samples
	if len(s.latencies) > 0 {
		var total time.Duration
		for _, d := range s.latencies {
			total += d
		}
		avg := total / time.Duration(len(s.latencies))
		out.ResponseTime = &avg
	}
	if len(s.confidences) > 0 {
		var total float64
		for _, c := range s.confidences {
			total += c
		}
		avg := total / float64(len(s.confidences))
		out.CodeCompletionAccuracy = &avg
	}
	return out
}

func appendWindow[T any](s []T, v T, window int) []T {
	s = append(s, v)
	if len(s) > window {
		s = s[len(s)-window:]
	}
	return s
}
