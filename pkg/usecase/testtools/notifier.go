package testtools

import (
	"context"
	"sync"
)

// Notifier records notifications
type Notifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (x *Notifier) Success(_ context.Context, msg string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.successes = append(x.successes, msg)
}

func (x *Notifier) Failure(_ context.Context, msg string, _ error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.failures = append(x.failures, msg)
}

func (x *Notifier) Successes() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.successes...)
}

func (x *Notifier) Failures() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.failures...)
}
