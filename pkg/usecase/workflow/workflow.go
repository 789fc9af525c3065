// Package workflow creates workflow tasks from a free-text description and
// drives them through pending -> running -> completed/failed with a bounded
// sequence of scheduled progress ticks.
package workflow

import (
	"sync"
	"time"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/report"
	"github.com/m-mizutani/devpilot/pkg/utils/clock"
)

const (
	DefaultSteps    = 5
	DefaultInterval = time.Second
	DefaultTimeout  = 30 * time.Second

	// CompletedResult is attached to a task when all ticks have run
	CompletedResult = "Workflow completed successfully!"

	titleLimit = 50
)

// Controller owns the tick schedules of running tasks. Task state itself
// lives only in the store.
type Controller struct {
	store     *store.Store
	inference interfaces.Inference
	reporter  *report.Reporter
	scheduler clock.Scheduler

	steps    int
	interval time.Duration
	timeout  time.Duration

	mu   sync.Mutex
	runs map[model.WorkflowID]*run
}

// run is the schedule of one running task
type run struct {
	ticks int
	stop  func()
	done  chan struct{}
}

// Option is a functional option for Controller
type Option func(*Controller)

// WithScheduler sets the tick source
func WithScheduler(s clock.Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithSteps sets the number of progress ticks of a run
func WithSteps(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.steps = n
		}
	}
}

// WithInterval sets the wait between ticks
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTimeout bounds the plan request
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a workflow Controller
func New(st *store.Store, inference interfaces.Inference, reporter *report.Reporter, opts ...Option) *Controller {
	c := &Controller{
		store:     st,
		inference: inference,
		reporter:  reporter,
		scheduler: clock.NewTicker(),
		steps:     DefaultSteps,
		interval:  DefaultInterval,
		timeout:   DefaultTimeout,
		runs:      make(map[model.WorkflowID]*run),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close stops every running schedule. Tasks keep their last stored state.
func (c *Controller) Close() {
	c.mu.Lock()
	runs := c.runs
	c.runs = make(map[model.WorkflowID]*run)
	for _, r := range runs {
		close(r.done)
	}
	c.mu.Unlock()

	for _, r := range runs {
		r.stop()
	}
}

// Running returns the IDs of tasks with a live schedule
func (c *Controller) Running() []model.WorkflowID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]model.WorkflowID, 0, len(c.runs))
	for id := range c.runs {
		ids = append(ids, id)
	}
	return ids
}
