// Package clock schedules repeating callbacks. Ticker drives them from real
// time; Manual lets tests fire them synchronously.
package clock

import (
	"sync"
	"time"
)

// Tick is a scheduled callback. Returning false ends the schedule.
type Tick func() bool

// Scheduler runs a Tick every interval until it returns false or the returned
// stop function is called. stop is idempotent; once it returns, the tick is
// not invoked again. stop must not be called from within the tick.
type Scheduler interface {
	Every(interval time.Duration, tick Tick) (stop func())
}

// schedule is the stop/fire guard shared by both schedulers
type schedule struct {
	mu      sync.Mutex
	stopped bool
	tick    Tick
}

func (s *schedule) fire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if !s.tick() {
		s.stopped = true
	}
	return !s.stopped
}

func (s *schedule) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Ticker is a Scheduler backed by time.Ticker
type Ticker struct{}

// NewTicker creates a real-time Scheduler
func NewTicker() *Ticker {
	return &Ticker{}
}

func (x *Ticker) Every(interval time.Duration, tick Tick) func() {
	s := &schedule{tick: tick}
	t := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if !s.fire() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.stop()
			close(done)
		})
	}
}

// Manual is a Scheduler whose ticks fire only when Advance is called
type Manual struct {
	mu        sync.Mutex
	schedules []*schedule
}

// NewManual creates a Scheduler for tests
func NewManual() *Manual {
	return &Manual{}
}

func (x *Manual) Every(_ time.Duration, tick Tick) func() {
	s := &schedule{tick: tick}
	x.mu.Lock()
	x.schedules = append(x.schedules, s)
	x.mu.Unlock()
	return s.stop
}

// Advance fires every live schedule once, in registration order, and returns
// how many were fired.
func (x *Manual) Advance() int {
	x.mu.Lock()
	pending := append([]*schedule(nil), x.schedules...)
	x.mu.Unlock()

	fired := 0
	live := pending[:0]
	for _, s := range pending {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			continue
		}
		fired++
		if s.fire() {
			live = append(live, s)
		}
	}

	x.mu.Lock()
	// Keep schedules registered during this Advance as well.
	x.schedules = append(live, x.schedules[len(pending):]...)
	x.mu.Unlock()
	return fired
}

// Live returns the number of schedules that have not stopped
func (x *Manual) Live() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, s := range x.schedules {
		s.mu.Lock()
		if !s.stopped {
			n++
		}
		s.mu.Unlock()
	}
	return n
}
