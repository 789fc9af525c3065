// Package store holds the single source of truth for a session: the
// interaction log, workflow tasks, cached metrics and transient flags.
// Every operation is applied atomically through Reduce.
package store

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/devpilot/pkg/model"
)

// Listener is called with a snapshot after every dispatched action.
// Listeners run in dispatch order and must not call back into the Store
// synchronously.
type Listener func(State)

// Store serializes actions against one State
type Store struct {
	mu    sync.Mutex
	state State

	notifyMu  sync.Mutex
	listeners map[int]Listener
	nextID    int

	now   func() time.Time
	newID func() string
}

// Option is a functional option for Store
type Option func(*Store)

// WithClock sets the time source used for interaction timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the generator used for interaction and workflow IDs
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// New creates an empty Store
func New(opts ...Option) *Store {
	s := &Store{
		listeners: make(map[int]Listener),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies a and returns the resulting state snapshot
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	snapshot := s.state.Clone()

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, id := range sortedKeys(s.listeners) {
		s.listeners[id](snapshot)
	}
	return snapshot
}

// State returns a snapshot of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn for every subsequent change. The returned function
// removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.listeners, id)
	}
}

// AppendInteraction assigns an ID and timestamp to draft and appends it
func (s *Store) AppendInteraction(draft model.InteractionDraft) model.Interaction {
	s.mu.Lock()
	i := model.Interaction{
		ID:        model.InteractionID(s.newID()),
		Message:   draft.Message,
		Timestamp: s.now(),
		Kind:      draft.Kind,
		Metadata:  draft.Metadata,
	}
	s.mu.Unlock()

	s.Dispatch(AppendInteraction{Interaction: i})
	return i
}

// CreateWorkflowTask inserts a pending task with zero progress
func (s *Store) CreateWorkflowTask(draft model.WorkflowDraft) model.WorkflowTask {
	s.mu.Lock()
	t := model.WorkflowTask{
		ID:          model.WorkflowID(s.newID()),
		Title:       draft.Title,
		Description: draft.Description,
		Status:      model.WorkflowStatusPending,
		Progress:    model.ProgressMin,
		Result:      draft.Result,
	}
	s.mu.Unlock()

	s.Dispatch(CreateWorkflowTask{Task: t})
	return t
}

// UpdateWorkflowTask merges update into the task with id. An unknown id is
// not an error: the collection is left unchanged.
func (s *Store) UpdateWorkflowTask(id model.WorkflowID, update model.WorkflowUpdate) {
	s.Dispatch(UpdateWorkflowTask{ID: id, Update: update})
}

// Workflow returns the current version of the task with id
func (s *Store) Workflow(id model.WorkflowID) (model.WorkflowTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Workflow(id)
}

// SetFlag sets a transient session flag
func (s *Store) SetFlag(flag Flag, value bool) {
	s.Dispatch(SetFlag{Flag: flag, Value: value})
}

// SetError records msg as the last error
func (s *Store) SetError(msg string) {
	s.Dispatch(SetError{Message: msg})
}

// ClearError clears the last error
func (s *Store) ClearError() {
	s.Dispatch(SetError{})
}

// RecomputeMetrics refreshes cached metrics from the collections and samples
func (s *Store) RecomputeMetrics(samples model.Samples) model.Metrics {
	return s.Dispatch(RecomputeMetrics{Samples: samples}).Metrics
}

// SetUser records the signed-in user; nil clears it
func (s *Store) SetUser(user *model.User) {
	if user != nil {
		u := *user
		user = &u
	}
	s.Dispatch(SetUser{User: user})
}

// SetAuthenticated records the authorization signal
func (s *Store) SetAuthenticated(authenticated bool) {
	s.Dispatch(SetAuthenticated{Authenticated: authenticated})
}

// SetView records the current view
func (s *Store) SetView(view model.ViewID) {
	s.Dispatch(SetView{View: view})
}

func sortedKeys(m map[int]Listener) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
