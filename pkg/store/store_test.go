package store_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/gt"
)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestAppendInteraction(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := store.New(store.WithClock(fixedClock(now)), store.WithIDGenerator(sequentialIDs()))

	first := st.AppendInteraction(model.InteractionDraft{
		Message:  "User: hello\n\nAssistant: hi there",
		Kind:     model.InteractionKindVoice,
		Metadata: model.VoiceMetadata{Transcription: "hello", Response: "hi there"},
	})
	second := st.AppendInteraction(model.InteractionDraft{
		Message: "Code analysis:\nok",
		Kind:    model.InteractionKindCode,
	})

	gt.Equal(t, first.ID, model.InteractionID("id-1"))
	gt.Equal(t, first.Timestamp, now)
	gt.NotEqual(t, first.ID, second.ID)

	state := st.State()
	gt.A(t, state.Interactions).Length(2)
	gt.Equal(t, state.Interactions[0].ID, first.ID)
	gt.Equal(t, state.Interactions[1].ID, second.ID)
	gt.Equal(t, state.Metrics.TotalInteractions, len(state.Interactions))
	gt.Equal(t, state.Metrics.VoiceInteractions, 1)
}

func TestAppendInteractionConcurrently(t *testing.T) {
	st := store.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.AppendInteraction(model.InteractionDraft{Message: "m", Kind: model.InteractionKindText})
		}()
	}
	wg.Wait()

	state := st.State()
	gt.A(t, state.Interactions).Length(50)
	gt.Equal(t, state.Metrics.TotalInteractions, 50)

	seen := make(map[model.InteractionID]bool)
	for _, i := range state.Interactions {
		gt.False(t, seen[i.ID])
		seen[i.ID] = true
	}
}

func TestCreateAndUpdateWorkflowTask(t *testing.T) {
	st := store.New(store.WithIDGenerator(sequentialIDs()))

	task := st.CreateWorkflowTask(model.WorkflowDraft{Title: "Deploy", Description: "Deploy the app"})
	gt.Equal(t, task.Status, model.WorkflowStatusPending)
	gt.Equal(t, task.Progress, 0.0)

	st.UpdateWorkflowTask(task.ID, model.StatusUpdate(model.WorkflowStatusRunning))
	st.UpdateWorkflowTask(task.ID, model.ProgressUpdate(40))

	got, ok := st.Workflow(task.ID)
	gt.True(t, ok)
	gt.Equal(t, got.Status, model.WorkflowStatusRunning)
	gt.Equal(t, got.Progress, 40.0)
	gt.Equal(t, got.Title, "Deploy")

	st.UpdateWorkflowTask(task.ID, model.StatusUpdate(model.WorkflowStatusCompleted))
	state := st.State()
	gt.Equal(t, state.Workflows[0].Progress, 100.0)
	gt.Equal(t, state.Metrics.WorkflowsCompleted, 1)
	gt.Equal(t, state.Metrics.SuccessRate, 1.0)
}

func TestUpdateUnknownWorkflowIsNoop(t *testing.T) {
	st := store.New()
	st.CreateWorkflowTask(model.WorkflowDraft{Title: "A"})
	before := st.State()

	st.UpdateWorkflowTask("missing", model.StatusUpdate(model.WorkflowStatusFailed))

	if diff := cmp.Diff(before, st.State()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
}

func TestRecomputeMetricsIsIdempotent(t *testing.T) {
	st := store.New()
	st.AppendInteraction(model.InteractionDraft{Message: "m", Kind: model.InteractionKindVoice})
	st.CreateWorkflowTask(model.WorkflowDraft{Title: "A"})

	latency := 250 * time.Millisecond
	first := st.RecomputeMetrics(model.Samples{ResponseTime: &latency})
	second := st.RecomputeMetrics(model.Samples{})

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("metrics changed on recompute (-first +second):\n%s", diff)
	}
	gt.Equal(t, second.AverageResponseTime, latency)
}

func TestFlagsAndError(t *testing.T) {
	st := store.New()

	st.SetFlag(store.FlagVoiceRecording, true)
	gt.True(t, st.State().IsVoiceRecording)
	gt.True(t, st.State().Busy())

	st.SetFlag(store.FlagVoiceRecording, false)
	st.SetFlag(store.FlagProcessing, true)
	gt.False(t, st.State().IsVoiceRecording)
	gt.True(t, st.State().IsProcessing)

	st.SetError("Failed to process voice input")
	gt.Equal(t, st.State().LastError, "Failed to process voice input")
	st.ClearError()
	gt.Equal(t, st.State().LastError, "")
}

func TestUserAndView(t *testing.T) {
	st := store.New()
	user := model.User{ID: "u1", Email: "dev@example.com"}

	st.SetUser(&user)
	st.SetAuthenticated(true)
	st.SetView("workflows")

	user.Email = "changed@example.com"
	state := st.State()
	gt.Equal(t, state.User.Email, "dev@example.com")
	gt.True(t, state.Authenticated)
	gt.Equal(t, state.View, model.ViewID("workflows"))

	st.SetUser(nil)
	gt.Nil(t, st.State().User)
}

func TestStateSnapshotsAreIndependent(t *testing.T) {
	st := store.New()
	st.AppendInteraction(model.InteractionDraft{Message: "one", Kind: model.InteractionKindText})

	snapshot := st.State()
	snapshot.Interactions[0].Message = "mutated"

	gt.Equal(t, st.State().Interactions[0].Message, "one")
}

func TestSubscribe(t *testing.T) {
	st := store.New()

	var got []int
	unsubscribe := st.Subscribe(func(s store.State) {
		got = append(got, len(s.Interactions))
	})

	st.AppendInteraction(model.InteractionDraft{Message: "a", Kind: model.InteractionKindText})
	st.AppendInteraction(model.InteractionDraft{Message: "b", Kind: model.InteractionKindText})
	unsubscribe()
	st.AppendInteraction(model.InteractionDraft{Message: "c", Kind: model.InteractionKindText})

	gt.Equal(t, got, []int{1, 2})
}

func TestRecentSuggestions(t *testing.T) {
	st := store.New()
	for i := range 7 {
		st.AppendInteraction(model.InteractionDraft{
			Message: "code",
			Kind:    model.InteractionKindCode,
			Metadata: model.CodeCompletionMetadata{
				Suggestion: model.CodeSuggestion{Code: fmt.Sprintf("s%d", i)},
			},
		})
	}
	st.AppendInteraction(model.InteractionDraft{Message: "chat", Kind: model.InteractionKindText})

	suggestions := st.State().RecentSuggestions(5)
	gt.A(t, suggestions).Length(5)
	gt.Equal(t, suggestions[0].Code, "s6")
	gt.Equal(t, suggestions[4].Code, "s2")
}
