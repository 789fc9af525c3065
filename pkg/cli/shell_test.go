package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/session"
	"github.com/m-mizutani/devpilot/pkg/usecase/testtools"
	"github.com/m-mizutani/devpilot/pkg/utils/clock"
	"github.com/m-mizutani/gt"
)

type shellFixture struct {
	sh        *shell
	out       *bytes.Buffer
	inference *testtools.Inference
	scheduler *clock.Manual
}

func newShellFixture(t *testing.T) *shellFixture {
	t.Helper()
	f := &shellFixture{
		out:       &bytes.Buffer{},
		inference: &testtools.Inference{},
		scheduler: clock.NewManual(),
	}

	sess, err := session.New(context.Background(), session.NewInput{
		Inference:     f.inference,
		Audio:         &testtools.Audio{},
		Scheduler:     f.scheduler,
		WorkflowSteps: 2,
	})
	gt.NoError(t, err)
	t.Cleanup(func() { sess.Close(context.Background()) })

	f.sh = &shell{cfg: &config{}, sess: sess, w: f.out, language: "go"}
	return f
}

func (f *shellFixture) run(t *testing.T, line string) string {
	t.Helper()
	f.out.Reset()
	gt.False(t, f.sh.handle(context.Background(), line))
	return f.out.String()
}

func TestShellChat(t *testing.T) {
	f := newShellFixture(t)

	gt.Equal(t, f.run(t, "what is a goroutine?"), "ok\n")
	gt.Equal(t, f.inference.LastArgs("Chat")[0], "what is a goroutine?")
	gt.Equal(t, f.sh.sess.State().View, viewChat)

	gt.Equal(t, f.run(t, ""), "")
	gt.A(t, f.sh.sess.State().Interactions).Length(1)
}

func TestShellCodeCommands(t *testing.T) {
	f := newShellFixture(t)

	gt.Equal(t, f.run(t, "/complete func main() {"), "// completed\n")
	gt.Equal(t, f.inference.LastArgs("CompleteCode"), []string{"func main() {", "go"})
	gt.Equal(t, f.sh.sess.State().View, viewCode)

	gt.Equal(t, f.run(t, "/lang rust"), "language: rust\n")
	gt.Equal(t, f.run(t, "/generate a parser"), "// generated\n")
	gt.Equal(t, f.inference.LastArgs("GenerateCode"), []string{"a parser", "rust"})

	gt.Equal(t, f.run(t, "/analyze fn main() {}"), "looks good\n")

	out := f.run(t, "/suggestions")
	gt.S(t, out).Contains("[rust 85%] a parser")
	gt.S(t, out).Contains("[go 90%] func main() {")

	// empty input is reported through the store only
	gt.Equal(t, f.run(t, "/complete"), "")
	gt.Equal(t, f.sh.sess.State().LastError, "Please enter some code first")
}

func TestShellVoice(t *testing.T) {
	f := newShellFixture(t)

	gt.Equal(t, f.run(t, "/voice"), "")
	gt.True(t, f.sh.sess.State().IsVoiceRecording)
	gt.Equal(t, f.run(t, "/stop"), "You: hello\n\nAssistant: ok\n")
	gt.False(t, f.sh.sess.State().IsVoiceRecording)

	gt.Equal(t, f.run(t, "/voice"), "")
	gt.S(t, f.run(t, "/voice")).Contains("voice pipeline is busy")
	gt.True(t, f.sh.sess.State().IsVoiceRecording)
	gt.Equal(t, f.run(t, "/cancel"), "")
	gt.False(t, f.sh.sess.State().IsVoiceRecording)
	gt.A(t, f.sh.sess.State().Interactions).Length(1)
}

func TestShellWorkflow(t *testing.T) {
	f := newShellFixture(t)

	out := f.run(t, "/workflow Publish docs")
	gt.S(t, out).Contains("Created workflow: Publish docs")
	tasks := f.sh.sess.State().Workflows
	gt.A(t, tasks).Length(1)
	id := string(tasks[0].ID)
	gt.S(t, out).Contains("ID: " + id)

	gt.Equal(t, f.run(t, "/start "+id), "")
	f.scheduler.Advance()
	gt.S(t, f.run(t, "/workflows")).Contains("[running  ]  50% Publish docs")

	gt.Equal(t, f.run(t, "/pause "+id), "")
	gt.S(t, f.run(t, "/workflows")).Contains("[pending  ]   0% Publish docs")

	gt.S(t, f.run(t, "/start missing")).Contains("workflow not found")
	gt.S(t, f.run(t, "/templates")).Contains("Code Review Automation")
}

func TestShellFailWorkflow(t *testing.T) {
	f := newShellFixture(t)

	f.run(t, "/workflow Publish docs")
	f.run(t, "/workflow Cut release")
	tasks := f.sh.sess.State().Workflows
	gt.A(t, tasks).Length(2)
	first, second := string(tasks[0].ID), string(tasks[1].ID)

	// pending tasks cannot fail
	gt.S(t, f.run(t, "/fail "+first)).Contains("invalid workflow transition")

	gt.Equal(t, f.run(t, "/start "+first), "")
	gt.Equal(t, f.run(t, "/fail "+first+" broken link check"), "")
	task, ok := f.sh.sess.Store().Workflow(model.WorkflowID(first))
	gt.True(t, ok)
	gt.Equal(t, task.Status, model.WorkflowStatusFailed)
	gt.Equal(t, task.Result, "broken link check")
	gt.Equal(t, f.sh.sess.State().LastError, "Workflow failed")

	gt.Equal(t, f.run(t, "/start "+second), "")
	gt.Equal(t, f.run(t, "/fail "+second), "")
	task, ok = f.sh.sess.Store().Workflow(model.WorkflowID(second))
	gt.True(t, ok)
	gt.Equal(t, task.Result, defaultFailReason)

	gt.S(t, f.run(t, "/fail missing")).Contains("workflow not found")
}

func TestShellHistoryAndMetrics(t *testing.T) {
	f := newShellFixture(t)
	f.run(t, "hello")
	f.run(t, "/complete x")

	history := f.run(t, "/history")
	gt.S(t, history).Contains("[code] Code completion for go:")
	gt.S(t, history).Contains("[text] User: hello")
	gt.Equal(t, f.sh.sess.State().View, viewHistory)

	var m struct {
		TotalInteractions int                           `json:"total_interactions"`
		ByKind            map[model.InteractionKind]int `json:"by_kind"`
	}
	gt.NoError(t, json.Unmarshal([]byte(f.run(t, "/metrics")), &m))
	gt.Equal(t, m.TotalInteractions, 2)
	gt.Equal(t, m.ByKind[model.InteractionKindCode], 1)
	gt.Equal(t, m.ByKind[model.InteractionKindVoice], 0)
}

func TestShellControl(t *testing.T) {
	f := newShellFixture(t)

	gt.S(t, f.run(t, "/help")).Contains("/workflow <description>")
	gt.Equal(t, f.run(t, "/nope"), "unknown command /nope, type /help\n")
	gt.True(t, f.sh.handle(context.Background(), "/exit"))
	gt.True(t, f.sh.handle(context.Background(), "/quit"))
}

func TestDisplayName(t *testing.T) {
	f := newShellFixture(t)
	gt.Equal(t, displayName(f.sh.sess), "guest")

	f.sh.sess.SignIn(model.User{ID: "1", Email: "dev@example.com"})
	gt.Equal(t, displayName(f.sh.sess), "dev@example.com")

	f.sh.sess.SignIn(model.User{ID: "1", Email: "dev@example.com", FirstName: "Dev"})
	gt.Equal(t, displayName(f.sh.sess), "Dev")
}

func TestIndicatorSuffix(t *testing.T) {
	gt.Equal(t, indicatorSuffix(store.State{}), "")
	gt.S(t, indicatorSuffix(store.State{IsVoiceRecording: true})).Contains("recording")
	gt.S(t, indicatorSuffix(store.State{IsProcessing: true})).Contains("thinking")
}

func TestBindIndicator(t *testing.T) {
	f := newShellFixture(t)
	var spinnerOut bytes.Buffer
	stop := f.sh.bindIndicator(&spinnerOut)

	f.run(t, "/voice")
	f.run(t, "/stop")
	stop()

	gt.False(t, f.sh.sess.State().Busy())
}

func TestMarkdownForNonTerminal(t *testing.T) {
	render := markdownFor(&bytes.Buffer{})
	gt.Equal(t, render("# Title\n**bold**"), "# Title\n**bold**")
}

func TestShellRender(t *testing.T) {
	f := newShellFixture(t)
	f.sh.render = func(s string) string { return "<" + s + ">" }

	gt.Equal(t, f.run(t, "hi"), "<ok>\n")
	gt.Equal(t, f.run(t, "/analyze x"), "<looks good>\n")
	// code is printed verbatim
	gt.Equal(t, f.run(t, "/complete x"), "// completed\n")
}
