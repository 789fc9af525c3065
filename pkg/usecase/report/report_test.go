package report_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/report"
	"github.com/m-mizutani/devpilot/pkg/usecase/testtools"
	"github.com/m-mizutani/gt"
)

func TestFailure(t *testing.T) {
	st := store.New()
	notifier := &testtools.Notifier{}
	r := report.New(st, notifier)

	cause := errors.New("boom")
	err := r.Failure(context.Background(), "Something went wrong", cause)
	gt.Equal(t, err, cause)
	gt.Equal(t, st.State().LastError, "Something went wrong")
	gt.Equal(t, notifier.Failures(), []string{"Something went wrong"})
	gt.A(t, notifier.Successes()).Length(0)
}

func TestSuccess(t *testing.T) {
	st := store.New()
	notifier := &testtools.Notifier{}
	r := report.New(st, notifier)

	r.Success(context.Background(), "Done!")
	gt.Equal(t, notifier.Successes(), []string{"Done!"})
	gt.Equal(t, st.State().LastError, "")
}

func TestNilNotifier(t *testing.T) {
	st := store.New()
	r := report.New(st, nil)

	r.Success(context.Background(), "ignored")
	gt.Error(t, r.Failure(context.Background(), "still recorded", errors.New("x")))
	gt.Equal(t, st.State().LastError, "still recorded")
}
