// Package report turns controller outcomes into user-visible feedback: the
// store's LastError, a notification and a log line.
package report

import (
	"context"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
)

// Reporter is shared by the controllers of one session
type Reporter struct {
	store    *store.Store
	notifier interfaces.Notifier
}

// New creates a Reporter. A nil notifier discards notifications.
func New(st *store.Store, notifier interfaces.Notifier) *Reporter {
	if notifier == nil {
		notifier = Discard{}
	}
	return &Reporter{store: st, notifier: notifier}
}

// Failure records err as the session's last error, notifies the user and
// returns err unchanged so callers can write `return r.Failure(...)`.
func (r *Reporter) Failure(ctx context.Context, msg string, err error) error {
	logging.From(ctx).Error(msg, "error", err)
	r.store.SetError(msg)
	r.notifier.Failure(ctx, msg, err)
	return err
}

// Success notifies the user
func (r *Reporter) Success(ctx context.Context, msg string) {
	logging.From(ctx).Debug(msg)
	r.notifier.Success(ctx, msg)
}

// Discard is a Notifier that drops everything
type Discard struct{}

func (Discard) Success(context.Context, string)        {}
func (Discard) Failure(context.Context, string, error) {}
