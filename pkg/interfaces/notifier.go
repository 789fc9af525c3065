package interfaces

import "context"

// Notifier surfaces user-visible notifications
type Notifier interface {
	Success(ctx context.Context, msg string)
	Failure(ctx context.Context, msg string, err error)
}
