package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobName enumerates the notification jobs emitted on account transitions.
type JobName string

const (
	JobVerifyAccount       JobName = "account.send_verification"
	JobAccountLocked       JobName = "account.locked"
	JobAccountUnlocked     JobName = "account.unlocked"
	JobRoleUpgrade         JobName = "account.role_upgrade"
	JobProfessionalUpgrade JobName = "account.professional_status_upgrade"
)

// NotificationQueue is the queue every account notification job routes to.
const NotificationQueue = "account_notifications"

// Job is an asynchronous, fire-and-forget unit of work carrying the account
// id plus optional extra arguments (e.g. the new role name).
type Job struct {
	Name       JobName   `json:"name"`
	AccountID  uuid.UUID `json:"account_id"`
	Args       []string  `json:"args,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob builds a job stamped with the enqueue time.
func NewJob(name JobName, accountID uuid.UUID, args ...string) Job {
	return Job{
		Name:       name,
		AccountID:  accountID,
		Args:       args,
		EnqueuedAt: time.Now(),
	}
}

// Dispatcher enqueues a job for asynchronous, at-least-once, out-of-process
// execution. Dispatch returns as soon as the job is handed off; execution
// order across job kinds is not guaranteed. The manager runs dispatch
// best-effort: errors are logged, never retried, and never roll back the
// committed state change.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, job Job) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, job Job) error {
	if f == nil {
		return nil
	}
	return f(ctx, job)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, Job) error {
	return nil
}

func normalizeDispatcher(d Dispatcher) Dispatcher {
	if d == nil {
		return noopDispatcher{}
	}
	return d
}
