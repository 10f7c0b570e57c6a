package accounts

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DefaultRetryBackoff is the wait applied before the single retry.
const DefaultRetryBackoff = time.Second

// gatewayMaxAttempts bounds the in-process retry: two total attempts.
const gatewayMaxAttempts = 2

// TransactionRunner runs a unit of work inside a transaction, committing on
// success and rolling back on error. RepositoryManager satisfies it.
type TransactionRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

// StoreGateway executes a single logical query against the transactional
// store. Transient failures are retried once after a backoff; every other
// failure is absorbed here so callers only ever see "no result".
type StoreGateway struct {
	runner  TransactionRunner
	backoff time.Duration
	logger  Logger
	sleep   func(time.Duration)
}

// GatewayOption customizes gateway construction.
type GatewayOption func(*StoreGateway)

// WithGatewayBackoff overrides the retry backoff.
func WithGatewayBackoff(d time.Duration) GatewayOption {
	return func(g *StoreGateway) {
		if d > 0 {
			g.backoff = d
		}
	}
}

// WithGatewayLogger overrides the logger used for absorbed failures.
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *StoreGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGatewaySleep injects the wait function (useful for tests).
func WithGatewaySleep(sleep func(time.Duration)) GatewayOption {
	return func(g *StoreGateway) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// NewStoreGateway creates a gateway around the given transaction runner.
func NewStoreGateway(runner TransactionRunner, opts ...GatewayOption) *StoreGateway {
	g := &StoreGateway{
		runner:  runner,
		backoff: DefaultRetryBackoff,
		logger:  defLogger{},
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Run executes fn inside a transaction attempt, committing on success.
// On a transient store error it rolls back, waits, and retries exactly once
// more. It reports whether the operation committed; the failure itself never
// propagates past this boundary.
func (g *StoreGateway) Run(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) bool {
	for attempt := 1; attempt <= gatewayMaxAttempts; attempt++ {
		err := g.runner.RunInTx(ctx, nil, fn)
		if err == nil {
			return true
		}

		if !IsTransientStoreError(err) {
			g.logger.Error("store gateway: query failed: %v",
				goerrors.Wrap(err, goerrors.CategoryOperation, "account transaction failed"))
			return false
		}

		if attempt == gatewayMaxAttempts {
			g.logger.Error("store gateway: retry exhausted: %v",
				goerrors.Wrap(err, goerrors.CategoryOperation, "account transaction failed"))
			return false
		}

		g.logger.Debug("store gateway: transient error, retrying in %s: %v", g.backoff, err)
		g.sleep(g.backoff)
	}

	return false
}
