package accounts_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

const sqliteCreateAccounts = `CREATE TABLE accounts (
    id TEXT NOT NULL PRIMARY KEY,
    nickname TEXT NOT NULL,
    email TEXT NOT NULL,
    first_name TEXT,
    last_name TEXT,
    bio TEXT,
    phone_number TEXT,
    hashed_password TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'ANONYMOUS',
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    verification_token TEXT NULL,
    is_locked BOOLEAN NOT NULL DEFAULT FALSE,
    failed_login_attempts INTEGER NOT NULL DEFAULT 0,
    last_login_at TIMESTAMP NULL,
    is_professional BOOLEAN NOT NULL DEFAULT FALSE,
    professional_status_updated_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_accounts_nickname UNIQUE (nickname),
    CONSTRAINT uq_accounts_email UNIQUE (email)
);`

// recorderDispatcher captures dispatched jobs for assertions.
type recorderDispatcher struct {
	mu   sync.Mutex
	jobs []accounts.Job
	err  error
}

func (r *recorderDispatcher) Dispatch(ctx context.Context, job accounts.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recorderDispatcher) Jobs() []accounts.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]accounts.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

func (r *recorderDispatcher) CountOf(name accounts.JobName) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, job := range r.jobs {
		if job.Name == name {
			n++
		}
	}
	return n
}

func (r *recorderDispatcher) Last() (accounts.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.jobs) == 0 {
		return accounts.Job{}, false
	}
	return r.jobs[len(r.jobs)-1], true
}

func setupRepository(t *testing.T) (accounts.RepositoryManager, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateAccounts)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return accounts.NewRepositoryManager(bunDB), cleanup
}

func setupManager(t *testing.T, opts ...accounts.ManagerOption) (*accounts.AccountManager, *recorderDispatcher, accounts.RepositoryManager, func()) {
	t.Helper()

	repo, cleanup := setupRepository(t)
	recorder := &recorderDispatcher{}

	gateway := accounts.NewStoreGateway(repo,
		accounts.WithGatewayBackoff(time.Millisecond),
	)

	base := []accounts.ManagerOption{
		accounts.WithDispatcher(recorder),
		accounts.WithBcryptCost(bcrypt.MinCost),
		accounts.WithStoreGateway(gateway),
	}

	manager := accounts.NewAccountManager(repo, append(base, opts...)...)
	return manager, recorder, repo, cleanup
}

// errDispatch is used to prove the manager drops dispatcher failures.
var errDispatch = errors.New("broker unavailable")
