package accounts_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func seedAccount(t *testing.T, repo accounts.RepositoryManager, email string, mutate func(*accounts.Account)) *accounts.Account {
	t.Helper()

	record := &accounts.Account{
		Nickname:       fmt.Sprintf("seed_%s", uuid.NewString()[:8]),
		Email:          email,
		HashedPassword: "digest",
	}
	if mutate != nil {
		mutate(record)
	}

	created, err := repo.Accounts().Create(context.Background(), record)
	require.NoError(t, err)
	return created
}

func TestAccountsCreateAssignsDefaults(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()

	created := seedAccount(t, repo, "defaults@example.com", nil)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, accounts.RoleAnonymous, created.Role)

	// explicit values survive
	explicit := seedAccount(t, repo, "explicit@example.com", func(a *accounts.Account) {
		a.ID = uuid.New()
		a.Role = accounts.RoleManager
	})
	assert.Equal(t, accounts.RoleManager, explicit.Role)
}

func TestAccountsGetBy(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()
	ctx := context.Background()

	created := seedAccount(t, repo, "getby@example.com", nil)

	byEmail, err := repo.Accounts().GetBy(ctx, "email", "getby@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byNickname, err := repo.Accounts().GetBy(ctx, "nickname", created.Nickname)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNickname.ID)

	byID, err := repo.Accounts().GetBy(ctx, "id", created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	_, err = repo.Accounts().GetBy(ctx, "email", "missing@example.com")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsCountAndListPage(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		seedAccount(t, repo, fmt.Sprintf("page%d@example.com", i), nil)
	}

	total, err := repo.Accounts().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	page, err := repo.Accounts().ListPage(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	page, err = repo.Accounts().ListPage(ctx, 3, 3)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = repo.Accounts().ListPage(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestAccountsDeleteByID(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()
	ctx := context.Background()

	created := seedAccount(t, repo, "delete@example.com", nil)

	deleted, err := repo.Accounts().DeleteByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Accounts().DeleteByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAccountsTrackLogins(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()
	ctx := context.Background()

	created := seedAccount(t, repo, "track@example.com", nil)

	require.NoError(t, repo.Accounts().TrackFailedLogin(ctx, created.ID, 3, false))
	stored, err := repo.Accounts().GetBy(ctx, "id", created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, stored.FailedLogins)
	assert.False(t, stored.IsLocked)

	require.NoError(t, repo.Accounts().TrackFailedLogin(ctx, created.ID, 5, true))
	stored, err = repo.Accounts().GetBy(ctx, "id", created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 5, stored.FailedLogins)
	assert.True(t, stored.IsLocked)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Accounts().TrackSuccessfulLogin(ctx, created.ID, at))
	stored, err = repo.Accounts().GetBy(ctx, "id", created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLogins)
	require.NotNil(t, stored.LastLoginAt)
	assert.WithinDuration(t, at, *stored.LastLoginAt, time.Second)
}

func TestAccountsResetCredentials(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()
	ctx := context.Background()

	created := seedAccount(t, repo, "creds@example.com", func(a *accounts.Account) {
		a.IsLocked = true
		a.FailedLogins = 5
	})

	require.NoError(t, repo.Accounts().ResetCredentials(ctx, created.ID, "new-digest"))

	stored, err := repo.Accounts().GetBy(ctx, "id", created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "new-digest", stored.HashedPassword)
	assert.Equal(t, 0, stored.FailedLogins)
	assert.False(t, stored.IsLocked)

	err = repo.Accounts().ResetCredentials(ctx, uuid.New(), "new-digest")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsConsumeVerificationToken(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()
	ctx := context.Background()

	token := "pending-token"
	created := seedAccount(t, repo, "consume@example.com", func(a *accounts.Account) {
		a.VerificationToken = &token
	})

	require.NoError(t, repo.Accounts().ConsumeVerificationToken(ctx, created.ID, accounts.RoleAuthenticated))

	stored, err := repo.Accounts().GetBy(ctx, "id", created.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.False(t, stored.HasVerificationToken())
	assert.Equal(t, accounts.RoleAuthenticated, stored.Role)

	err = repo.Accounts().ConsumeVerificationToken(ctx, uuid.New(), accounts.RoleAuthenticated)
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsUnlock(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()
	ctx := context.Background()

	created := seedAccount(t, repo, "unlockrepo@example.com", func(a *accounts.Account) {
		a.IsLocked = true
		a.FailedLogins = 7
	})

	require.NoError(t, repo.Accounts().Unlock(ctx, created.ID))

	stored, err := repo.Accounts().GetBy(ctx, "id", created.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.IsLocked)
	assert.Equal(t, 0, stored.FailedLogins)

	err = repo.Accounts().Unlock(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestRepositoryManagerRunInTx(t *testing.T) {
	repo, cleanup := setupRepository(t)
	defer cleanup()
	ctx := context.Background()

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Accounts().CreateTx(ctx, tx, &accounts.Account{
			Nickname:       "txn_ibis_42",
			Email:          "txn@example.com",
			HashedPassword: "digest",
		})
		return err
	})
	require.NoError(t, err)

	total, err := repo.Accounts().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// a returned error rolls the write back
	boom := fmt.Errorf("boom")
	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := repo.Accounts().CreateTx(ctx, tx, &accounts.Account{
			Nickname:       "txn_ibis_43",
			Email:          "rollback@example.com",
			HashedPassword: "digest",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	total, err = repo.Accounts().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
