package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NOTE: resets rely on raw SQL because ORM updates skip zero values, so they
// would never write failed_login_attempts = 0 or NULL out the token.
var resetAccountCredentialsSQL = `UPDATE "accounts" AS "acc"
SET
	"hashed_password" = ?,
	"failed_login_attempts" = 0,
	"is_locked" = FALSE
WHERE (
	"acc"."id" = ?
) RETURNING *;`

var consumeVerificationTokenSQL = `UPDATE "accounts" AS "acc"
SET
	"verification_token" = NULL,
	"email_verified" = TRUE,
	"role" = ?
WHERE (
	"acc"."id" = ?
) RETURNING *;`

var unlockAccountSQL = `UPDATE "accounts" AS "acc"
SET
	"is_locked" = FALSE,
	"failed_login_attempts" = 0
WHERE (
	"acc"."id" = ?
) RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	GetBy(ctx context.Context, column string, value any) (*Account, error)
	GetByTx(ctx context.Context, tx bun.IDB, column string, value any) (*Account, error)
	ListPage(ctx context.Context, skip, limit int) ([]*Account, error)
	ListPageTx(ctx context.Context, tx bun.IDB, skip, limit int) ([]*Account, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)

	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
	TrackFailedLogin(ctx context.Context, id uuid.UUID, attempts int, locked bool) error
	TrackFailedLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, attempts int, locked bool) error

	ResetCredentials(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetCredentialsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	ConsumeVerificationToken(ctx context.Context, id uuid.UUID, role AccountRole) error
	ConsumeVerificationTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role AccountRole) error
	Unlock(ctx context.Context, id uuid.UUID) error
	UnlockTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
}

type accountsRepo struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accountsRepo)(nil)
	_ repository.Repository[*Account] = (*accountsRepo)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accountsRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *accountsRepo) GetBy(ctx context.Context, column string, value any) (*Account, error) {
	return a.GetByTx(ctx, a.db, column, value)
}

func (a *accountsRepo) GetByTx(ctx context.Context, tx bun.IDB, column string, value any) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: fmt.Sprintf("%v", value),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) ListPage(ctx context.Context, skip, limit int) ([]*Account, error) {
	return a.ListPageTx(ctx, a.db, skip, limit)
}

func (a *accountsRepo) ListPageTx(ctx context.Context, tx bun.IDB, skip, limit int) ([]*Account, error) {
	var records []*Account
	err := tx.NewSelect().
		Model(&records).
		Offset(skip).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *accountsRepo) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.DeleteByIDTx(ctx, a.db, id)
}

func (a *accountsRepo) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (a *accountsRepo) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, id, at)
}

func (a *accountsRepo) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"last_login_at" = ?,
			"failed_login_attempts" = 0
		WHERE
			("acc".id = ?);
	`, at, id.String()).Exec(ctx)

	return err
}

func (a *accountsRepo) TrackFailedLogin(ctx context.Context, id uuid.UUID, attempts int, locked bool) error {
	return a.TrackFailedLoginTx(ctx, a.db, id, attempts, locked)
}

func (a *accountsRepo) TrackFailedLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, attempts int, locked bool) error {
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"failed_login_attempts" = ?,
			"is_locked" = ?
		WHERE
			("acc".id = ?);
	`, attempts, locked, id.String()).Exec(ctx)

	return err
}

func (a *accountsRepo) ResetCredentials(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetCredentialsTx(ctx, a.db, id, passwordHash)
}

func (a *accountsRepo) ResetCredentialsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, resetAccountCredentialsSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accountsRepo) ConsumeVerificationToken(ctx context.Context, id uuid.UUID, role AccountRole) error {
	return a.ConsumeVerificationTokenTx(ctx, a.db, id, role)
}

func (a *accountsRepo) ConsumeVerificationTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role AccountRole) error {
	res, err := a.Repository.RawTx(ctx, tx, consumeVerificationTokenSQL, role, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accountsRepo) Unlock(ctx context.Context, id uuid.UUID) error {
	return a.UnlockTx(ctx, a.db, id)
}

func (a *accountsRepo) UnlockTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := a.Repository.RawTx(ctx, tx, unlockAccountSQL, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accountsRepo) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accountsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleAnonymous
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
