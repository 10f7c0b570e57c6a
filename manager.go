package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultMaxLoginAttempts is the failure threshold that locks an account.
const DefaultMaxLoginAttempts = 5

// AccountManager orchestrates the account lifecycle: registration, lookups,
// credential verification with lockout, email verification, role and
// professional upgrades, and password reset. Every operation has a total
// contract: it returns the domain value or an absence/false sentinel, never a
// storage error. The only error surfaced is a malformed stored digest, which
// indicates corrupted state rather than a normal business outcome.
type AccountManager struct {
	repo             RepositoryManager
	gateway          *StoreGateway
	dispatcher       Dispatcher
	logger           Logger
	maxLoginAttempts int
	bcryptCost       int
	useHashid        bool
	now              func() time.Time
}

// ManagerOption customizes manager construction.
type ManagerOption func(*AccountManager)

// WithDispatcher sets the notification dispatcher invoked on state
// transitions. Defaults to a noop sink.
func WithDispatcher(d Dispatcher) ManagerOption {
	return func(m *AccountManager) {
		m.dispatcher = normalizeDispatcher(d)
	}
}

// WithManagerLogger overrides the logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *AccountManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMaxLoginAttempts overrides the lockout threshold.
func WithMaxLoginAttempts(max int) ManagerOption {
	return func(m *AccountManager) {
		if max > 0 {
			m.maxLoginAttempts = max
		}
	}
}

// WithBcryptCost overrides the hashing work factor.
func WithBcryptCost(cost int) ManagerOption {
	return func(m *AccountManager) {
		if cost > 0 {
			m.bcryptCost = cost
		}
	}
}

// WithStoreGateway injects a preconfigured gateway, e.g. with a shorter
// retry backoff.
func WithStoreGateway(g *StoreGateway) ManagerOption {
	return func(m *AccountManager) {
		if g != nil {
			m.gateway = g
		}
	}
}

// WithDeterministicIDs derives account ids from the email via hashid
// instead of drawing random UUIDs.
func WithDeterministicIDs() ManagerOption {
	return func(m *AccountManager) {
		m.useHashid = true
	}
}

// WithManagerClock injects a custom clock (useful for tests).
func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *AccountManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// NewAccountManager creates a lifecycle manager bound to the given
// repository manager.
func NewAccountManager(repo RepositoryManager, opts ...ManagerOption) *AccountManager {
	m := &AccountManager{
		repo:             repo,
		dispatcher:       noopDispatcher{},
		logger:           defLogger{},
		maxLoginAttempts: DefaultMaxLoginAttempts,
		bcryptCost:       DefaultBcryptCost,
		now:              time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.gateway == nil {
		m.gateway = NewStoreGateway(repo, WithGatewayLogger(m.logger))
	}

	return m
}

// Create registers a new account. It validates the payload, rejects a
// duplicate email as a precondition, draws a unique nickname, hashes the
// password, and applies the first-account promotion before commit. When the
// committed account is unverified it writes a verification token in a second
// commit and dispatches the verification job. Returns nil on any validation
// or storage failure.
func (m *AccountManager) Create(ctx context.Context, data CreateAccount) *Account {
	if err := data.Validate(); err != nil {
		m.logger.Error("create account: invalid payload: %v", err)
		return nil
	}

	// Check-then-insert, same as the system this replaces. Two concurrent
	// registrations with one email can race here; the unique index on email
	// is the backstop.
	if existing := m.GetByEmail(ctx, data.Email); existing != nil {
		m.logger.Error("create account: %v", ErrDuplicateEmail)
		return nil
	}

	hash, err := HashPasswordCost(data.Password, m.bcryptCost)
	if err != nil {
		m.logger.Error("create account: could not hash password: %v", err)
		return nil
	}

	account := &Account{
		Email:          data.Email,
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		Bio:            data.Bio,
		Phone:          data.Phone,
		HashedPassword: hash,
	}

	if m.useHashid {
		if id, err := hashid.NewUUID(data.Email); err == nil {
			account.ID = id
		}
	}

	nickname := GenerateNickname()
	for m.GetByNickname(ctx, nickname) != nil {
		nickname = GenerateNickname()
	}
	account.Nickname = nickname

	var created *Account
	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		total, err := m.repo.Accounts().CountTx(ctx, tx)
		if err != nil {
			return err
		}

		if total == 0 {
			account.Role = RoleAdmin
			account.EmailVerified = true
		} else {
			account.Role = RoleAnonymous
			account.EmailVerified = false
		}

		created, err = m.repo.Accounts().CreateTx(ctx, tx, account)
		return err
	})
	if !ok {
		return nil
	}

	if !created.EmailVerified {
		token := GenerateVerificationToken()
		created.VerificationToken = &token

		ok = m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
			created, err = m.repo.Accounts().UpdateTx(ctx, tx, created,
				repository.UpdateByID(created.ID.String()))
			return err
		})
		if !ok {
			return nil
		}

		m.dispatch(ctx, NewJob(JobVerifyAccount, created.ID))
	}

	return created
}

// GetByID returns the account or nil; "not found" is not an error.
func (m *AccountManager) GetByID(ctx context.Context, id uuid.UUID) *Account {
	return m.getBy(ctx, "id", id.String())
}

// GetByNickname returns the account or nil.
func (m *AccountManager) GetByNickname(ctx context.Context, nickname string) *Account {
	return m.getBy(ctx, "nickname", nickname)
}

// GetByEmail returns the account or nil.
func (m *AccountManager) GetByEmail(ctx context.Context, email string) *Account {
	return m.getBy(ctx, "email", email)
}

func (m *AccountManager) getBy(ctx context.Context, column string, value any) *Account {
	var found *Account

	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		record, err := m.repo.Accounts().GetByTx(ctx, tx, column, value)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return err
		}
		found = record
		return nil
	})
	if !ok {
		return nil
	}

	return found
}

// Update validates the partial payload, rehashes the password when present,
// applies the change, and re-reads the account. Returns nil if validation,
// the update, or the re-read fails.
func (m *AccountManager) Update(ctx context.Context, id uuid.UUID, data UpdateAccount) *Account {
	if data.IsZero() {
		return nil
	}

	if err := data.Validate(); err != nil {
		m.logger.Error("update account %s: invalid payload: %v", id, err)
		return nil
	}

	record := &Account{
		ID:        id,
		Email:     data.Email,
		Nickname:  data.Nickname,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Bio:       data.Bio,
		Phone:     data.Phone,
	}

	if data.Password != "" {
		hash, err := HashPasswordCost(data.Password, m.bcryptCost)
		if err != nil {
			m.logger.Error("update account %s: could not hash password: %v", id, err)
			return nil
		}
		record.HashedPassword = hash
	}

	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := m.repo.Accounts().UpdateTx(ctx, tx, record,
			repository.UpdateByID(id.String()))
		return err
	})
	if !ok {
		return nil
	}

	return m.GetByID(ctx, id)
}

// Delete hard-deletes the account. It reports whether a record was found;
// there is no soft-delete or tombstone.
func (m *AccountManager) Delete(ctx context.Context, id uuid.UUID) bool {
	deleted := false

	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		found, err := m.repo.Accounts().DeleteByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		deleted = found
		return nil
	})

	return ok && deleted
}

// List returns a page of accounts in store default order. Storage failures
// yield an empty slice, never an error.
func (m *AccountManager) List(ctx context.Context, skip, limit int) []*Account {
	var records []*Account

	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		page, err := m.repo.Accounts().ListPageTx(ctx, tx, skip, limit)
		if err != nil {
			return err
		}
		records = page
		return nil
	})
	if !ok || records == nil {
		return []*Account{}
	}

	return records
}

// Count returns the number of live accounts, 0 on storage failure.
func (m *AccountManager) Count(ctx context.Context) int {
	total := 0

	m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		n, err := m.repo.Accounts().CountTx(ctx, tx)
		if err != nil {
			return err
		}
		total = n
		return nil
	})

	return total
}

// Login verifies the credentials for the account registered under email.
// It returns nil for an unknown, unverified, or locked account and for a bad
// password. A failed attempt increments the counter; crossing the threshold
// locks the account and dispatches the account-locked job exactly once.
// The returned error is reserved for a malformed stored digest.
func (m *AccountManager) Login(ctx context.Context, email, password string) (*Account, error) {
	account := m.GetByEmail(ctx, email)
	if account == nil {
		return nil, nil
	}

	if !account.EmailVerified || account.IsLocked {
		return nil, nil
	}

	if err := ComparePasswordAndHash(password, account.HashedPassword); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			// corrupted digest, not a wrong password
			return nil, err
		}

		attempts := account.FailedLogins + 1
		locked := attempts >= m.maxLoginAttempts

		ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
			return m.repo.Accounts().TrackFailedLoginTx(ctx, tx, account.ID, attempts, locked)
		})
		if ok && locked {
			m.dispatch(ctx, NewJob(JobAccountLocked, account.ID))
		}

		return nil, nil
	}

	loggedInAt := m.now()
	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		return m.repo.Accounts().TrackSuccessfulLoginTx(ctx, tx, account.ID, loggedInAt)
	})
	if !ok {
		return nil, nil
	}

	account.FailedLogins = 0
	account.LastLoginAt = &loggedInAt
	return account, nil
}

// IsAccountLocked reports whether the account registered under email is
// locked; unknown accounts are not locked.
func (m *AccountManager) IsAccountLocked(ctx context.Context, email string) bool {
	account := m.GetByEmail(ctx, email)
	return account != nil && account.IsLocked
}

// ResetPassword rehashes the password, zeroes the failure counter, and
// clears the lock. If the account was locked before the call, the
// account-unlocked job is dispatched after commit.
func (m *AccountManager) ResetPassword(ctx context.Context, id uuid.UUID, newPassword string) bool {
	hash, err := HashPasswordCost(newPassword, m.bcryptCost)
	if err != nil {
		m.logger.Error("reset password %s: %v", id, err)
		return false
	}

	account := m.GetByID(ctx, id)
	if account == nil {
		return false
	}
	wasLocked := account.IsLocked

	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		return m.repo.Accounts().ResetCredentialsTx(ctx, tx, id, hash)
	})
	if !ok {
		return false
	}

	if wasLocked {
		m.dispatch(ctx, NewJob(JobAccountUnlocked, id))
	}

	return true
}

// VerifyEmailWithToken consumes a verification token. On a structural match
// it clears the token, marks the email verified, and promotes the role to
// AUTHENTICATED unless the account already holds that role or higher; the
// promotion dispatches a role-upgrade job. Returns false for an absent
// account or a token mismatch, leaving the record untouched.
func (m *AccountManager) VerifyEmailWithToken(ctx context.Context, id uuid.UUID, token string) bool {
	account := m.GetByID(ctx, id)
	if account == nil {
		return false
	}

	if token == "" || !account.HasVerificationToken() || *account.VerificationToken != token {
		return false
	}

	role := account.Role
	promoted := false
	if !RoleAtLeast(role, RoleAuthenticated) {
		role = RoleAuthenticated
		promoted = true
	}

	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		return m.repo.Accounts().ConsumeVerificationTokenTx(ctx, tx, id, role)
	})
	if !ok {
		return false
	}

	if promoted {
		m.dispatch(ctx, NewJob(JobRoleUpgrade, id, RoleAuthenticated))
	}

	return true
}

// UnlockAccount clears the lock and the failure counter. It is a no-op
// returning false unless the account is currently locked.
func (m *AccountManager) UnlockAccount(ctx context.Context, id uuid.UUID) bool {
	account := m.GetByID(ctx, id)
	if account == nil || !account.IsLocked {
		return false
	}

	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		return m.repo.Accounts().UnlockTx(ctx, tx, id)
	})
	if !ok {
		return false
	}

	m.dispatch(ctx, NewJob(JobAccountUnlocked, id))
	return true
}

// UpgradeRole moves the account to newRole and dispatches a role-upgrade
// job carrying the role name. Holding newRole already is a no-op returning false.
func (m *AccountManager) UpgradeRole(ctx context.Context, id uuid.UUID, newRole AccountRole) bool {
	if _, known := roleRank[newRole]; !known {
		m.logger.Error("upgrade role %s: unknown role %q", id, newRole)
		return false
	}

	account := m.GetByID(ctx, id)
	if account == nil || account.Role == newRole {
		return false
	}

	record := &Account{ID: id, Role: newRole}
	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := m.repo.Accounts().UpdateTx(ctx, tx, record,
			repository.UpdateByID(id.String()))
		return err
	})
	if !ok {
		return false
	}

	m.dispatch(ctx, NewJob(JobRoleUpgrade, id, newRole))
	return true
}

// UpgradeProfessionalStatus flips the professional flag. Already-professional
// accounts are a no-op returning false.
func (m *AccountManager) UpgradeProfessionalStatus(ctx context.Context, id uuid.UUID) bool {
	account := m.GetByID(ctx, id)
	if account == nil || account.IsProfessional {
		return false
	}

	record := (&Account{ID: id}).MarkProfessional(true)
	ok := m.gateway.Run(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := m.repo.Accounts().UpdateTx(ctx, tx, record,
			repository.UpdateByID(id.String()))
		return err
	})
	if !ok {
		return false
	}

	m.dispatch(ctx, NewJob(JobProfessionalUpgrade, id))
	return true
}

// dispatch hands the job to the dispatcher, best effort. Failures are logged
// and dropped; the committed state change stands either way.
func (m *AccountManager) dispatch(ctx context.Context, job Job) {
	if err := m.dispatcher.Dispatch(ctx, job); err != nil {
		m.logger.Error("dispatch %s for account %s failed: %v", job.Name, job.AccountID, err)
	}
}
