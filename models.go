package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRole is the account's role
type AccountRole = string

const (
	// RoleAdmin is the administrative role, auto-assigned to the first account
	RoleAdmin AccountRole = "ADMIN"
	// RoleManager is an elevated role granted through an explicit upgrade
	RoleManager AccountRole = "MANAGER"
	// RoleAuthenticated is the role granted once the email is verified
	RoleAuthenticated AccountRole = "AUTHENTICATED"
	// RoleAnonymous is the starting role for every account after the first
	RoleAnonymous AccountRole = "ANONYMOUS"
)

var roleRank = map[AccountRole]int{
	RoleAnonymous:     0,
	RoleAuthenticated: 1,
	RoleManager:       2,
	RoleAdmin:         3,
}

// RoleAtLeast reports whether role holds at minimum the privileges of min.
// Unknown roles rank below RoleAnonymous.
func RoleAtLeast(role, min AccountRole) bool {
	rank, ok := roleRank[role]
	if !ok {
		return false
	}
	return rank >= roleRank[min]
}

// Account is the persisted account record, the sole entity of this core.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID                uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Nickname          string      `bun:"nickname,notnull,unique" json:"nickname,omitempty"`
	Email             string      `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName         string      `bun:"first_name" json:"first_name,omitempty"`
	LastName          string      `bun:"last_name" json:"last_name,omitempty"`
	Bio               string      `bun:"bio" json:"bio,omitempty"`
	Phone             string      `bun:"phone_number" json:"phone_number,omitempty"`
	HashedPassword    string      `bun:"hashed_password,notnull" json:"-"`
	Role              AccountRole `bun:"role,notnull" json:"role,omitempty"`
	EmailVerified     bool        `bun:"email_verified" json:"email_verified,omitempty"`
	VerificationToken *string     `bun:"verification_token,nullzero" json:"-"`
	IsLocked          bool        `bun:"is_locked" json:"is_locked,omitempty"`
	FailedLogins      int         `bun:"failed_login_attempts" json:"failed_login_attempts,omitempty"`
	LastLoginAt       *time.Time  `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	IsProfessional    bool        `bun:"is_professional" json:"is_professional,omitempty"`
	ProfessionalAt    *time.Time  `bun:"professional_status_updated_at,nullzero" json:"professional_status_updated_at,omitempty"`
	CreatedAt         *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasVerificationToken reports whether a verification is still pending.
func (a *Account) HasVerificationToken() bool {
	return a != nil && a.VerificationToken != nil && *a.VerificationToken != ""
}

// MarkProfessional flips the professional flag and stamps the transition.
func (a *Account) MarkProfessional(professional bool) *Account {
	a.IsProfessional = professional
	now := time.Now()
	a.ProfessionalAt = &now
	return a
}
