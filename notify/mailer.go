package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gofiber/template/django/v3"

	"github.com/goliatone/go-accounts"
)

// Email is a rendered notification ready for transport.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer hands a rendered email to the transport. SMTP, an API client, or a
// console sink for development all fit behind it.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// DevConsoleMailer logs emails instead of sending them.
type DevConsoleMailer struct {
	enabled bool
	logger  accounts.Logger
}

func NewDevConsoleMailer(enabled bool) *DevConsoleMailer {
	return &DevConsoleMailer{
		enabled: enabled,
		logger:  accounts.DefaultLogger(),
	}
}

func (m *DevConsoleMailer) Send(_ context.Context, email Email) error {
	if m.enabled {
		m.logger.Info("dev email to=%s subject=%q", email.To, email.Subject)
	}
	return nil
}

var subjects = map[accounts.JobName]string{
	accounts.JobVerifyAccount:       "Verify Your Account",
	accounts.JobAccountLocked:       "Account Locked Notification",
	accounts.JobAccountUnlocked:     "Account Unlocked Notification",
	accounts.JobRoleUpgrade:         "Role Upgrade Notification",
	accounts.JobProfessionalUpgrade: "Professional Status Upgrade Notification",
}

var templates = map[accounts.JobName]string{
	accounts.JobVerifyAccount:       "email_verification",
	accounts.JobAccountLocked:       "account_locked",
	accounts.JobAccountUnlocked:     "account_unlocked",
	accounts.JobRoleUpgrade:         "role_upgrade",
	accounts.JobProfessionalUpgrade: "professional_status_upgrade",
}

// Renderer turns a job plus its account into a sendable email.
type Renderer struct {
	engine  *django.Engine
	baseURL string
}

// NewRenderer loads the django templates from dir. baseURL is used to build
// the verification link.
func NewRenderer(dir, baseURL string) (*Renderer, error) {
	engine := django.New(dir, ".django")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("failed to load notification templates: %w", err)
	}

	return &Renderer{
		engine:  engine,
		baseURL: baseURL,
	}, nil
}

// Render produces the email for job addressed to account.
func (r *Renderer) Render(job accounts.Job, account *accounts.Account) (Email, error) {
	subject, ok := subjects[job.Name]
	if !ok {
		return Email{}, fmt.Errorf("unknown notification job %q", job.Name)
	}

	bind := map[string]any{
		"name":  account.FirstName,
		"email": account.Email,
	}

	if job.Name == accounts.JobVerifyAccount && account.HasVerificationToken() {
		bind["verification_url"] = fmt.Sprintf("%sverify-email/%s/%s",
			r.baseURL, account.ID, *account.VerificationToken)
	}

	if job.Name == accounts.JobRoleUpgrade && len(job.Args) > 0 {
		bind["new_role"] = job.Args[0]
	}

	var buf bytes.Buffer
	if err := r.engine.Render(&buf, templates[job.Name], bind); err != nil {
		return Email{}, fmt.Errorf("failed to render %q: %w", templates[job.Name], err)
	}

	return Email{
		To:      account.Email,
		Subject: subject,
		HTML:    buf.String(),
	}, nil
}
