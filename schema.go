package accounts

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// CreateAccount is the registration payload. Nickname and role are never
// caller supplied: the nickname is drawn at random until unique and the role
// follows the first-account promotion rule.
type CreateAccount struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Phone     string `json:"phone"`
}

func (c CreateAccount) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
		validation.Field(&c.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&c.FirstName, validation.Length(0, 100)),
		validation.Field(&c.LastName, validation.Length(0, 100)),
		validation.Field(&c.Bio, validation.Length(0, 500)),
		validation.Field(&c.Phone, validation.By(validPhone)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

// UpdateAccount is the partial update payload; empty fields are left as is.
type UpdateAccount struct {
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (u UpdateAccount) Validate() error {
	err := validation.ValidateStruct(&u,
		validation.Field(&u.Email, is.EmailFormat),
		validation.Field(&u.Password, validation.Length(8, 128)),
		validation.Field(&u.Nickname, validation.Length(3, 50)),
		validation.Field(&u.FirstName, validation.Length(0, 100)),
		validation.Field(&u.LastName, validation.Length(0, 100)),
		validation.Field(&u.Bio, validation.Length(0, 500)),
		validation.Field(&u.Phone, validation.By(validPhone)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid update payload").
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

// IsZero reports whether the update carries no changes at all.
func (u UpdateAccount) IsZero() bool {
	return u == UpdateAccount{}
}

func validPhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return err
	}

	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}

	return nil
}
