package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrEmailTaken          = errors.New("email already registered")
	ErrEmailInvalid        = errors.New("email is invalid")
	ErrPasswordTooWeak     = errors.New("password must be at least 8 characters with upper, lower and digit")
	ErrUserInactive        = errors.New("user account is inactive")
	ErrAdminNotDeletable   = errors.New("admin users cannot be deleted")
	ErrCredentialsInvalid  = errors.New("invalid username or password")
	ErrNotOrganizationUser = errors.New("user is not a member of the organization")
)

// User is an authenticated principal. Deleting a user cascades owned rows;
// admins cannot be hard-deleted.
type User struct {
	ID                    uuid.UUID  `json:"id"`
	Username              string     `json:"username"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	IsAdmin               bool       `json:"isAdmin"`
	IsSuperAdmin          bool       `json:"isSuperAdmin"`
	IsActive              bool       `json:"isActive"`
	CurrentOrganizationID *uuid.UUID `json:"currentOrganizationId,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Validate checks the registration invariants that do not require storage.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrNameRequired
	}
	if len(u.Username) > MaxNameLength {
		return ErrNameTooLong
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword enforces the password floor: at least 8 characters with
// an upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooWeak
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrPasswordTooWeak
	}
	return nil
}

// UserRepository is the persistence contract for users.
type UserRepository interface {
	Create(user *User) (*User, error)
	GetByID(id uuid.UUID) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByEmail(email string) (*User, error)
	Update(user *User) (*User, error)
	SetCurrentOrganization(userID uuid.UUID, orgID *uuid.UUID) error
	Delete(id uuid.UUID) error
}
