package auth

import (
	"time"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

// User represents a registered account.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Claim projects the user onto the identity stored in a session.
func (u *User) Claim() shared.Claim {
	return shared.Claim{UserID: u.ID, Email: u.Email}
}

// NewUser is the input accepted by Repository.Create.
type NewUser struct {
	FullName     string
	Email        string
	PasswordHash string
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
