package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

const (
	minPasswordChars = 6
	// bcrypt ignores input past this length.
	maxPasswordBytes = 72
)

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	hasher    Hasher
	validator *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{
		repo:      repo,
		hasher:    hasher,
		validator: validator.New(),
	}
}

// Register creates an account. It returns a *shared.ValidationError for
// missing fields and shared.ErrConflict when the email is taken, whether the
// pre-check or the store's unique constraint notices first. Password length
// is only checked once the email is known to be free, so a taken email always
// reports a conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.FullName = norm.NFC.String(strings.TrimSpace(in.FullName))
	if err := s.validate(in); err != nil {
		return nil, err
	}

	_, err := s.repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, shared.ErrConflict
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, NewUser{FullName: in.FullName, Email: in.Email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateKey) {
			return nil, shared.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate validates email/password credentials. Unknown emails and wrong
// passwords both yield shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*User, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Burn a comparison so unknown emails cost the same as known ones.
			s.hasher.Verify(in.Password, s.placeholderHash())
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) validate(v any) error {
	err := s.validator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &shared.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[jsonFieldName(fe.Field())] = fieldMessage(fe)
	}
	return verr
}

func checkPassword(password string) error {
	switch {
	case utf8.RuneCountInString(password) < minPasswordChars:
		return shared.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordChars))
	case len(password) > maxPasswordBytes:
		return shared.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

func (s *Service) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("placeholder-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func jsonFieldName(field string) string {
	switch field {
	case "FullName":
		return "fullName"
	case "Email":
		return "email"
	case "Password":
		return "password"
	}
	return strings.ToLower(field)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	}
	return "is invalid"
}
