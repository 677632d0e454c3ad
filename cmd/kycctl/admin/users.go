package admin

import (
	"context"

	"github.com/Git-me-Harish/Video-KYC/internal/auth"
)

// AddUser registers an account through the same rules as the web form.
func AddUser(ctx context.Context, svc *auth.Service, fullName, email string, password PasswordSource) (*auth.User, error) {
	plain, err := password()
	if err != nil {
		return nil, err
	}
	return svc.Register(ctx, auth.RegisterInput{FullName: fullName, Email: email, Password: plain})
}
