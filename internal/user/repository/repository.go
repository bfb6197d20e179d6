package repository

import (
	"context"
	"errors"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

// ErrConflict is returned when a write violates a uniqueness constraint: a second user with
// the same email, a second account for the same provider, or a provider account id already taken.
var ErrConflict = errors.New("unique constraint violated")

// Repository defines persistence for users and their linked provider accounts.
// Lookups return (nil, nil) when no row matches; errors are reserved for database failures.
type Repository interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserWithAccounts(ctx context.Context, email string) (*domain.User, []*accountdomain.Account, error)
	CreateUser(ctx context.Context, u *domain.User) error
	CreateAccount(ctx context.Context, a *accountdomain.Account) error
	// CreateUserWithAccount persists a user and its first account in one transaction.
	CreateUserWithAccount(ctx context.Context, u *domain.User, a *accountdomain.Account) error
	// SetPasswordHash replaces the stored digest. No-op when the user does not exist.
	SetPasswordHash(ctx context.Context, userID, hash string) error
}
