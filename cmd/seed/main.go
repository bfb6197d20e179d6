// seed inserts a development password user and a provider-linked user.
// Idempotent: users that already exist are left untouched.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/app"
	"github.com/abhicommands/Next-Auth-Practice/internal/config"
	userdomain "github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/user/repository"
)

const (
	devUserEmail      = "dev@example.com"
	devPassword       = "DevPassw0rd!"
	devOAuthEmail     = "oauth@example.com"
	devOAuthAccountID = "dev-google-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Env == "production" {
		log.Fatal("seed: refusing to run with APP_ENV=production")
	}
	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	defer func() { _ = a.Close(context.Background()) }()

	if err := seed(ctx, a); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func seed(ctx context.Context, a *app.App) error {
	now := time.Now().UTC()

	existing, err := a.Store.FindUserByEmail(ctx, devUserEmail)
	if err != nil {
		return err
	}
	if existing == nil {
		digest, err := a.Passwords.Hash([]byte(devPassword))
		if err != nil {
			return err
		}
		u := &userdomain.User{ID: uuid.NewString(), Email: devUserEmail, Name: "Dev User", PasswordHash: digest, CreatedAt: now, UpdatedAt: now}
		if err := a.Store.CreateUser(ctx, u); err != nil && !errors.Is(err, repository.ErrConflict) {
			return err
		}
		log.Printf("seed: created %s (password %s)", devUserEmail, devPassword)
	} else {
		log.Printf("seed: %s already exists", devUserEmail)
	}

	existing, err = a.Store.FindUserByEmail(ctx, devOAuthEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("seed: %s already exists", devOAuthEmail)
		return nil
	}
	u := &userdomain.User{ID: uuid.NewString(), Email: devOAuthEmail, Name: "OAuth User", CreatedAt: now, UpdatedAt: now}
	acct := &accountdomain.Account{
		ID:                uuid.NewString(),
		UserID:            u.ID,
		Provider:          accountdomain.ProviderGoogle,
		ProviderAccountID: devOAuthAccountID,
		CreatedAt:         now,
	}
	if err := a.Store.CreateUserWithAccount(ctx, u, acct); err != nil && !errors.Is(err, repository.ErrConflict) {
		return err
	}
	log.Printf("seed: created %s linked to google", devOAuthEmail)
	return nil
}
