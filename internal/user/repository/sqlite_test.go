package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/db"
	"github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	sqlDB, err := db.OpenSQLite(db.MemoryPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return NewSQLiteRepository(sqlDB)
}

func newUser(email, hash string) *domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.User{ID: uuid.New().String(), Email: email, Name: "A", PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
}

func newAccount(userID string, p accountdomain.Provider, accountID string) *accountdomain.Account {
	return &accountdomain.Account{
		ID:                uuid.New().String(),
		UserID:            userID,
		Provider:          p,
		ProviderAccountID: accountID,
		CreatedAt:         time.Now().UTC(),
	}
}

func TestSQLite_CreateAndFindUser(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	u := newUser("a@x.com", "$2a$04$hash")
	if err := r.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	got, err := r.FindUserByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if got == nil {
		t.Fatal("FindUserByEmail returned nil")
	}
	if got.ID != u.ID || got.Name != "A" || got.PasswordHash != u.PasswordHash {
		t.Errorf("user = %+v, want %+v", got, u)
	}
	if !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, u.CreatedAt)
	}
}

func TestSQLite_FindUserByEmail_NotFoundAndCaseSensitive(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	if err := r.CreateUser(ctx, newUser("a@x.com", "")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	for _, email := range []string{"missing@x.com", "A@x.com"} {
		got, err := r.FindUserByEmail(ctx, email)
		if err != nil {
			t.Fatalf("FindUserByEmail(%q): %v", email, err)
		}
		if got != nil {
			t.Errorf("FindUserByEmail(%q) = %+v, want nil", email, got)
		}
	}
}

func TestSQLite_ProviderOnlyUserHasNoPassword(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	if err := r.CreateUser(ctx, newUser("p@x.com", "")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	got, _ := r.FindUserByEmail(ctx, "p@x.com")
	if got.HasPassword() {
		t.Fatal("provider-only user should have no password hash")
	}
}

func TestSQLite_DuplicateEmailIsConflict(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	if err := r.CreateUser(ctx, newUser("a@x.com", "")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := r.CreateUser(ctx, newUser("a@x.com", "")); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: want ErrConflict, got %v", err)
	}
}

func TestSQLite_UserWithAccounts(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	u := newUser("a@x.com", "")
	if err := r.CreateUserWithAccount(ctx, u, newAccount(u.ID, accountdomain.ProviderGoogle, "g1")); err != nil {
		t.Fatalf("CreateUserWithAccount: %v", err)
	}
	if err := r.CreateAccount(ctx, newAccount(u.ID, accountdomain.ProviderGitHub, "h1")); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	got, accounts, err := r.FindUserWithAccounts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindUserWithAccounts: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("user = %+v", got)
	}
	linked := accountdomain.LinkedProviders(accounts)
	if len(linked) != 2 || !linked.Has(accountdomain.ProviderGoogle) || !linked.Has(accountdomain.ProviderGitHub) {
		t.Fatalf("linked = %v", linked.Names())
	}
}

func TestSQLite_FindUserWithAccounts_NotFound(t *testing.T) {
	u, accounts, err := newSQLiteRepo(t).FindUserWithAccounts(context.Background(), "none@x.com")
	if err != nil || u != nil || accounts != nil {
		t.Fatalf("FindUserWithAccounts = %v, %v, %v; want nil, nil, nil", u, accounts, err)
	}
}

func TestSQLite_AccountUniqueness(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	u1 := newUser("a@x.com", "")
	u2 := newUser("b@x.com", "")
	for _, u := range []*domain.User{u1, u2} {
		if err := r.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	if err := r.CreateAccount(ctx, newAccount(u1.ID, accountdomain.ProviderGoogle, "g1")); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := r.CreateAccount(ctx, newAccount(u1.ID, accountdomain.ProviderGoogle, "g2")); !errors.Is(err, ErrConflict) {
		t.Errorf("second google account for same user: want ErrConflict, got %v", err)
	}
	// Identity is keyed on email, so the same provider account may back several users.
	if err := r.CreateAccount(ctx, newAccount(u2.ID, accountdomain.ProviderGoogle, "g1")); err != nil {
		t.Errorf("same provider account id on another user: %v", err)
	}
}

func TestSQLite_CreateUserWithAccountRollsBack(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	existing := newUser("a@x.com", "")
	first := newAccount(existing.ID, accountdomain.ProviderGoogle, "g1")
	first.ID = "acct-1"
	if err := r.CreateUserWithAccount(ctx, existing, first); err != nil {
		t.Fatalf("CreateUserWithAccount: %v", err)
	}
	// The account insert fails on the reused primary key after the user row is written.
	fresh := newUser("b@x.com", "")
	dup := newAccount(fresh.ID, accountdomain.ProviderGitHub, "gh1")
	dup.ID = "acct-1"
	err := r.CreateUserWithAccount(ctx, fresh, dup)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	got, err := r.FindUserByEmail(ctx, "b@x.com")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if got != nil {
		t.Fatal("user insert should have been rolled back")
	}
}

func TestSQLite_SetPasswordHash(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t)
	u := newUser("a@x.com", "$2a$04$old")
	if err := r.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := r.SetPasswordHash(ctx, u.ID, "$argon2id$new"); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
	got, _ := r.FindUserByEmail(ctx, "a@x.com")
	if got.PasswordHash != "$argon2id$new" {
		t.Fatalf("PasswordHash = %q", got.PasswordHash)
	}
	if err := r.SetPasswordHash(ctx, "missing", "x"); err != nil {
		t.Fatalf("SetPasswordHash on missing user should be a no-op, got %v", err)
	}
}

func TestSQLite_CreateUserValidates(t *testing.T) {
	r := newSQLiteRepo(t)
	if err := r.CreateUser(context.Background(), &domain.User{Email: "a@x.com"}); err == nil {
		t.Fatal("CreateUser without id should fail")
	}
}
