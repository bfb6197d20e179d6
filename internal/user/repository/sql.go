package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

// queries holds one dialect's statement text. Argument order is fixed across dialects.
type queries struct {
	userByEmail string // email
	accountsOf  string // user_id
	insertUser  string // id, email, name, password_hash, created_at, updated_at
	insertAcct  string // id, user_id, provider, provider_account_id, created_at
	setPassword string // password_hash, updated_at, id
}

// dialect adapts the shared store to a database engine.
type dialect struct {
	q           queries
	encodeTime  func(time.Time) any
	decodeTime  func(any) (time.Time, error)
	isUniqueErr func(error) bool
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sqlStore implements Repository over database/sql; PostgresRepository and SQLiteRepository
// differ only in their dialect.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

func (s *sqlStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var (
		u                    domain.User
		hash                 sql.NullString
		createdAt, updatedAt any
	)
	err := s.db.QueryRowContext(ctx, s.d.q.userByEmail, email).
		Scan(&u.ID, &u.Email, &u.Name, &hash, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.PasswordHash = hash.String
	if u.CreatedAt, err = s.d.decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("users.created_at: %w", err)
	}
	if u.UpdatedAt, err = s.d.decodeTime(updatedAt); err != nil {
		return nil, fmt.Errorf("users.updated_at: %w", err)
	}
	return &u, nil
}

func (s *sqlStore) FindUserWithAccounts(ctx context.Context, email string) (*domain.User, []*accountdomain.Account, error) {
	u, err := s.FindUserByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.d.q.accountsOf, u.ID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var accounts []*accountdomain.Account
	for rows.Next() {
		var (
			a         accountdomain.Account
			provider  string
			createdAt any
		)
		if err := rows.Scan(&a.ID, &a.UserID, &provider, &a.ProviderAccountID, &createdAt); err != nil {
			return nil, nil, err
		}
		a.Provider = accountdomain.Provider(provider)
		if a.CreatedAt, err = s.d.decodeTime(createdAt); err != nil {
			return nil, nil, fmt.Errorf("accounts.created_at: %w", err)
		}
		accounts = append(accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return u, accounts, nil
}

func (s *sqlStore) CreateUser(ctx context.Context, u *domain.User) error {
	return s.insertUser(ctx, s.db, u)
}

func (s *sqlStore) CreateAccount(ctx context.Context, a *accountdomain.Account) error {
	return s.insertAccount(ctx, s.db, a)
}

func (s *sqlStore) CreateUserWithAccount(ctx context.Context, u *domain.User, a *accountdomain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.insertUser(ctx, tx, u); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := s.insertAccount(ctx, tx, a); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *sqlStore) SetPasswordHash(ctx context.Context, userID, hash string) error {
	_, err := s.db.ExecContext(ctx, s.d.q.setPassword, hash, s.d.encodeTime(time.Now().UTC()), userID)
	return err
}

func (s *sqlStore) insertUser(ctx context.Context, x execQuerier, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	hash := sql.NullString{String: u.PasswordHash, Valid: u.PasswordHash != ""}
	_, err := x.ExecContext(ctx, s.d.q.insertUser,
		u.ID, u.Email, u.Name, hash, s.d.encodeTime(u.CreatedAt), s.d.encodeTime(u.UpdatedAt))
	return s.wrap(err)
}

func (s *sqlStore) insertAccount(ctx context.Context, x execQuerier, a *accountdomain.Account) error {
	if a.ID == "" || a.UserID == "" || a.Provider == "" || a.ProviderAccountID == "" {
		return errors.New("account id, user_id, provider and provider_account_id are required")
	}
	_, err := x.ExecContext(ctx, s.d.q.insertAcct,
		a.ID, a.UserID, string(a.Provider), a.ProviderAccountID, s.d.encodeTime(a.CreatedAt))
	return s.wrap(err)
}

func (s *sqlStore) wrap(err error) error {
	if err != nil && s.d.isUniqueErr(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
