package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

var postgresQueries = queries{
	userByEmail: `SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = $1`,
	accountsOf:  `SELECT id, user_id, provider, provider_account_id, created_at FROM accounts WHERE user_id = $1 ORDER BY created_at, id`,
	insertUser:  `INSERT INTO users (id, email, name, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	insertAcct:  `INSERT INTO accounts (id, user_id, provider, provider_account_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
	setPassword: `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
}

// PostgresRepository is a Repository backed by Postgres through the pgx stdlib driver.
type PostgresRepository struct {
	sqlStore
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{sqlStore{db: db, d: dialect{
		q:           postgresQueries,
		encodeTime:  func(t time.Time) any { return t.UTC() },
		decodeTime:  decodePostgresTime,
		isUniqueErr: isPgUniqueViolation,
	}}}
}

func decodePostgresTime(v any) (time.Time, error) {
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
	return t.UTC(), nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
