package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteQueries = queries{
	userByEmail: `SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = ?1`,
	accountsOf:  `SELECT id, user_id, provider, provider_account_id, created_at FROM accounts WHERE user_id = ?1 ORDER BY created_at, id`,
	insertUser:  `INSERT INTO users (id, email, name, password_hash, created_at, updated_at) VALUES (?1, ?2, ?3, ?4, ?5, ?6)`,
	insertAcct:  `INSERT INTO accounts (id, user_id, provider, provider_account_id, created_at) VALUES (?1, ?2, ?3, ?4, ?5)`,
	setPassword: `UPDATE users SET password_hash = ?1, updated_at = ?2 WHERE id = ?3`,
}

// SQLiteRepository is a Repository backed by SQLite (modernc.org/sqlite). Timestamps are
// stored as Unix milliseconds.
type SQLiteRepository struct {
	sqlStore
}

// NewSQLiteRepository returns a user repository over a database opened with db.OpenSQLite.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{sqlStore{db: db, d: dialect{
		q:           sqliteQueries,
		encodeTime:  func(t time.Time) any { return t.UTC().UnixMilli() },
		decodeTime:  decodeSQLiteTime,
		isUniqueErr: isSQLiteUniqueViolation,
	}}}
}

func decodeSQLiteTime(v any) (time.Time, error) {
	ms, ok := v.(int64)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
