package domain

import "time"

// Claims is the fixed set of fields embedded in an issued session token.
// The token owns no other state.
type Claims struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// View is the session as exposed to callers.
type View struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenMeta describes the token envelope rather than the session. ID is unique per issued token.
type TokenMeta struct {
	ID        string
	ExpiresAt time.Time
}
