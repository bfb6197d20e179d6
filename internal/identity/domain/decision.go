package domain

import userdomain "github.com/abhicommands/Next-Auth-Practice/internal/user/domain"

// ErrorKind is the closed set of reasons an attempt is denied.
type ErrorKind int

const (
	// InvalidCredentials: email or password is missing or fails structural validation.
	InvalidCredentials ErrorKind = iota + 1
	// UserNotFound: no user with the email (credential path).
	UserNotFound
	// OAuthOnly: the user exists but has no password hash.
	OAuthOnly
	// InvalidPassword: the password does not match the stored hash.
	InvalidPassword
	// EmailConflict: the email belongs to a user without a link for the attempting provider.
	EmailConflict
)

// String returns the stable code for k.
func (k ErrorKind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case UserNotFound:
		return "user_not_found"
	case OAuthOnly:
		return "oauth_only"
	case InvalidPassword:
		return "invalid_password"
	case EmailConflict:
		return "email_conflict"
	default:
		return "unknown"
	}
}

// Message returns a user-presentable description of k. It carries no internal detail.
func (k ErrorKind) Message() string {
	switch k {
	case InvalidCredentials:
		return "Invalid email or password format."
	case UserNotFound:
		return "No account found for this email."
	case OAuthOnly:
		return "This account uses a sign-in provider. Sign in with that provider instead."
	case InvalidPassword:
		return "Incorrect password."
	case EmailConflict:
		return "This email is already registered with a different sign-in method."
	default:
		return "Sign-in failed."
	}
}

// Decision is the result of one attempt: Allow(user) or Deny(kind).
type Decision struct {
	user   *userdomain.User
	reason ErrorKind
}

// Allow returns an allowing decision for u.
func Allow(u *userdomain.User) Decision {
	return Decision{user: u}
}

// Deny returns a denying decision carrying k.
func Deny(k ErrorKind) Decision {
	return Decision{reason: k}
}

// Allowed reports whether the attempt succeeded.
func (d Decision) Allowed() bool {
	return d.reason == 0 && d.user != nil
}

// User returns the authenticated user, or nil when denied.
func (d Decision) User() *userdomain.User {
	if !d.Allowed() {
		return nil
	}
	return d.user
}

// Reason returns the denial reason, or 0 when allowed.
func (d Decision) Reason() ErrorKind {
	return d.reason
}

// State is a step of the authorization state machine.
type State string

const (
	StateReceived   State = "received"
	StateValidating State = "validating"
	StateDeciding   State = "deciding"
	StateAllowed    State = "allowed"
	StateDenied     State = "denied"
)

// Terminal reports whether s ends the attempt.
func (s State) Terminal() bool {
	return s == StateAllowed || s == StateDenied
}
