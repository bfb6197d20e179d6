package session

import (
	sessiondomain "github.com/abhicommands/Next-Auth-Practice/internal/session/domain"
	userdomain "github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

// Projector maps users onto session claims and claims onto the view handed to callers.
// It holds no state; the zero value is ready to use.
type Projector struct{}

// Issue copies the user's id, name and email into fresh claims.
func (Projector) Issue(u *userdomain.User) sessiondomain.Claims {
	if u == nil {
		return sessiondomain.Claims{}
	}
	return sessiondomain.Claims{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Refresh returns existing unchanged when u is nil (the token refresh cycle),
// and claims repopulated from u otherwise (the sign-in cycle).
func (p Projector) Refresh(existing sessiondomain.Claims, u *userdomain.User) sessiondomain.Claims {
	if u == nil {
		return existing
	}
	return p.Issue(u)
}

// Project exposes exactly the claim fields.
func (Projector) Project(c sessiondomain.Claims) sessiondomain.View {
	return sessiondomain.View{ID: c.ID, Name: c.Name, Email: c.Email}
}
