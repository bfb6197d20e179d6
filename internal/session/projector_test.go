package session

import (
	"testing"

	sessiondomain "github.com/abhicommands/Next-Auth-Practice/internal/session/domain"
	userdomain "github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

func TestProjector_Issue(t *testing.T) {
	u := &userdomain.User{ID: "u1", Name: "A", Email: "a@x.com", PasswordHash: "$2a$secret"}
	got := Projector{}.Issue(u)
	want := sessiondomain.Claims{ID: "u1", Name: "A", Email: "a@x.com"}
	if got != want {
		t.Fatalf("Issue = %+v, want %+v", got, want)
	}
}

func TestProjector_RefreshWithoutUserIsIdentity(t *testing.T) {
	p := Projector{}
	c := sessiondomain.Claims{ID: "u1", Name: "A", Email: "a@x.com"}
	once := p.Refresh(c, nil)
	if once != c {
		t.Fatalf("Refresh(c, nil) = %+v, want %+v", once, c)
	}
	if twice := p.Refresh(once, nil); twice != once {
		t.Fatalf("Refresh not idempotent: %+v vs %+v", twice, once)
	}
}

func TestProjector_RefreshWithUserRepopulates(t *testing.T) {
	p := Projector{}
	stale := sessiondomain.Claims{ID: "u1", Name: "Old", Email: "old@x.com"}
	u := &userdomain.User{ID: "u1", Name: "New", Email: "new@x.com"}
	got := p.Refresh(stale, u)
	if got != p.Issue(u) {
		t.Fatalf("Refresh(stale, u) = %+v, want %+v", got, p.Issue(u))
	}
}

func TestProjector_ProjectIsFieldwise(t *testing.T) {
	c := sessiondomain.Claims{ID: "u1", Name: "A", Email: "a@x.com"}
	v := Projector{}.Project(c)
	if v.ID != c.ID || v.Name != c.Name || v.Email != c.Email {
		t.Fatalf("Project = %+v", v)
	}
	if again := (Projector{}).Project(c); again != v {
		t.Fatal("Project should be deterministic")
	}
}

func TestProjector_IssueNil(t *testing.T) {
	if got := (Projector{}).Issue(nil); got != (sessiondomain.Claims{}) {
		t.Fatalf("Issue(nil) = %+v", got)
	}
}
