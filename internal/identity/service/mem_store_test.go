package service

import (
	"context"
	"errors"
	"sync"
	"time"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	userdomain "github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

var errDuplicate = errors.New("duplicate")

// memStore is an in-memory Store with call counters.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*userdomain.User       // by email
	accounts map[string][]*accountdomain.Account // by user id
	err      error                              // returned by every call when set

	findByEmailCalls      int
	findWithAccountsCalls int
	createUserCalls       int
	createAccountCalls    int
	setPasswordCalls      int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*userdomain.User),
		accounts: make(map[string][]*accountdomain.Account),
	}
}

func (m *memStore) addUser(id, email, name, hash string) *userdomain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &userdomain.User{ID: id, Email: email, Name: name, PasswordHash: hash, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	m.users[email] = u
	return u
}

func (m *memStore) link(userID string, p accountdomain.Provider, accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = append(m.accounts[userID], &accountdomain.Account{
		ID: "acct-" + string(p) + "-" + accountID, UserID: userID, Provider: p, ProviderAccountID: accountID,
	})
}

func (m *memStore) FindUserByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByEmailCalls++
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) FindUserWithAccounts(ctx context.Context, email string) (*userdomain.User, []*accountdomain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findWithAccountsCalls++
	if m.err != nil {
		return nil, nil, m.err
	}
	u, ok := m.users[email]
	if !ok {
		return nil, nil, nil
	}
	cp := *u
	accounts := append([]*accountdomain.Account(nil), m.accounts[u.ID]...)
	return &cp, accounts, nil
}

func (m *memStore) CreateAccount(ctx context.Context, a *accountdomain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createAccountCalls++
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.accounts[a.UserID] {
		if existing.Provider == a.Provider {
			return errDuplicate
		}
	}
	cp := *a
	m.accounts[a.UserID] = append(m.accounts[a.UserID], &cp)
	return nil
}

func (m *memStore) CreateUserWithAccount(ctx context.Context, u *userdomain.User, a *accountdomain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createUserCalls++
	m.createAccountCalls++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[u.Email]; ok {
		return errDuplicate
	}
	uc, ac := *u, *a
	m.users[u.Email] = &uc
	m.accounts[u.ID] = append(m.accounts[u.ID], &ac)
	return nil
}

func (m *memStore) SetPasswordHash(ctx context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPasswordCalls++
	for _, u := range m.users {
		if u.ID == userID {
			u.PasswordHash = hash
		}
	}
	return nil
}

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memStore) accountsOf(email string) []*accountdomain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil
	}
	return m.accounts[u.ID]
}
