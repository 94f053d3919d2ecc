// Package stores provides the in-memory UserStore used for development and
// tests. Production deployments use the GORM-backed store in stores/gorm.
package stores

import (
	"sync"
	"time"

	"github.com/passgate/passgate"
)

// MemUserStore is a mutex-guarded in-memory credential store. Both
// uniqueness invariants — email and (provider, subject) — are checked inside
// the lock, so concurrent reconciliations racing on the same key see the
// same duplicate errors a database unique constraint would produce.
type MemUserStore struct {
	mu    sync.Mutex
	users map[string]*passgate.User
}

func NewMemUserStore() *MemUserStore {
	return &MemUserStore{users: make(map[string]*passgate.User)}
}

func (s *MemUserStore) GetUserByID(id string) (*passgate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, passgate.ErrUserNotFound
	}
	return clone(user), nil
}

func (s *MemUserStore) GetUserByEmail(email string) (*passgate.User, error) {
	email = passgate.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return clone(user), nil
		}
	}
	return nil, passgate.ErrUserNotFound
}

func (s *MemUserStore) GetUserByProvider(provider, subject string) (*passgate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		for _, link := range user.Links {
			if link.Provider == provider && link.Subject == subject {
				return clone(user), nil
			}
		}
	}
	return nil, passgate.ErrUserNotFound
}

func (s *MemUserStore) CreateUser(user *passgate.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(user); err != nil {
		return err
	}
	now := time.Now()
	stored := clone(user)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.users[stored.ID] = stored
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *MemUserStore) SaveUser(user *passgate.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return passgate.ErrUserNotFound
	}
	if err := s.checkUnique(user); err != nil {
		return err
	}
	stored := clone(user)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	s.users[stored.ID] = stored
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

// checkUnique verifies email and link uniqueness against every other record.
// Callers hold the lock.
func (s *MemUserStore) checkUnique(user *passgate.User) error {
	for _, other := range s.users {
		if other.ID == user.ID {
			continue
		}
		if user.Email != "" && other.Email == user.Email {
			return passgate.ErrDuplicateEmail
		}
		for _, link := range user.Links {
			for _, otherLink := range other.Links {
				if link.Provider == otherLink.Provider && link.Subject == otherLink.Subject {
					return passgate.ErrDuplicateLink
				}
			}
		}
	}
	return nil
}

// clone deep-copies a record so callers never alias store-internal state.
func clone(user *passgate.User) *passgate.User {
	out := *user
	out.Links = make([]passgate.ProviderLink, len(user.Links))
	copy(out.Links, user.Links)
	return &out
}
