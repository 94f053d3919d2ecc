package stores

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/passgate/passgate"
)

func newUser(id, email string, links ...passgate.ProviderLink) *passgate.User {
	return &passgate.User{ID: id, Email: email, Links: links}
}

func googleLink(subject string) passgate.ProviderLink {
	return passgate.ProviderLink{Provider: passgate.ProviderGoogle, Subject: subject, Kind: passgate.KindOAuth2}
}

func TestMemUserStoreLookups(t *testing.T) {
	store := NewMemUserStore()
	if err := store.CreateUser(newUser("u1", "a@x.com", googleLink("g-1"))); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	byID, err := store.GetUserByID("u1")
	if err != nil || byID.Email != "a@x.com" {
		t.Errorf("GetUserByID: %+v, %v", byID, err)
	}
	byEmail, err := store.GetUserByEmail("A@X.com")
	if err != nil || byEmail.ID != "u1" {
		t.Errorf("GetUserByEmail should normalize: %+v, %v", byEmail, err)
	}
	byProvider, err := store.GetUserByProvider(passgate.ProviderGoogle, "g-1")
	if err != nil || byProvider.ID != "u1" {
		t.Errorf("GetUserByProvider: %+v, %v", byProvider, err)
	}

	for _, lookup := range []func() (*passgate.User, error){
		func() (*passgate.User, error) { return store.GetUserByID("missing") },
		func() (*passgate.User, error) { return store.GetUserByEmail("missing@x.com") },
		func() (*passgate.User, error) { return store.GetUserByProvider(passgate.ProviderGoogle, "missing") },
	} {
		if _, err := lookup(); !errors.Is(err, passgate.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	}
}

func TestMemUserStoreUniqueness(t *testing.T) {
	store := NewMemUserStore()
	if err := store.CreateUser(newUser("u1", "a@x.com", googleLink("g-1"))); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.CreateUser(newUser("u2", "a@x.com")); !errors.Is(err, passgate.ErrDuplicateEmail) {
		t.Errorf("duplicate email: got %v", err)
	}
	if err := store.CreateUser(newUser("u3", "b@x.com", googleLink("g-1"))); !errors.Is(err, passgate.ErrDuplicateLink) {
		t.Errorf("duplicate link: got %v", err)
	}

	// SaveUser enforces the same invariants against other records.
	if err := store.CreateUser(newUser("u4", "c@x.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	conflicting := newUser("u4", "c@x.com", googleLink("g-1"))
	if err := store.SaveUser(conflicting); !errors.Is(err, passgate.ErrDuplicateLink) {
		t.Errorf("save with stolen link: got %v", err)
	}
	if err := store.SaveUser(newUser("ghost", "d@x.com")); !errors.Is(err, passgate.ErrUserNotFound) {
		t.Errorf("save of unknown id: got %v", err)
	}
}

func TestMemUserStoreDoesNotAliasCallerState(t *testing.T) {
	store := NewMemUserStore()
	original := newUser("u1", "a@x.com", googleLink("g-1"))
	if err := store.CreateUser(original); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	original.Email = "changed@x.com"
	original.Links[0].Subject = "changed"

	stored, err := store.GetUserByID("u1")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if stored.Email != "a@x.com" || stored.Links[0].Subject != "g-1" {
		t.Errorf("store aliased caller state: %+v", stored)
	}

	// And mutating a fetched copy must not either.
	stored.Links[0].Subject = "also-changed"
	again, err := store.GetUserByID("u1")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if again.Links[0].Subject != "g-1" {
		t.Errorf("fetched copy aliased store state: %+v", again)
	}
}

func TestMemUserStoreTimestamps(t *testing.T) {
	store := NewMemUserStore()
	user := newUser("u1", "a@x.com")
	if err := store.CreateUser(user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set on create")
	}
	created := user.CreatedAt

	user.Email = "b@x.com"
	if err := store.SaveUser(user); err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}
	stored, err := store.GetUserByID("u1")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if !stored.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on save: %v != %v", stored.CreatedAt, created)
	}
	if stored.UpdatedAt.Before(created) {
		t.Errorf("UpdatedAt went backwards: %v < %v", stored.UpdatedAt, created)
	}
}

func TestMemUserStoreConcurrentCreates(t *testing.T) {
	store := NewMemUserStore()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.CreateUser(newUser(fmt.Sprintf("u%d", i), "same@x.com"))
		}(i)
	}
	wg.Wait()

	var created int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, passgate.ErrDuplicateEmail):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("exactly one create must win, got %d", created)
	}
}
