package passgate

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ProviderLogin is the verified tuple a completed provider handshake yields.
// The wire protocol has already been checked by the oauth2 package; nothing
// here talks to the provider.
type ProviderLogin struct {
	Provider    string
	Subject     string // provider-assigned user id
	Email       string // verified email, may be empty
	Profile     Profile
	AccessToken string

	// SessionUserID is set when an already-authenticated user initiated the
	// handshake (account linking); empty for plain sign-in.
	SessionUserID string
}

// Reconciler decides, for each successful credential check or provider
// handshake, which user record the identity maps to: an existing one, one
// linked by email, or a brand-new record. It is safe for concurrent use; all
// state lives in the UserStore.
type Reconciler struct {
	Users  UserStore
	Hasher *PasswordHasher
	Issuer *TokenIssuer
}

// AuthenticateLocal verifies an email/password credential pair.
//
// Provider-only accounts (no password hash) fail with ErrInvalidCredentials,
// not ErrUserNotFound, so the failure mode does not reveal which path exists.
// Both that path and the unknown-email path burn a hash comparison to keep
// timing flat.
func (rc *Reconciler) AuthenticateLocal(email, password string) (*User, error) {
	user, err := rc.Users.GetUserByEmail(NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			rc.Hasher.padCompare(password)
			return nil, ErrUserNotFound
		}
		return nil, NewStoreError("get user by email", err)
	}
	if !user.HasPassword() {
		rc.Hasher.padCompare(password)
		return nil, ErrInvalidCredentials
	}
	ok, err := rc.Hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SignUp creates a local credential account. The email must be unused.
func (rc *Reconciler) SignUp(email, password string) (*User, error) {
	hash, err := rc.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
	}
	if err := rc.Users.CreateUser(user); err != nil {
		return nil, NewStoreError("create user", err)
	}
	return user, nil
}

// ReconcileProvider maps a verified provider identity onto a single user
// record. The decision depends on whether a session user is present and
// whether the (provider, subject) pair is already linked:
//
//	session, linked elsewhere  -> ErrProviderLinked, no mutation
//	session, linked to self    -> no-op, return session user
//	session, unlinked          -> attach link to session user, fill profile gaps
//	no session, linked         -> return the owning user as-is
//	no session, unlinked       -> merge into the email-matched user if one
//	                              exists, otherwise create a fresh record
//
// When merging by email the pre-existing account keeps its identity; the link
// is added to it. Fresh records get the provider profile as baseline and no
// password hash. A create that loses a store-level uniqueness race is retried
// as the corresponding found-existing path, so concurrent reconciliations of
// the same new identity converge on one record.
func (rc *Reconciler) ReconcileProvider(login ProviderLogin) (*User, error) {
	owner, err := rc.Users.GetUserByProvider(login.Provider, login.Subject)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, NewStoreError("get user by provider", err)
	}

	if login.SessionUserID != "" {
		return rc.reconcileWithSession(login, owner)
	}

	if owner != nil {
		// Existing identity wins; supplied email and profile are ignored.
		return owner, nil
	}
	return rc.reconcileByEmail(login)
}

func (rc *Reconciler) reconcileWithSession(login ProviderLogin, owner *User) (*User, error) {
	if owner != nil {
		if owner.ID != login.SessionUserID {
			return nil, ErrProviderLinked
		}
		return owner, nil
	}

	user, err := rc.Users.GetUserByID(login.SessionUserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, NewStoreError("get user by id", err)
	}
	return rc.attachLink(user, login)
}

func (rc *Reconciler) reconcileByEmail(login ProviderLogin) (*User, error) {
	email := NormalizeEmail(login.Email)
	if email == "" {
		email = SynthesizeEmail(login.Provider, login.Subject)
	}

	user, err := rc.Users.GetUserByEmail(email)
	if err == nil {
		// Account merge: the email-matched record keeps identity continuity.
		return rc.attachLink(user, login)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, NewStoreError("get user by email", err)
	}

	fresh := &User{
		ID:      uuid.NewString(),
		Email:   email,
		Profile: login.Profile,
	}
	fresh.AddLink(ProviderLink{
		Provider:    login.Provider,
		Subject:     login.Subject,
		Kind:        KindOAuth2,
		AccessToken: login.AccessToken,
	})
	if err := rc.Users.CreateUser(fresh); err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateLink) {
			// Lost a race against a concurrent reconciliation of the same
			// identity; pick up whichever record won.
			return rc.retryAsFound(login, email)
		}
		return nil, NewStoreError("create user", err)
	}
	return fresh, nil
}

// attachLink adds the provider link and fills empty profile fields, then
// persists the record in one store call so no partial write survives a
// failure.
func (rc *Reconciler) attachLink(user *User, login ProviderLogin) (*User, error) {
	user.AddLink(ProviderLink{
		Provider:    login.Provider,
		Subject:     login.Subject,
		Kind:        KindOAuth2,
		AccessToken: login.AccessToken,
	})
	user.Profile.FillFrom(login.Profile)
	if err := rc.Users.SaveUser(user); err != nil {
		if errors.Is(err, ErrDuplicateLink) {
			return nil, ErrProviderLinked
		}
		return nil, NewStoreError("save user", err)
	}
	return user, nil
}

func (rc *Reconciler) retryAsFound(login ProviderLogin, email string) (*User, error) {
	if user, err := rc.Users.GetUserByProvider(login.Provider, login.Subject); err == nil {
		return user, nil
	}
	user, err := rc.Users.GetUserByEmail(email)
	if err != nil {
		slog.Warn("reconcile race lost but winner not found", "provider", login.Provider, "err", err)
		return nil, NewStoreError("retry lookup", err)
	}
	return rc.attachLink(user, login)
}

// IssueSession mints the session token for a reconciled user.
func (rc *Reconciler) IssueSession(user *User) (string, error) {
	return rc.Issuer.Issue(user.ID)
}
