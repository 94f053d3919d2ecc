package passgate

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a bcrypt hash of an unguessable value. Verifying against it
// costs the same as a real comparison, which lets AuthenticateLocal pad the
// unknown-user path against timing probes.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// PasswordHasher wraps bcrypt hashing with a per-call random salt.
type PasswordHasher struct {
	// Cost defaults to bcrypt.DefaultCost when zero.
	Cost int
}

func (h *PasswordHasher) cost() int {
	if h.Cost > 0 {
		return h.Cost
	}
	return bcrypt.DefaultCost
}

// Hash produces a salted one-way hash of plaintext. Two calls with the same
// plaintext yield different hashes; Verify succeeds against either.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost())
	if err != nil {
		return "", &HashingError{Err: err}
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hashed. A mismatch is (false, nil);
// a HashingError is returned only for malformed hash input.
func (h *PasswordHasher) Verify(plaintext, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, &HashingError{Err: err}
}

// padCompare burns one bcrypt comparison so failure paths that never reach a
// stored hash take as long as a wrong-password failure.
func (h *PasswordHasher) padCompare(plaintext string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plaintext))
}
