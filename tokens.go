package passgate

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetime is how long an issued session token stays valid.
const DefaultTokenLifetime = 300 * time.Minute

// TokenIssuer mints and verifies signed, self-contained session tokens bound
// to a user id. Verification is pure: no store lookup, no I/O.
//
// There is no revocation or refresh path; an issued token stays valid until
// its embedded expiry. This is a known gap inherited from the reference
// behavior rather than an oversight.
type TokenIssuer struct {
	// SecretKey signs and verifies tokens. Required.
	SecretKey string

	// Issuer is placed in the "iss" claim when set.
	Issuer string

	// Lifetime defaults to DefaultTokenLifetime when zero.
	Lifetime time.Duration
}

func (ti *TokenIssuer) lifetime() time.Duration {
	if ti.Lifetime != 0 {
		return ti.Lifetime
	}
	return DefaultTokenLifetime
}

// Issue signs a token embedding userID and an expiry fixed at issuance time.
func (ti *TokenIssuer) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ti.lifetime()).Unix(),
	}
	if ti.Issuer != "" {
		claims["iss"] = ti.Issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(ti.SecretKey))
}

// Verify checks the signature and expiry and returns the embedded user id.
// Returns ErrTokenExpired past the embedded expiry and ErrTokenInvalid for
// bad signatures or malformed payloads.
func (ti *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(ti.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrTokenInvalid
	}
	if ti.Issuer != "" {
		if iss, err := claims.GetIssuer(); err != nil || iss != ti.Issuer {
			return "", ErrTokenInvalid
		}
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenInvalid
	}
	return sub, nil
}
