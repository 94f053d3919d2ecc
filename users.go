package passgate

import (
	"strings"
	"time"
)

// Provider names accepted by the gateway.
const (
	ProviderLocal     = "local"
	ProviderGoogle    = "google"
	ProviderFacebook  = "facebook"
	ProviderGithub    = "github"
	ProviderVkontakte = "vkontakte"
	ProviderTwitter   = "twitter"
)

// Link kinds carried on a ProviderLink.
const (
	KindLocal  = "local"
	KindOAuth2 = "oauth2"
)

// ProviderLink attaches an external provider identity to a user record.
// (Provider, Subject) identifies at most one user globally and a user holds
// at most one link per provider.
type ProviderLink struct {
	Provider    string    `json:"provider"`
	Subject     string    `json:"subject"` // provider-assigned user id
	Kind        string    `json:"kind"`
	AccessToken string    `json:"access_token,omitempty"` // opaque credential blob
	CreatedAt   time.Time `json:"created_at"`
}

// Profile holds best-effort attributes collected from providers. Fields are
// filled once and never overwritten by a later provider link.
type Profile struct {
	Name     string `json:"name,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
}

// FillFrom copies attributes from other into any empty fields of p and
// reports whether anything changed. Existing values always win.
func (p *Profile) FillFrom(other Profile) bool {
	changed := false
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}
	fill(&p.Name, other.Name)
	fill(&p.Gender, other.Gender)
	fill(&p.Picture, other.Picture)
	fill(&p.Location, other.Location)
	fill(&p.Website, other.Website)
	return changed
}

// User is the central account record. A record always has at least one
// authentication path: a password hash or a provider link.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"` // empty for provider-only accounts
	Links        []ProviderLink `json:"links,omitempty"`
	Profile      Profile        `json:"profile"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// HasPassword reports whether local credential auth is available.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// LinkFor returns the link for the given provider, or nil.
func (u *User) LinkFor(provider string) *ProviderLink {
	for i := range u.Links {
		if u.Links[i].Provider == provider {
			return &u.Links[i]
		}
	}
	return nil
}

// AddLink attaches a provider link, replacing any previous link for the same
// provider so the one-link-per-provider invariant holds.
func (u *User) AddLink(link ProviderLink) {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	for i := range u.Links {
		if u.Links[i].Provider == link.Provider {
			u.Links[i] = link
			return
		}
	}
	u.Links = append(u.Links, link)
}

// NormalizeEmail lower-cases and trims an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SynthesizeEmail builds a placeholder address for providers that withhold
// email, e.g. "12345@twitter.invalid". The .invalid TLD can never resolve to
// a deliverable address.
func SynthesizeEmail(provider, handle string) string {
	return NormalizeEmail(handle + "@" + provider + ".invalid")
}

// UserStore is the durable credential store collaborator. Both uniqueness
// invariants (email, provider link) are enforced at the store level so that
// concurrent reconciliations racing on the same key cannot create duplicate
// records; losers see ErrDuplicateEmail / ErrDuplicateLink.
type UserStore interface {
	// GetUserByID retrieves a user by its opaque identifier.
	GetUserByID(id string) (*User, error)

	// GetUserByEmail retrieves a user by normalized email.
	GetUserByEmail(email string) (*User, error)

	// GetUserByProvider retrieves the user owning the (provider, subject) link.
	GetUserByProvider(provider, subject string) (*User, error)

	// CreateUser inserts a new record atomically, links included.
	CreateUser(user *User) error

	// SaveUser persists an updated record atomically, links included.
	SaveUser(user *User) error
}
