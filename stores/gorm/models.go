package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/passgate/passgate"
)

// ProfileJSON stores a passgate.Profile as a JSON column.
type ProfileJSON passgate.Profile

func (p ProfileJSON) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *ProfileJSON) Scan(value any) error {
	if value == nil {
		*p = ProfileJSON{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// UserModel is the GORM model for user records. Email carries a unique index
// so two records can never share an address.
type UserModel struct {
	ID           string      `gorm:"primaryKey;size:64"`
	Email        string      `gorm:"size:255;uniqueIndex"`
	PasswordHash string      `gorm:"size:128"`
	Profile      ProfileJSON `gorm:"type:json"`
	CreatedAt    time.Time   `gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// LinkModel is the GORM model for provider links. The composite primary key
// on (provider, subject) is the store-level enforcement of the one-owner
// invariant; concurrent reconciliations racing on the same identity collide
// here instead of creating two records.
type LinkModel struct {
	Provider    string    `gorm:"primaryKey;size:32"`
	Subject     string    `gorm:"primaryKey;size:128"`
	UserID      string    `gorm:"size:64;index"`
	Kind        string    `gorm:"size:16"`
	AccessToken string    `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (LinkModel) TableName() string {
	return "provider_links"
}

func (m *LinkModel) ToLink() passgate.ProviderLink {
	return passgate.ProviderLink{
		Provider:    m.Provider,
		Subject:     m.Subject,
		Kind:        m.Kind,
		AccessToken: m.AccessToken,
		CreatedAt:   m.CreatedAt,
	}
}

func LinkToModel(userID string, link passgate.ProviderLink) *LinkModel {
	return &LinkModel{
		Provider:    link.Provider,
		Subject:     link.Subject,
		UserID:      userID,
		Kind:        link.Kind,
		AccessToken: link.AccessToken,
		CreatedAt:   link.CreatedAt,
	}
}

func (m *UserModel) ToUser(links []LinkModel) *passgate.User {
	user := &passgate.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Profile:      passgate.Profile(m.Profile),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for i := range links {
		user.Links = append(user.Links, links[i].ToLink())
	}
	return user
}

func UserToModel(user *passgate.User) *UserModel {
	return &UserModel{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Profile:      ProfileJSON(user.Profile),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}
