// Package gorm provides the GORM-backed UserStore. It works with any dialect
// GORM supports; the gateway binary runs it on SQLite.
//
// Uniqueness of email and of (provider, subject) is enforced by database
// constraints, and every create/save runs in a transaction, so a failed
// reconciliation never leaves a half-written record behind.
package gorm

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/passgate/passgate"
)

// AutoMigrate creates or updates the passgate tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{}, &LinkModel{})
}

// UserStore implements passgate.UserStore on a gorm.DB.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByID(id string) (*passgate.User, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, passgate.ErrUserNotFound
		}
		return nil, err
	}
	return s.withLinks(&model)
}

func (s *UserStore) GetUserByEmail(email string) (*passgate.User, error) {
	var model UserModel
	err := s.db.First(&model, "email = ?", passgate.NormalizeEmail(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, passgate.ErrUserNotFound
		}
		return nil, err
	}
	return s.withLinks(&model)
}

func (s *UserStore) GetUserByProvider(provider, subject string) (*passgate.User, error) {
	var link LinkModel
	err := s.db.First(&link, "provider = ? AND subject = ?", provider, subject).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, passgate.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUserByID(link.UserID)
}

func (s *UserStore) CreateUser(user *passgate.User) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(UserToModel(user)).Error; err != nil {
			return err
		}
		for _, link := range user.Links {
			if err := tx.Create(LinkToModel(user.ID, link)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return s.translateDuplicate(err, user)
}

func (s *UserStore) SaveUser(user *passgate.User) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(UserToModel(user)).Error; err != nil {
			return err
		}
		// Links are replaced wholesale; the composite primary key still
		// rejects a link another user owns.
		if err := tx.Delete(&LinkModel{}, "user_id = ?", user.ID).Error; err != nil {
			return err
		}
		for _, link := range user.Links {
			if err := tx.Create(LinkToModel(user.ID, link)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return s.translateDuplicate(err, user)
}

// translateDuplicate maps constraint violations onto the domain duplicate
// errors. Which constraint fired is decided by re-checking the email, since
// dialects word their violation messages differently.
func (s *UserStore) translateDuplicate(err error, user *passgate.User) error {
	if err == nil {
		return nil
	}
	if !isDuplicateError(err) {
		return err
	}
	var existing UserModel
	lookup := s.db.First(&existing, "email = ? AND id <> ?", user.Email, user.ID).Error
	if lookup == nil {
		return passgate.ErrDuplicateEmail
	}
	return passgate.ErrDuplicateLink
}

func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite without gorm error translation enabled.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}

func (s *UserStore) withLinks(model *UserModel) (*passgate.User, error) {
	var links []LinkModel
	if err := s.db.Where("user_id = ?", model.ID).Find(&links).Error; err != nil {
		return nil, err
	}
	return model.ToUser(links), nil
}
