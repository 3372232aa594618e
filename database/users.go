package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/restaurant-floor/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidRole    = errors.New("invalid role")
)

// CreateUser stores an account with a bcrypt hash of password.
func CreateUser(ctx context.Context, db *gorm.DB, name, email, password, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w %q", ErrInvalidRole, role)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{Name: name, Email: email, Password: string(hashed), Role: role}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateEmail
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func SetUserRole(ctx context.Context, db *gorm.DB, id uint, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w %q", ErrInvalidRole, role)
	}
	var user models.User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return &user, nil
}

// EnsureAdmin creates the first admin account when the database has none.
// It reports whether an account was created.
func EnsureAdmin(ctx context.Context, db *gorm.DB, name, email, password string) (bool, error) {
	var admins int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return false, err
	}
	if admins > 0 {
		return false, nil
	}
	if _, err := CreateUser(ctx, db, name, email, password, models.RoleAdmin); err != nil {
		return false, fmt.Errorf("create admin %s: %w", email, err)
	}
	return true, nil
}
