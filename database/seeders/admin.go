package seeders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/pkg/auth"
	"github.com/kumarketplace/marketplace/pkg/logger"
)

// Admin returns a seeder that ensures an admin account exists for email.
// An existing account is promoted and keeps its password. With an empty
// email or password the seeder does nothing.
func Admin(email, password string) SeederFunc {
	email = strings.ToLower(strings.TrimSpace(email))

	return func(ctx context.Context, db *gorm.DB) error {
		if email == "" || password == "" {
			logger.Warn("seeders: admin skipped, ADMIN_EMAIL or ADMIN_PASSWORD unset")
			return nil
		}

		var existing models.User
		err := db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
		switch {
		case err == nil:
			return db.WithContext(ctx).Model(&existing).Update("is_admin", true).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("look up admin: %w", err)
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		return db.WithContext(ctx).Create(&models.User{
			FullName:     "Administrator",
			Email:        email,
			PasswordHash: hash,
			IsAdmin:      true,
		}).Error
	}
}
