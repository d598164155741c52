package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kumarketplace/marketplace/app/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("repositories: record not found")

// UserRepository handles database operations for User.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks up a user by their (normalized) email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	return user, notFound(err)
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	return user, notFound(err)
}

// Create persists a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// List returns every user, newest first.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// IsAdmin reports the admin flag. A missing user is not an admin.
func (r *UserRepository) IsAdmin(ctx context.Context, id uint) (bool, error) {
	var flags []bool
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Pluck("is_admin", &flags).Error
	if err != nil {
		return false, fmt.Errorf("load admin flag: %w", err)
	}
	return len(flags) == 1 && flags[0], nil
}

// SetAdmin sets the admin flag on the user with email.
func (r *UserRepository) SetAdmin(ctx context.Context, email string, admin bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Update("is_admin", admin)
	if res.Error != nil {
		return fmt.Errorf("set admin flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByEmail(ctx, email); err != nil {
			return err
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
