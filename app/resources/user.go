package resources

import (
	"time"

	"github.com/kumarketplace/marketplace/app/models"
)

// User is the public profile returned by the auth endpoints.
type User struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// AdminUser adds the fields only administrators see.
type AdminUser struct {
	ID        uint      `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUser(u models.User) User {
	return User{ID: u.ID, FullName: u.FullName, Email: u.Email}
}

func NewAdminUsers(users []models.User) []AdminUser {
	out := make([]AdminUser, 0, len(users))
	for _, u := range users {
		out = append(out, AdminUser{
			ID:        u.ID,
			FullName:  u.FullName,
			Email:     u.Email,
			IsAdmin:   u.IsAdmin,
			CreatedAt: u.CreatedAt,
		})
	}
	return out
}

// AuthPayload is the body of a successful signup or login.
type AuthPayload struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}
