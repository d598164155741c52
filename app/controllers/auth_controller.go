package controllers

import (
	"net/http"

	"github.com/kumarketplace/marketplace/app/resources"
	"github.com/kumarketplace/marketplace/app/services"
	"github.com/kumarketplace/marketplace/pkg/bind"
	"github.com/kumarketplace/marketplace/pkg/response"
)

type AuthController struct {
	service *services.AuthService
	bind    bind.Binder
}

func NewAuthController(service *services.AuthService, binder bind.Binder) *AuthController {
	return &AuthController{service: service, bind: binder}
}

// Signup handles POST /api/auth/signup.
func (c *AuthController) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := c.bind.JSON(w, r, &in); err != nil {
		response.Fail(w, r, err)
		return
	}

	user, token, err := c.service.Signup(r.Context(), in)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.Created(w, resources.AuthPayload{
		Message: "User created successfully",
		Token:   token,
		User:    resources.NewUser(user),
	})
}

// Login handles POST /api/auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := c.bind.JSON(w, r, &in); err != nil {
		response.Fail(w, r, err)
		return
	}

	user, token, err := c.service.Login(r.Context(), in)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.Success(w, resources.AuthPayload{
		Message: "Login successful",
		Token:   token,
		User:    resources.NewUser(user),
	})
}

// Me handles GET /api/auth/me.
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := c.service.Me(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.Success(w, map[string]resources.User{"user": resources.NewUser(user)})
}
