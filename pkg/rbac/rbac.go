// Package rbac gates routes on the caller's privileges.
package rbac

import (
	"context"
	"net/http"

	"github.com/kumarketplace/marketplace/pkg/apperr"
	"github.com/kumarketplace/marketplace/pkg/middleware"
	"github.com/kumarketplace/marketplace/pkg/response"
)

// AdminChecker reports whether a user holds the admin flag. A missing user is
// not an admin.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uint) (bool, error)
}

// RequireAdmin allows the request through only when the authenticated user is
// an admin. The flag is loaded fresh on every request. Requires
// middleware.Authenticate to have run.
func RequireAdmin(c AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := middleware.UserIDFromCtx(r)
			if !ok {
				response.Fail(w, r, apperr.New(apperr.Unauthenticated, "No token provided"))
				return
			}

			admin, err := c.IsAdmin(r.Context(), id)
			if err != nil {
				response.Fail(w, r, err)
				return
			}
			if !admin {
				response.Fail(w, r, apperr.New(apperr.Forbidden, "Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
