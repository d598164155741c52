package middleware

import (
	"context"
	"net/http"

	"github.com/kumarketplace/marketplace/pkg/apperr"
	"github.com/kumarketplace/marketplace/pkg/auth"
	"github.com/kumarketplace/marketplace/pkg/logger"
	"github.com/kumarketplace/marketplace/pkg/response"
)

// Authenticator resolves an Authorization header value to a user id.
type Authenticator interface {
	Authenticate(header string) (uint, error)
}

type userIDKey struct{}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's id in the request context. Tokens are verified on every request.
func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				if apperr.Is(err, apperr.InvalidCredential) {
					logger.WithCtx(r.Context()).Debug("token rejected", "expired", auth.IsExpired(err), "path", r.URL.Path)
				}
				response.Fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromCtx returns the id stored by Authenticate.
func UserIDFromCtx(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(userIDKey{}).(uint)
	return id, ok && id != 0
}
