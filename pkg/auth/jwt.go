// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kumarketplace/marketplace/pkg/apperr"
)

// Claims holds the typed JWT payload.
type Claims struct {
	UserID uint `json:"userId"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 access tokens with a shared secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a Tokens using secret and a fixed validity window.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token carrying userID.
func (t *Tokens) Issue(userID uint) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates signature and expiry and returns the claims. Every failure
// is an InvalidCredential error.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidCredential, "Invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, apperr.Wrap(apperr.InvalidCredential, "Invalid token", jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}

// Authenticate resolves an Authorization header value to a user id.
func (t *Tokens) Authenticate(header string) (uint, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return 0, err
	}
	claims, err := t.Parse(raw)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// BearerToken extracts the credential from "Bearer <token>". A missing
// header or empty token is Unauthenticated.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apperr.New(apperr.Unauthenticated, "No token provided")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.New(apperr.Unauthenticated, "No token provided")
	}
	return strings.TrimSpace(token), nil
}

// ─── Passwords ────────────────────────────────────────────────────────────────

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// BurnPasswordCheck spends the same bcrypt work as CheckPassword against a
// throwaway hash. Login calls it for unknown emails so timing does not reveal
// whether an account exists.
func BurnPasswordCheck(plain string) {
	decoyOnce.Do(func() {
		decoyHash, _ = bcrypt.GenerateFromPassword([]byte("decoy-password-never-matches"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(plain))
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
