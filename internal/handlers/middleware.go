package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/services"
)

type contextKey struct{}

var authContextKey contextKey

// AuthContextFrom extracts the authenticated caller injected by the auth
// middleware, if any.
func AuthContextFrom(ctx context.Context) (services.AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey).(services.AuthContext)
	return auth, ok
}

// AuthMiddleware validates Bearer tokens and turns their claims into an
// explicit AuthContext on the request context.
type AuthMiddleware struct {
	secret string
	log    *zap.Logger
}

func NewAuthMiddleware(secret string, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, log: log}
}

// Require rejects requests without a valid token.
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, err := m.parse(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, false, "invalid or missing token", nil, nil)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), authContextKey, auth)))
	}
}

// Optional injects an AuthContext when a valid token is present and
// passes the request through untouched otherwise, for endpoints that
// serve both students and guests.
func (m *AuthMiddleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth, err := m.parse(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), authContextKey, auth))
		}
		next(w, r)
	}
}

func (m *AuthMiddleware) parse(r *http.Request) (services.AuthContext, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return services.AuthContext{}, jwt.ErrTokenMalformed
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid {
		return services.AuthContext{}, jwt.ErrTokenSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return services.AuthContext{}, jwt.ErrTokenInvalidClaims
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return services.AuthContext{}, jwt.ErrTokenInvalidClaims
	}
	return services.AuthContext{UserID: sub, Role: role}, nil
}
