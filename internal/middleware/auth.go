package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	svcerrors "github.com/atendeflow/gateway/internal/errors"
	"github.com/atendeflow/gateway/internal/logging"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	tenantKey contextKey = "tenant"
)

// Claims is the token payload issued by the users service.
type Claims struct {
	UserID string `json:"user_id"`
	Tenant string `json:"tenant"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// GetUserID returns the authenticated user ID from ctx, or "".
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// GetTenant returns the tenant from ctx, or "".
func GetTenant(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware validates bearer JWTs and stamps the user identity on the
// request for upstream services.
type AuthMiddleware struct {
	secret    []byte
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates the auth middleware. Requests whose path is in
// skipPaths bypass authentication entirely.
func NewAuthMiddleware(secret []byte, logger *logging.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &AuthMiddleware{secret: secret, logger: logger, skipPaths: skip}
}

// Handler returns the auth middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.logger.LogSecurityEvent(r.Context(), "missing_authorization", map[string]any{
				"path": r.URL.Path,
			})
			svcerrors.Unauthorized("missing authorization").WriteJSON(w)
			return
		}

		claims, err := m.validate(authHeader[len("Bearer "):])
		if err != nil {
			m.logger.LogSecurityEvent(r.Context(), "invalid_token", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			svcerrors.Unauthorized("invalid token").WriteJSON(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		if claims.Tenant != "" {
			ctx = context.WithValue(ctx, tenantKey, claims.Tenant)
		}
		r = r.WithContext(ctx)

		// Upstream services trust these headers; never forward client values.
		r.Header.Set("X-User-ID", claims.UserID)
		r.Header.Set("X-Tenant", claims.Tenant)

		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.UserID == "" {
			return nil, fmt.Errorf("token missing user id")
		}
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
