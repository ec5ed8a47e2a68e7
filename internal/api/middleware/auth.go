package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Roles issued by the platform's auth service
const (
	RoleStudent = "estudiante"
	RoleTeacher = "profesor"
	RoleAdmin   = "admin"
)

// Claims is the payload of a platform access token
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"rol"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

// NewAuthenticator creates an authenticator for tokens signed with secret
func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// Parse validates a raw token and returns its claims. Tokens without a
// numeric userId fall back to a numeric subject.
func (a *Authenticator) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims.UserID == 0 && claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, errors.New("token subject is not a user id")
		}
		claims.UserID = id
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// Require rejects requests without a valid bearer token and stores the
// claims in the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "No se proporcionó token de autenticación")
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Formato de token inválido. Use: Bearer <token>")
			return
		}

		claims, err := a.Parse(strings.TrimSpace(raw))
		if err != nil {
			a.logger.Warn("rejected token",
				"error", err,
				"request_id", GetRequestID(r.Context()),
			)
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expirado")
				return
			}
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Token inválido")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only callers whose token carries one of roles. It must
// run after Require.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Usuario no autenticado")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Acceso denegado. Permisos insuficientes")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the token claims from context
func GetClaims(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*Claims)
	return c, ok
}

// GetUserID retrieves the authenticated user ID from context
func GetUserID(ctx context.Context) (int64, bool) {
	if c, ok := GetClaims(ctx); ok {
		return c.UserID, true
	}
	return 0, false
}

// WithClaims returns a context carrying claims
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, c)
}
