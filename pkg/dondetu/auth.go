package dondetu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/hlog"
)

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrForbidden is returned for valid tokens without the admin role.
	ErrForbidden = errors.New("admin role required")
)

// Claims are the token claims the dashboard sends.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the claims grant role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Authenticator verifies HMAC-signed tokens from the identity provider.
type Authenticator struct {
	secret    []byte
	issuer    string
	audience  string
	adminRole string
}

// NewAuthenticator returns nil when no secret is configured.
func NewAuthenticator(config AuthConfig) *Authenticator {
	if config.Secret == "" {
		return nil
	}
	return &Authenticator{
		secret:    []byte(config.Secret),
		issuer:    config.Issuer,
		audience:  config.Audience,
		adminRole: config.AdminRole,
	}
}

// Verify parses and validates a token string.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

// Sign issues a token for claims. Used by tooling and tests; production tokens
// come from the identity provider.
func (a *Authenticator) Sign(claims *Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = a.issuer
	}
	if a.audience != "" && len(claims.Audience) == 0 {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims of an authenticated admin request.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// requireAdmin rejects requests without a valid admin token.
func (a *App) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.auth == nil {
			respondError(w, http.StatusUnauthorized, "Admin API is not configured")
			return
		}

		token, err := bearerToken(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.auth.Verify(token)
		if err != nil {
			hlog.FromRequest(r).Info().Err(err).Msg("Rejected admin token")
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if !claims.HasRole(a.auth.adminRole) {
			hlog.FromRequest(r).Warn().Str("subject", claims.Subject).Msg("Admin role missing")
			respondError(w, http.StatusForbidden, ErrForbidden.Error())
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		logger := hlog.FromRequest(r).With().Str("admin", claims.Subject).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
	})
}
