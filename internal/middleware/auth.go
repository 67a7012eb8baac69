package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/models"
)

type principalKey struct{}

// tokenClaims accepts either a user_id claim or the standard subject.
type tokenClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and attaches the caller to the
// request context.
type Authenticator struct {
	secret []byte
	logger *logrus.Logger
}

var errMissingSubject = errors.New("token has no subject")

func NewAuthenticator(secret string, logger *logrus.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// Parse validates a raw token and returns its principal.
func (a *Authenticator) Parse(raw string) (*models.Principal, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	uid := strings.TrimSpace(claims.UserID)
	if uid == "" {
		uid = strings.TrimSpace(claims.Subject)
	}
	if uid == "" {
		return nil, errMissingSubject
	}
	return &models.Principal{UserID: uid, Email: strings.TrimSpace(claims.Email)}, nil
}

// Middleware attaches the principal when a valid bearer token is sent. A
// request without a token passes through anonymous; the services decide
// whether that is allowed. A token that fails verification is rejected here.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		principal, err := a.Parse(strings.TrimSpace(raw))
		if err != nil {
			a.logger.WithError(err).WithField("request_id", RequestIDFrom(r.Context())).Warn("Rejected bearer token")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(principalKey{}).(*models.Principal)
	return p
}
