package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/models"
)

const testSecret = "test-secret"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func capturePrincipal(got **models.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func authRequest(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticatorAttachesPrincipal(t *testing.T) {
	auth := NewAuthenticator(testSecret, quietLogger())
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), tokenClaims{
		Email: "juan@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "uid-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	var got *models.Principal
	rec := authRequest(auth.Middleware(capturePrincipal(&got)), "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got == nil || got.UserID != "uid-123" || got.Email != "juan@example.com" {
		t.Fatalf("principal = %+v", got)
	}
}

func TestAuthenticatorPrefersUserIDClaim(t *testing.T) {
	auth := NewAuthenticator(testSecret, quietLogger())
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), tokenClaims{
		UserID:           "uid-from-claim",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-from-sub"},
	})
	p, err := auth.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.UserID != "uid-from-claim" {
		t.Fatalf("UserID = %q", p.UserID)
	}
}

func TestAuthenticatorAnonymousPassesThrough(t *testing.T) {
	auth := NewAuthenticator(testSecret, quietLogger())
	got := &models.Principal{UserID: "sentinel"}
	rec := authRequest(auth.Middleware(capturePrincipal(&got)), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != nil {
		t.Fatalf("principal = %+v, want nil", got)
	}
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator(testSecret, quietLogger())
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "u"})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	noSubject := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{})
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{Subject: "u"})

	cases := map[string]string{
		"wrong key":  "Bearer " + wrongKey,
		"expired":    "Bearer " + expired,
		"no subject": "Bearer " + noSubject,
		"wrong alg":  "Bearer " + wrongAlg,
		"garbage":    "Bearer not-a-jwt",
		"not bearer": "Basic abc",
	}
	for name, header := range cases {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
		rec := authRequest(auth.Middleware(next), header)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
		if called {
			t.Errorf("%s: handler ran", name)
		}
	}
}
