package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// OriginGate decides cross-origin headers from a fixed allow-list of exact
// origins. Unknown origins still get an answer, just without credentials.
type OriginGate struct {
	allowed map[string]struct{}
}

// Decision is what the gate wrote for one request.
type Decision struct {
	AllowOrigin string
	Credentials bool
}

func NewOriginGate(origins []string) *OriginGate {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}
	return &OriginGate{allowed: allowed}
}

// Allowed reports exact membership. No wildcard or suffix matching.
func (g *OriginGate) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := g.allowed[origin]
	return ok
}

func (g *OriginGate) Decide(origin string) Decision {
	if g.Allowed(origin) {
		return Decision{AllowOrigin: origin, Credentials: true}
	}
	return Decision{AllowOrigin: "*"}
}

// Apply writes the CORS headers for origin onto h.
func (g *OriginGate) Apply(h http.Header, origin string) Decision {
	d := g.Decide(origin)
	h.Set("Access-Control-Allow-Origin", d.AllowOrigin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Add("Vary", "Origin")
	if d.Credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	} else {
		h.Del("Access-Control-Allow-Credentials")
	}
	return d
}

// Middleware sets CORS headers on every response and answers pre-flight
// requests with 204 before anything else runs.
func (g *OriginGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Apply(w.Header(), r.Header.Get("Origin"))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Restrict rejects any method outside methods (plus OPTIONS) with 405 and an
// Allow header, before the body is read.
func Restrict(methods ...string) func(http.Handler) http.Handler {
	permitted := map[string]bool{http.MethodOptions: true}
	allow := make([]string, 0, len(methods)+1)
	for _, m := range methods {
		permitted[m] = true
		allow = append(allow, m)
	}
	allow = append(allow, http.MethodOptions)
	allowHeader := strings.Join(allow, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !permitted[r.Method] {
				w.Header().Set("Allow", allowHeader)
				writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
