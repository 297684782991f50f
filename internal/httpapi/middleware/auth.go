package middleware

import (
	"net/http"
	"strings"
)

// Keys holds the API keys for the two access tiers. An empty tier
// disables its check, which keeps local development friction-free.
type Keys struct {
	Public []string
	Admin  []string
}

type keySet map[string]struct{}

func newKeySet(keys []string) keySet {
	s := make(keySet, len(keys))
	for _, k := range keys {
		if k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

func (s keySet) contains(k string) bool {
	if k == "" {
		return false
	}
	_, ok := s[k]
	return ok
}

// readKey accepts either "Authorization: Bearer <key>" or the
// X-API-Key header.
func readKey(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	return ""
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAny admits requests presenting either a public or an admin
// key. With no keys configured at all it admits everything.
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	public := newKeySet(keys.Public)
	admin := newKeySet(keys.Admin)
	enabled := len(public) > 0 || len(admin) > 0

	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := readKey(r)
			if public.contains(k) || admin.contains(k) {
				next.ServeHTTP(w, r)
				return
			}
			deny(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

// RequireAdmin only admits requests presenting an admin key. With no
// admin keys configured it admits everything.
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	admin := newKeySet(keys.Admin)

	return func(next http.Handler) http.Handler {
		if len(admin) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := readKey(r)
			if admin.contains(k) {
				next.ServeHTTP(w, r)
				return
			}
			if k == "" {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			deny(w, http.StatusForbidden, "forbidden")
		})
	}
}
