package middleware

import (
	"net/http"
	"strings"
)

// corsPolicy answers browser preflights for the registration API and tags
// responses to allowed origins.
type corsPolicy struct {
	origins map[string]bool
}

func newCORSPolicy(allowedOrigins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool, len(allowedOrigins))}
	for _, o := range allowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			p.origins[o] = true
		}
	}
	return p
}

func (p corsPolicy) allow(h http.Header, origin string) bool {
	h.Add("Vary", "Origin")
	if origin == "" || !p.origins[origin] {
		return false
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	return true
}

// CORS allows cross-origin calls from allowedOrigins. Preflights always end
// with 204; disallowed origins simply get no CORS headers. Retry-After is
// exposed so browser clients can honour 503 responses.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed := policy.allow(w.Header(), r.Header.Get("Origin"))
		if r.Method == http.MethodOptions {
			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept")
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if allowed {
			w.Header().Set("Access-Control-Expose-Headers", "Retry-After, X-Request-ID")
		}
		next.ServeHTTP(w, r)
	})
}
