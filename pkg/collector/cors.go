package collector

import (
	"errors"
	"net/http"
	"strings"
)

// parseOrigins splits comma-separated origins. A wildcard cannot be combined
// with other origins.
func parseOrigins(origins string) ([]string, error) {
	trimmed := strings.TrimSpace(origins)
	if trimmed == "" {
		return []string{}, nil
	}
	if trimmed == "*" {
		return []string{"*"}, nil
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	hasWildcard := false
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if p == "*" {
			hasWildcard = true
		}
		result = append(result, p)
	}

	if hasWildcard && len(result) > 1 {
		return nil, errors.New("wildcard (*) cannot be combined with other origins")
	}
	return result, nil
}

func isOriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 1 && allowed[0] == "*" {
		return true
	}
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	return false
}

// corsMiddleware lets browser frontends on the allowed origins post logs.
func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !isOriginAllowed(origin, allowed) {
				writeErrorResponse(w, r, http.StatusForbidden, "origin not allowed")
				return
			}

			if len(allowed) == 1 && allowed[0] == "*" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, traceparent, tracestate")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
