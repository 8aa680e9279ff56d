package middleware

import (
	"net/http"
	"strings"
)

// CORS answers preflight requests and stamps cross-origin headers on every
// response. When the request Origin is on the allow list it is echoed back,
// otherwise the first configured origin is used. The allow list is fixed at
// startup.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	fallback := "*"
	if len(allowedOrigins) > 0 {
		fallback = strings.TrimSpace(allowedOrigins[0])
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := fallback
			if _, ok := allowed[r.Header.Get("Origin")]; ok {
				origin = r.Header.Get("Origin")
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
