package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// BearerAuth returns middleware that validates the Authorization: Bearer <token> header.
// Uses crypto/subtle.ConstantTimeCompare to prevent timing attacks.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			provided := strings.TrimPrefix(auth, "Bearer ")

			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 || !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows any origin to read the JSON endpoints.
func corsMiddleware() func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return func(next http.Handler) http.Handler {
		return lowerRequestHeaders(c.Handler(next))
	}
}

// lowerRequestHeaders lowercases Access-Control-Request-Headers. Browsers
// already send it lowercase; cors only matches that form.
func lowerRequestHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			const key = "Access-Control-Request-Headers"
			if v := r.Header.Values(key); len(v) > 0 {
				lowered := make([]string, len(v))
				for i, h := range v {
					lowered[i] = strings.ToLower(h)
				}
				r.Header[key] = lowered
			}
		}
		next.ServeHTTP(w, r)
	})
}

// preflight answers every OPTIONS request with 204, including ones cors
// passes through because they carry no Access-Control-Request-Method.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
