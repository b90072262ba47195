package middlewares

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/openeire/openeire-api/app/helpers"
	"github.com/openeire/openeire-api/app/services"
	"github.com/rs/zerolog/log"
)

type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*services.Claims, error)
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": message})
}

// ExtractToken reads the access token cookie, then the bearer header.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(helpers.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("AuthMiddleware: token rejected")
				respondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(helpers.WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuthMiddleware attaches claims when a valid token is present and
// lets the request through as a guest otherwise.
func OptionalAuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := ExtractToken(r); tokenString != "" {
				if claims, err := tokens.ValidateAccessToken(tokenString); err == nil {
					r = r.WithContext(helpers.WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
