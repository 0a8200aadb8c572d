package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/JonMunkholm/mapfield/internal/config"
	"github.com/JonMunkholm/mapfield/internal/logging"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth guards map mutations and imports with an X-API-Key check.
// When RequireAPIKey is false every request passes. When it is true and no
// keys are configured every request is rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get(APIKeyHeader)
			switch {
			case apiKey == "":
				reject(w, r, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
			case !isValidAPIKey(apiKey, cfg.APIKeys):
				reject(w, r, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, status int, msg, code string) {
	logging.FromContext(r.Context()).Warn("auth: "+msg,
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}

// isValidAPIKey compares key against every configured key in constant time,
// whichever key (if any) matches.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
