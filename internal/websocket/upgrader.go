package websocket

import (
	"net/http"
	"strings"
)

// originChecker builds the upgrade origin check from the configured
// allow-list. Localhost variations are always accepted for development;
// an empty Origin header (non-browser clients, service-to-service) is
// accepted as well.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == strings.TrimSpace(a) {
				return true
			}
		}
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return true
		}
		return false
	}
}
