// Package server normalizes and validates HTTP origins for websocket
// upgrade requests against the configured allow-list.
package server

import (
	"log"
	"net/http"
	"net/url"
	"strings"
)

// normalizeOrigins canonicalizes the configured origin list, reporting
// whether a wildcard was present. Invalid entries are logged and skipped.
func normalizeOrigins(origins []string) ([]string, bool) {
	if len(origins) == 0 {
		return nil, false
	}

	normalized := make([]string, 0, len(origins))
	allowAll := false
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
		case trimmed == "*":
			allowAll = true
		default:
			canonical, ok := normalizeOrigin(trimmed)
			if !ok {
				log.Printf("Ignoring invalid origin in configuration: %q", origin)
				continue
			}
			normalized = append(normalized, canonical)
		}
	}

	return normalized, allowAll
}

// normalizeOrigin reduces an origin to lowercase scheme://host form.
func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// checkOrigin is the upgrader's origin gate. Requests without a valid,
// allow-listed Origin header are rejected.
func checkOrigin(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	canonical, ok := normalizeOrigin(originHeader)
	if originHeader == "" || !ok {
		log.Printf("Blocked websocket connection from disallowed origin: %q", originHeader)
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}
	if _, allowed := allowedOrigins[canonical]; allowed {
		return true
	}

	log.Printf("Blocked websocket connection from disallowed origin: %q", originHeader)
	return false
}
