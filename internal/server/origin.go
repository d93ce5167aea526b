// Package server validates WebSocket upgrade requests against the configured
// origin allowlist.
package server

import (
	"log"
	"net/http"
	"net/url"
	"strings"
)

// canonicalOrigin reduces an origin to lowercase scheme://host form so that
// allowlist entries and Origin headers compare consistently.
func canonicalOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// normalizeOrigins canonicalizes the configured allowlist. A "*" entry turns
// on allow-all; blank and unparseable entries are dropped with a log line.
func normalizeOrigins(origins []string) ([]string, bool) {
	if len(origins) == 0 {
		return nil, false
	}

	allowAll := false
	normalized := make([]string, 0, len(origins))
	for _, origin := range origins {
		entry := strings.TrimSpace(origin)
		switch {
		case entry == "":
		case entry == "*":
			allowAll = true
		default:
			canonical, ok := canonicalOrigin(entry)
			if !ok {
				log.Printf("Ignoring invalid origin in configuration: %q", origin)
				continue
			}
			normalized = append(normalized, canonical)
		}
	}

	return normalized, allowAll
}

func originAllowed(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		return false
	}
	canonical, ok := canonicalOrigin(header)
	if !ok {
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}
	_, ok = allowedOrigins[canonical]
	return ok
}

// checkOrigin is the upgrader hook deciding whether a handshake proceeds.
func checkOrigin(r *http.Request) bool {
	if originAllowed(r) {
		return true
	}
	log.Printf("Blocked WebSocket upgrade from disallowed origin: %q", r.Header.Get("Origin"))
	return false
}
