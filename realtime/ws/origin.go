package ws

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// IsOriginAllowed validates the request Origin against an allow-list.
//
// Entries are full origins ("http://192.168.1.5:8080"), host:port pairs, hostnames,
// or wildcard hostnames ("*.lan", matching subdomains only). Hostnames compare
// case-insensitively. A request without an Origin header (native clients) is
// accepted only when allowNoOrigin is set.
func IsOriginAllowed(r *http.Request, allowed []string, allowNoOrigin bool) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return allowNoOrigin
	}
	var host, hostname string
	if u, err := url.Parse(origin); err == nil {
		host = strings.ToLower(u.Host)
		hostname = strings.ToLower(u.Hostname())
	}
	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
		case strings.Contains(entry, "://"):
			if strings.EqualFold(origin, entry) {
				return true
			}
		case strings.HasPrefix(entry, "*."):
			if base := entry[1:]; hostname != "" && strings.HasSuffix(hostname, base) {
				return true
			}
		case isHostPort(entry):
			if host == entry {
				return true
			}
		case hostname != "" && hostname == entry:
			return true
		case origin == entry:
			// Non-standard values such as "null".
			return true
		}
	}
	return false
}

func isHostPort(s string) bool {
	_, _, err := net.SplitHostPort(s)
	return err == nil
}

// NewOriginChecker returns a websocket upgrader CheckOrigin function.
//
// With an empty allow-list it accepts every origin.
func NewOriginChecker(allowed []string, allowNoOrigin bool) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return IsOriginAllowed(r, allowed, allowNoOrigin)
	}
}
