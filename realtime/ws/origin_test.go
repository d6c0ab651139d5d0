package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func reqWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest("GET", "http://player.local/main_ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestIsOriginAllowed(t *testing.T) {
	t.Run("full origin match", func(t *testing.T) {
		r := reqWithOrigin("http://192.168.1.5:8080")
		if !IsOriginAllowed(r, []string{"http://192.168.1.5:8080"}, false) {
			t.Fatal("expected origin to be allowed")
		}
		if IsOriginAllowed(r, []string{"http://192.168.1.5"}, false) {
			t.Fatal("expected origin to be rejected")
		}
	})

	t.Run("hostname match ignores port and case", func(t *testing.T) {
		if !IsOriginAllowed(reqWithOrigin("https://Player.Local:5173"), []string{"player.local"}, false) {
			t.Fatal("expected origin to be allowed")
		}
	})

	t.Run("host:port match", func(t *testing.T) {
		r := reqWithOrigin("https://player.local:5173")
		if !IsOriginAllowed(r, []string{"player.local:5173"}, false) {
			t.Fatal("expected origin to be allowed")
		}
		if IsOriginAllowed(r, []string{"player.local:9999"}, false) {
			t.Fatal("expected origin to be rejected")
		}
	})

	t.Run("wildcard matches subdomains only", func(t *testing.T) {
		if IsOriginAllowed(reqWithOrigin("https://lan"), []string{"*.lan"}, false) {
			t.Fatal("expected base hostname to be rejected")
		}
		if !IsOriginAllowed(reqWithOrigin("https://tv.lan"), []string{"*.lan"}, false) {
			t.Fatal("expected subdomain to be allowed")
		}
	})

	t.Run("null origin", func(t *testing.T) {
		if !IsOriginAllowed(reqWithOrigin("null"), []string{"null"}, false) {
			t.Fatal("expected null origin to be allowed")
		}
	})

	t.Run("missing origin", func(t *testing.T) {
		r := reqWithOrigin("")
		if IsOriginAllowed(r, []string{"player.local"}, false) {
			t.Fatal("expected missing origin to be rejected")
		}
		if !IsOriginAllowed(r, []string{"player.local"}, true) {
			t.Fatal("expected missing origin to be allowed")
		}
	})
}

func TestNewOriginCheckerEmptyAllowsAll(t *testing.T) {
	if !NewOriginChecker(nil, false)(reqWithOrigin("https://anything.example")) {
		t.Fatal("expected an empty allow-list to accept")
	}
}
