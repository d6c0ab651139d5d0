// Package cmdutil holds helpers shared by the mediactl binaries.
package cmdutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/floegence/mediactl/observability/prom"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	httpReadHeaderTimeout = 5 * time.Second
	httpIdleTimeout       = 60 * time.Second
	httpMaxHeaderBytes    = 32 << 10
	shutdownTimeout       = 5 * time.Second
)

// NewHTTPServer bounds the pre-upgrade phase. WebSocket connections are hijacked,
// so no read/write timeouts are set here.
func NewHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		IdleTimeout:       httpIdleTimeout,
		MaxHeaderBytes:    httpMaxHeaderBytes,
	}
}

// Serve runs srv on ln until ctx is done, then shuts it down.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
		<-errCh
		return nil
	}
}

// StartMetrics serves reg on addr at /metrics in the background. It returns the bound address.
func StartMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log zerolog.Logger) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler(reg))
	srv := NewHTTPServer(mux)
	go func() {
		if err := Serve(ctx, srv, ln); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return ln.Addr().String(), nil
}

// Version formats a version line, falling back to module build info when ldflags were not set.
func Version(version, commit string) string {
	v := strings.TrimSpace(version)
	c := strings.TrimSpace(commit)
	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "" || v == "dev" {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
		}
		if c == "" || c == "unknown" {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if v == "" {
		v = "dev"
	}
	if c != "" && c != "unknown" {
		v += " (" + c + ")"
	}
	return v
}
