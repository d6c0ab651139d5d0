package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/floegence/mediactl/endpoint"
	"github.com/floegence/mediactl/internal/cmdutil"
	"github.com/floegence/mediactl/internal/config"
	"github.com/floegence/mediactl/internal/defaults"
	"github.com/floegence/mediactl/internal/logging"
	"github.com/floegence/mediactl/observability"
	"github.com/floegence/mediactl/observability/prom"
	"github.com/floegence/mediactl/psk"
)

var (
	version = "dev"
	commit  = "unknown"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }

func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("mediactl-hostsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		showVersion bool
		configPath  string
		envFile     string
		listen      string
		pskFile     string
		origins     stringSliceFlag
		logLevel    string
		metrics     string
	)
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&configPath, "config", "", "TOML config file (optional)")
	fs.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before MEDIACTL_* overrides (missing is ignored)")
	fs.StringVar(&listen, "listen", "", "listen address (env: MEDIACTL_LISTEN)")
	fs.StringVar(&pskFile, "psk-file", "", "file holding the base64 PSK (env: MEDIACTL_PSK_FILE)")
	fs.Var(&origins, "allow-origin", "allowed Origin value (repeatable) (env: MEDIACTL_ALLOWED_ORIGINS)")
	fs.StringVar(&logLevel, "log-level", "", "trace|debug|info|warn|error|disabled (env: MEDIACTL_LOG_LEVEL)")
	fs.StringVar(&metrics, "metrics-listen", "", "listen address for /metrics (empty disables) (env: MEDIACTL_METRICS_ADDR)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		_, _ = fmt.Fprintln(stdout, cmdutil.Version(version, commit))
		return 0
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	cfg, err := config.LoadHost(configPath, func(h *config.Host) {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "listen":
				h.Listen = listen
			case "psk-file":
				h.PSKFile = pskFile
			case "allow-origin":
				h.AllowedOrigins = origins
			case "log-level":
				h.Log.Level = logLevel
			case "metrics-listen":
				h.MetricsAddr = metrics
			}
		})
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return 2
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log := logging.New("mediactl-hostsim", level, stderr, !cfg.Log.JSON)

	key, err := loadKey(cfg)
	if err != nil {
		log.Error().Err(err).Msg("load psk")
		return 2
	}

	var observer observability.HostObserver = observability.NoopHostObserver
	if cfg.MetricsAddr != "" {
		reg := prom.NewRegistry()
		observer = prom.NewHostObserver(reg)
		addr, err := cmdutil.StartMetrics(ctx, cfg.MetricsAddr, reg, log)
		if err != nil {
			log.Error().Err(err).Msg("metrics listen")
			return 1
		}
		log.Info().Str("addr", "http://"+addr+"/metrics").Msg("metrics enabled")
	}

	mux := http.NewServeMux()
	mux.Handle(defaults.EndpointPath, endpoint.Handler(newPlayer(defaultPlaylist, nil), endpoint.Options{
		PSK:                   key,
		HandshakeTimeout:      cfg.HandshakeTimeout,
		IdleHeartbeat:         cfg.IdleHeartbeat,
		HeartbeatReplyTimeout: cfg.HeartbeatReply,
		AllowedOrigins:        cfg.AllowedOrigins,
		AllowNoOrigin:         cfg.AllowNoOrigin,
		LoggerFactory:         logging.NewFactory(log),
		Observer:              observer,
	}))

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Error().Err(err).Msg("listen")
		return 1
	}
	log.Info().
		Str("version", cmdutil.Version(version, commit)).
		Str("url", "ws://"+ln.Addr().String()+defaults.EndpointPath).
		Msg("host simulator listening")

	if err := cmdutil.Serve(ctx, cmdutil.NewHTTPServer(mux), ln); err != nil {
		log.Error().Err(err).Msg("serve")
		return 1
	}
	return 0
}

// loadKey prefers PSKFile over the inline PSK. The simulator reads the key once.
func loadKey(cfg config.Host) ([]byte, error) {
	raw := cfg.PSK
	if cfg.PSKFile != "" {
		b, err := os.ReadFile(cfg.PSKFile)
		if err != nil {
			return nil, err
		}
		raw = string(b)
	}
	key, err := psk.Decode(raw)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, psk.ErrInvalidPSK
	}
	return key, nil
}
