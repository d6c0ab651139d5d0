package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/floegence/mediactl/channel"
	"github.com/floegence/mediactl/internal/cmdutil"
	"github.com/floegence/mediactl/internal/config"
	"github.com/floegence/mediactl/internal/logging"
	"github.com/floegence/mediactl/observability/prom"
	"github.com/floegence/mediactl/psk"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("mediactl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		showVersion bool
		configPath  string
		envFile     string
		url         string
		pskFile     string
		logLevel    string
		logJSON     bool
		metrics     string
	)
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&configPath, "config", "", "TOML config file (optional)")
	fs.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before MEDIACTL_* overrides (missing is ignored)")
	fs.StringVar(&url, "url", "", "host endpoint, e.g. ws://192.168.1.20:5000 (env: MEDIACTL_URL)")
	fs.StringVar(&pskFile, "psk-file", "", "file holding the base64 PSK; watched for changes (env: MEDIACTL_PSK_FILE)")
	fs.StringVar(&logLevel, "log-level", "", "trace|debug|info|warn|error|disabled (env: MEDIACTL_LOG_LEVEL)")
	fs.BoolVar(&logJSON, "log-json", false, "emit JSON logs instead of console output (env: MEDIACTL_LOG_JSON)")
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
	cfg, err := config.LoadClient(configPath, func(c *config.Client) {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "url":
				c.URL = url
			case "psk-file":
				c.PSKFile = pskFile
			case "log-level":
				c.Log.Level = logLevel
			case "log-json":
				c.Log.JSON = logJSON
			case "metrics-listen":
				c.MetricsAddr = metrics
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
	log := logging.New("mediactl", level, stderr, !cfg.Log.JSON)

	var src channel.PSKSource
	if cfg.PSKFile != "" {
		fsrc, err := psk.NewFileSource(cfg.PSKFile, psk.DefaultPollInterval, cfg.PSKDebounce)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.PSKFile).Msg("read psk file")
			return 1
		}
		go func() { _ = fsrc.Run(ctx) }()
		src = fsrc
	} else {
		src = psk.Static(cfg.PSK)
	}

	opts := []channel.Option{
		channel.WithLoggerFactory(logging.NewFactory(log)),
		channel.WithConnectTimeout(cfg.ConnectTimeout),
		channel.WithHandshakeTimeout(cfg.HandshakeTimeout),
		channel.WithLivenessTimeout(cfg.LivenessTimeout),
		channel.WithRetryDelay(cfg.RetryDelay),
	}
	if cfg.HeartbeatIdle > 0 {
		opts = append(opts, channel.WithHeartbeatIdle(cfg.HeartbeatIdle))
	}
	if cfg.MetricsAddr != "" {
		reg := prom.NewRegistry()
		opts = append(opts, channel.WithObserver(prom.NewChannelObserver(reg)))
		addr, err := cmdutil.StartMetrics(ctx, cfg.MetricsAddr, reg, log)
		if err != nil {
			log.Error().Err(err).Msg("metrics listen")
			return 1
		}
		log.Info().Str("addr", "http://"+addr+"/metrics").Msg("metrics enabled")
	}

	d := &channel.WebSocketDialer{URL: cfg.URL, Origin: cfg.Origin}
	m, err := channel.NewManager(d, src, newEventLogger(log), opts...)
	if err != nil {
		log.Error().Err(err).Msg("configure channel")
		return 2
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	log.Info().Str("version", cmdutil.Version(version, commit)).Str("url", cfg.URL).Msg("mediactl started")
	go func() {
		if runConsole(ctx, stdin, m, log) {
			cancel()
		}
	}()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("channel stopped")
		return 1
	}
	return 0
}
