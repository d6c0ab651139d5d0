// Package config loads binary configuration: defaults, then a TOML file, then
// MEDIACTL_* environment variables (optionally seeded from a .env file).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/floegence/mediactl/internal/defaults"
)

// Logging is shared by both binaries.
type Logging struct {
	Level string
	JSON  bool
}

// Client configures cmd/mediactl.
type Client struct {
	URL    string
	Origin string

	// PSK is an inline base64 key; PSKFile, when set, takes precedence and is watched.
	PSK         string
	PSKFile     string
	PSKDebounce time.Duration

	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	HeartbeatIdle    time.Duration // 0 derives it from LivenessTimeout
	LivenessTimeout  time.Duration
	RetryDelay       time.Duration

	MetricsAddr string
	Log         Logging
}

// Host configures cmd/mediactl-hostsim.
type Host struct {
	Listen string

	PSK     string
	PSKFile string

	AllowedOrigins []string
	AllowNoOrigin  bool

	HandshakeTimeout time.Duration
	IdleHeartbeat    time.Duration
	HeartbeatReply   time.Duration

	MetricsAddr string
	Log         Logging
}

func DefaultClient() Client {
	return Client{
		PSKDebounce:      defaults.PSKDebounce,
		ConnectTimeout:   defaults.ConnectTimeout,
		HandshakeTimeout: defaults.HandshakeTimeout,
		LivenessTimeout:  defaults.LivenessTimeout,
		RetryDelay:       defaults.RetryDelay,
		Log:              Logging{Level: "info"},
	}
}

func DefaultHost() Host {
	return Host{
		Listen:           "127.0.0.1:5000",
		AllowNoOrigin:    true,
		HandshakeTimeout: defaults.HostHandshakeTimeout,
		IdleHeartbeat:    defaults.HostIdleHeartbeat,
		HeartbeatReply:   defaults.HostHeartbeatReply,
		Log:              Logging{Level: "info"},
	}
}

type logFile struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

type clientFile struct {
	URL              string  `toml:"url"`
	Origin           string  `toml:"origin"`
	PSK              string  `toml:"psk"`
	PSKFile          string  `toml:"psk_file"`
	PSKDebounce      string  `toml:"psk_debounce"`
	ConnectTimeout   string  `toml:"connect_timeout"`
	HandshakeTimeout string  `toml:"handshake_timeout"`
	HeartbeatIdle    string  `toml:"heartbeat_idle"`
	LivenessTimeout  string  `toml:"liveness_timeout"`
	RetryDelay       string  `toml:"retry_delay"`
	MetricsAddr      string  `toml:"metrics_addr"`
	Log              logFile `toml:"log"`
}

type hostFile struct {
	Listen           string   `toml:"listen"`
	PSK              string   `toml:"psk"`
	PSKFile          string   `toml:"psk_file"`
	AllowedOrigins   []string `toml:"allowed_origins"`
	AllowNoOrigin    bool     `toml:"allow_no_origin"`
	HandshakeTimeout string   `toml:"handshake_timeout"`
	IdleHeartbeat    string   `toml:"idle_heartbeat"`
	HeartbeatReply   string   `toml:"heartbeat_reply"`
	MetricsAddr      string   `toml:"metrics_addr"`
	Log              logFile  `toml:"log"`
}

// overlay copies the TOML keys that are present in meta onto the defaults.
type overlay struct {
	meta toml.MetaData
	err  error
}

func (o *overlay) str(key string, src string, dst *string) {
	if o.meta.IsDefined(strings.Split(key, ".")...) {
		*dst = strings.TrimSpace(src)
	}
}

func (o *overlay) dur(key string, src string, dst *time.Duration) {
	if o.err != nil || !o.meta.IsDefined(key) {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(src))
	if err != nil {
		o.err = fmt.Errorf("parse %s: %w", key, err)
		return
	}
	*dst = d
}

func (o *overlay) log(src logFile, dst *Logging) {
	o.str("log.level", src.Level, &dst.Level)
	if o.meta.IsDefined("log", "json") {
		dst.JSON = src.JSON
	}
}

// LoadClient builds the client configuration. An empty path skips the file.
// Overrides (typically command-line flags) run after the environment and before validation.
func LoadClient(path string, overrides ...func(*Client)) (Client, error) {
	cfg := DefaultClient()
	if path != "" {
		var raw clientFile
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Client{}, fmt.Errorf("load client config: %w", err)
		}
		o := &overlay{meta: meta}
		o.str("url", raw.URL, &cfg.URL)
		o.str("origin", raw.Origin, &cfg.Origin)
		o.str("psk", raw.PSK, &cfg.PSK)
		o.str("psk_file", raw.PSKFile, &cfg.PSKFile)
		o.dur("psk_debounce", raw.PSKDebounce, &cfg.PSKDebounce)
		o.dur("connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout)
		o.dur("handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout)
		o.dur("heartbeat_idle", raw.HeartbeatIdle, &cfg.HeartbeatIdle)
		o.dur("liveness_timeout", raw.LivenessTimeout, &cfg.LivenessTimeout)
		o.dur("retry_delay", raw.RetryDelay, &cfg.RetryDelay)
		o.str("metrics_addr", raw.MetricsAddr, &cfg.MetricsAddr)
		o.log(raw.Log, &cfg.Log)
		if o.err != nil {
			return Client{}, o.err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Client{}, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	return cfg, cfg.Validate()
}

func (c *Client) applyEnv() error {
	envString("URL", &c.URL)
	envString("ORIGIN", &c.Origin)
	envString("PSK", &c.PSK)
	envString("PSK_FILE", &c.PSKFile)
	envString("METRICS_ADDR", &c.MetricsAddr)
	envString("LOG_LEVEL", &c.Log.Level)
	for key, dst := range map[string]*time.Duration{
		"PSK_DEBOUNCE":      &c.PSKDebounce,
		"CONNECT_TIMEOUT":   &c.ConnectTimeout,
		"HANDSHAKE_TIMEOUT": &c.HandshakeTimeout,
		"HEARTBEAT_IDLE":    &c.HeartbeatIdle,
		"LIVENESS_TIMEOUT":  &c.LivenessTimeout,
		"RETRY_DELAY":       &c.RetryDelay,
	} {
		if err := envDuration(key, dst); err != nil {
			return err
		}
	}
	return envBool("LOG_JSON", &c.Log.JSON)
}

// Validate checks the values the channel cannot default.
func (c Client) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("missing url")
	}
	if c.LivenessTimeout <= 0 {
		return fmt.Errorf("liveness_timeout must be > 0")
	}
	if c.HeartbeatIdle < 0 || (c.HeartbeatIdle > 0 && c.HeartbeatIdle >= c.LivenessTimeout) {
		return fmt.Errorf("heartbeat_idle must be shorter than liveness_timeout")
	}
	if c.RetryDelay < 0 || c.ConnectTimeout < 0 || c.HandshakeTimeout < 0 || c.PSKDebounce < 0 {
		return fmt.Errorf("durations must be >= 0")
	}
	return nil
}

// LoadHost builds the host simulator configuration. An empty path skips the file.
func LoadHost(path string, overrides ...func(*Host)) (Host, error) {
	cfg := DefaultHost()
	if path != "" {
		var raw hostFile
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Host{}, fmt.Errorf("load host config: %w", err)
		}
		o := &overlay{meta: meta}
		o.str("listen", raw.Listen, &cfg.Listen)
		o.str("psk", raw.PSK, &cfg.PSK)
		o.str("psk_file", raw.PSKFile, &cfg.PSKFile)
		if meta.IsDefined("allowed_origins") {
			cfg.AllowedOrigins = splitCSV(strings.Join(raw.AllowedOrigins, ","))
		}
		if meta.IsDefined("allow_no_origin") {
			cfg.AllowNoOrigin = raw.AllowNoOrigin
		}
		o.dur("handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout)
		o.dur("idle_heartbeat", raw.IdleHeartbeat, &cfg.IdleHeartbeat)
		o.dur("heartbeat_reply", raw.HeartbeatReply, &cfg.HeartbeatReply)
		o.str("metrics_addr", raw.MetricsAddr, &cfg.MetricsAddr)
		o.log(raw.Log, &cfg.Log)
		if o.err != nil {
			return Host{}, o.err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Host{}, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	return cfg, cfg.Validate()
}

func (h *Host) applyEnv() error {
	envString("LISTEN", &h.Listen)
	envString("PSK", &h.PSK)
	envString("PSK_FILE", &h.PSKFile)
	envCSV("ALLOWED_ORIGINS", &h.AllowedOrigins)
	envString("METRICS_ADDR", &h.MetricsAddr)
	envString("LOG_LEVEL", &h.Log.Level)
	if err := envBool("ALLOW_NO_ORIGIN", &h.AllowNoOrigin); err != nil {
		return err
	}
	if err := envDuration("HANDSHAKE_TIMEOUT", &h.HandshakeTimeout); err != nil {
		return err
	}
	if err := envDuration("IDLE_HEARTBEAT", &h.IdleHeartbeat); err != nil {
		return err
	}
	if err := envDuration("HEARTBEAT_REPLY", &h.HeartbeatReply); err != nil {
		return err
	}
	return envBool("LOG_JSON", &h.Log.JSON)
}

func (h Host) Validate() error {
	if strings.TrimSpace(h.Listen) == "" {
		return fmt.Errorf("missing listen address")
	}
	if strings.TrimSpace(h.PSK) == "" && strings.TrimSpace(h.PSKFile) == "" {
		return fmt.Errorf("missing psk or psk_file")
	}
	if h.IdleHeartbeat <= 0 || h.HeartbeatReply <= 0 {
		return fmt.Errorf("idle_heartbeat and heartbeat_reply must be > 0")
	}
	return nil
}
