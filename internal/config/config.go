// Package config loads netplay configuration using viper.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/appnet-org/netplay/pkg/input"
	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/packet"
	"github.com/appnet-org/netplay/pkg/session"
	"github.com/appnet-org/netplay/pkg/transport"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. NETPLAY_SESSION_LOCAL_PORT.
const EnvPrefix = "NETPLAY"

// maxUDPPayload is the largest IPv4 UDP payload.
const maxUDPPayload = 65507

// Config is the top-level configuration.
type Config struct {
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Play    PlayConfig    `mapstructure:"play" yaml:"play"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// SessionConfig configures the endpoint and protocol.
type SessionConfig struct {
	Bind          string        `mapstructure:"bind" yaml:"bind"` // empty = all interfaces
	LocalPort     uint16        `mapstructure:"local_port" yaml:"local_port"`
	Remote        string        `mapstructure:"remote" yaml:"remote"` // host:port, host may be a name
	SendInterval  time.Duration `mapstructure:"send_interval" yaml:"send_interval"`
	ResponseNonce uint32        `mapstructure:"response_nonce" yaml:"response_nonce"`
	DatagramSize  int           `mapstructure:"datagram_size" yaml:"datagram_size"`
	TOS           int           `mapstructure:"tos" yaml:"tos"`
	PerTickInput  bool          `mapstructure:"per_tick_input" yaml:"per_tick_input"`
	FilterPeer    bool          `mapstructure:"filter_peer" yaml:"filter_peer"`
	Balancer      string        `mapstructure:"balancer" yaml:"balancer"` // first | random
}

// PlayConfig configures the headless tick loop.
type PlayConfig struct {
	Tick         time.Duration `mapstructure:"tick" yaml:"tick"`
	Driver       string        `mapstructure:"driver" yaml:"driver"` // idle | scripted
	Seed         uint32        `mapstructure:"seed" yaml:"seed"`     // 0 = time-derived
	ConnectRetry time.Duration `mapstructure:"connect_retry" yaml:"connect_retry"`
	Duration     time.Duration `mapstructure:"duration" yaml:"duration"` // 0 = until interrupted
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string        `mapstructure:"level" yaml:"level"`
	Format string        `mapstructure:"format" yaml:"format"`
	File   LogFileConfig `mapstructure:"file" yaml:"file"`
}

// LogFileConfig configures the rotated log file.
type LogFileConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Load reads configuration from path, applying defaults and NETPLAY_*
// environment overrides. An empty path uses defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := session.DefaultConfig()

	v.SetDefault("session.bind", "")
	v.SetDefault("session.local_port", def.Local.Port)
	v.SetDefault("session.remote", def.Peer.String())
	v.SetDefault("session.send_interval", def.SendInterval)
	v.SetDefault("session.response_nonce", def.ResponseNonce)
	v.SetDefault("session.datagram_size", def.DatagramSize)
	v.SetDefault("session.tos", transport.DefaultTOS)
	v.SetDefault("session.per_tick_input", false)
	v.SetDefault("session.filter_peer", def.FilterPeer)
	v.SetDefault("session.balancer", "first")

	v.SetDefault("play.tick", 16*time.Millisecond)
	v.SetDefault("play.driver", "idle")
	v.SetDefault("play.seed", 0)
	v.SetDefault("play.connect_retry", time.Second)
	v.SetDefault("play.duration", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)
}

// Validate checks the configuration for values the session cannot run with.
func (cfg *Config) Validate() error {
	if cfg.Session.Bind != "" {
		if _, err := transport.ParseAddress(net.JoinHostPort(cfg.Session.Bind, "0")); err != nil {
			return fmt.Errorf("invalid session.bind: %w", err)
		}
	}
	if _, _, err := net.SplitHostPort(cfg.Session.Remote); err != nil {
		return fmt.Errorf("invalid session.remote %q: %w", cfg.Session.Remote, err)
	}
	if cfg.Session.SendInterval <= 0 {
		return fmt.Errorf("session.send_interval must be positive, got %s", cfg.Session.SendInterval)
	}

	minSize := packet.SizeOf(packet.NewInputBatch(0, [input.BatchSize]input.Sample{}))
	if cfg.Session.DatagramSize < minSize || cfg.Session.DatagramSize > maxUDPPayload {
		return fmt.Errorf("session.datagram_size must be in [%d, %d], got %d",
			minSize, maxUDPPayload, cfg.Session.DatagramSize)
	}
	if cfg.Session.TOS < 0 || cfg.Session.TOS > 0xff {
		return fmt.Errorf("session.tos must fit in a byte, got %d", cfg.Session.TOS)
	}
	switch cfg.Session.Balancer {
	case "first", "random":
	default:
		return fmt.Errorf("invalid session.balancer: %s (must be first/random)", cfg.Session.Balancer)
	}

	if cfg.Play.Tick <= 0 {
		return fmt.Errorf("play.tick must be positive, got %s", cfg.Play.Tick)
	}
	switch cfg.Play.Driver {
	case "idle", "scripted":
	default:
		return fmt.Errorf("invalid play.driver: %s (must be idle/scripted)", cfg.Play.Driver)
	}
	if cfg.Play.ConnectRetry < 0 || cfg.Play.Duration < 0 {
		return fmt.Errorf("play.connect_retry and play.duration must not be negative")
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json/console)", cfg.Log.Format)
	}
	return nil
}

// LocalAddress returns the bind address for the endpoint.
func (cfg *Config) LocalAddress() (transport.Address, error) {
	host := cfg.Session.Bind
	if host == "" {
		return transport.Address{Port: cfg.Session.LocalPort}, nil
	}
	return transport.ParseAddress(net.JoinHostPort(host, strconv.Itoa(int(cfg.Session.LocalPort))))
}

// SessionConfig builds the session parameters for a resolved peer.
func (cfg *Config) SessionConfig(local, peer transport.Address) session.Config {
	return session.Config{
		Local:         local,
		Peer:          peer,
		SendInterval:  cfg.Session.SendInterval,
		ResponseNonce: cfg.Session.ResponseNonce,
		DatagramSize:  cfg.Session.DatagramSize,
		PerTickInput:  cfg.Session.PerTickInput,
		FilterPeer:    cfg.Session.FilterPeer,
	}
}

// Logging converts the log section for logging.Init.
func (cfg *Config) Logging() *logging.Config {
	return &logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File.Path,
		MaxSizeMB:  cfg.Log.File.MaxSizeMB,
		MaxBackups: cfg.Log.File.MaxBackups,
		MaxAgeDays: cfg.Log.File.MaxAgeDays,
		Compress:   cfg.Log.File.Compress,
	}
}

// YAML renders the effective configuration.
func (cfg *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}
