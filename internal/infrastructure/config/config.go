package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" toml:"server"`
	Remote       RemoteConfig       `yaml:"remote" toml:"remote"`
	Identity     IdentityConfig     `yaml:"identity" toml:"identity"`
	Load         LoadConfig         `yaml:"load" toml:"load"`
	Viewport     ViewportConfig     `yaml:"viewport" toml:"viewport"`
	Storage      StorageConfig      `yaml:"storage" toml:"storage"`
	Connectivity ConnectivityConfig `yaml:"connectivity" toml:"connectivity"`
	Logging      LogConfig          `yaml:"logging" toml:"logging"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`
}

// RemoteConfig describes the remote browser session endpoint.
type RemoteConfig struct {
	URL              string        `envconfig:"REMOTE_WS_URL" default:"ws://localhost:9001/ws" yaml:"url" toml:"url"`
	HandshakeTimeout time.Duration `envconfig:"REMOTE_HANDSHAKE_TIMEOUT" default:"10s" yaml:"handshake_timeout" toml:"handshake_timeout"`
	RedialMin        time.Duration `envconfig:"REMOTE_REDIAL_MIN" default:"1s" yaml:"redial_min" toml:"redial_min"`
	RedialMax        time.Duration `envconfig:"REMOTE_REDIAL_MAX" default:"30s" yaml:"redial_max" toml:"redial_max"`
	UserAgent        string        `envconfig:"REMOTE_USER_AGENT" default:"Mozilla/5.0 (BrowserSync) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" yaml:"user_agent" toml:"user_agent"`
}

// IdentityConfig is the project/spider pair that scopes cookies and
// interaction messages.
type IdentityConfig struct {
	Project string `envconfig:"PROJECT" yaml:"project" toml:"project"`
	Spider  string `envconfig:"SPIDER" yaml:"spider" toml:"spider"`
}

// LoadConfig tunes the load lifecycle and failure throttling.
type LoadConfig struct {
	WatchdogTimeout time.Duration `envconfig:"LOAD_WATCHDOG_TIMEOUT" default:"60s" yaml:"watchdog_timeout" toml:"watchdog_timeout"`
	FailureWindow   time.Duration `envconfig:"LOAD_FAILURE_WINDOW" default:"1h" yaml:"failure_window" toml:"failure_window"`
	SoftBlockAfter  int           `envconfig:"LOAD_SOFT_BLOCK_AFTER" default:"2" yaml:"soft_block_after" toml:"soft_block_after"`
	HardBlockAfter  int           `envconfig:"LOAD_HARD_BLOCK_AFTER" default:"3" yaml:"hard_block_after" toml:"hard_block_after"`
	ReadyTimeout    time.Duration `envconfig:"SURFACE_READY_TIMEOUT" default:"30s" yaml:"ready_timeout" toml:"ready_timeout"`
	ScrollThrottle  time.Duration `envconfig:"SCROLL_THROTTLE" default:"200ms" yaml:"scroll_throttle" toml:"scroll_throttle"`
}

// ViewportConfig is the size reported by the headless surface.
type ViewportConfig struct {
	Width  int `envconfig:"VIEWPORT_WIDTH" default:"1280" yaml:"width" toml:"width"`
	Height int `envconfig:"VIEWPORT_HEIGHT" default:"800" yaml:"height" toml:"height"`
}

// StorageConfig selects the persistent key-value backend.
type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"sqlite" yaml:"driver" toml:"driver"`
	Path   string `envconfig:"STORAGE_PATH" default:"/tmp/browsersync/state.db" yaml:"path" toml:"path"`
}

// ConnectivityConfig controls the online probe.
type ConnectivityConfig struct {
	Enabled  bool          `envconfig:"CONNECTIVITY_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
	ProbeURL string        `envconfig:"CONNECTIVITY_PROBE_URL" default:"https://www.google.com/generate_204" yaml:"probe_url" toml:"probe_url"`
	Interval time.Duration `envconfig:"CONNECTIVITY_INTERVAL" default:"15s" yaml:"interval" toml:"interval"`
	Timeout  time.Duration `envconfig:"CONNECTIVITY_TIMEOUT" default:"3s" yaml:"timeout" toml:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string   `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool     `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
	Outputs     []string `envconfig:"LOG_OUTPUT" default:"stdout" yaml:"outputs" toml:"outputs"`
}

// RateLimitConfig holds rate limiting configuration for the HTTP API.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads a YAML or TOML file on top of the defaults, then applies
// environment variables that are explicitly set. The environment wins.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := overlayEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayEnv applies only the variables present in the environment, so
// defaults from envconfig tags do not clobber file values.
func overlayEnv(cfg *Config) error {
	env, err := Load()
	if err != nil {
		return err
	}

	pick := func(dst *string, envVal, name string) {
		if _, ok := os.LookupEnv(name); ok {
			*dst = envVal
		}
	}
	pick(&cfg.Server.Port, env.Server.Port, "PORT")
	pick(&cfg.Server.Host, env.Server.Host, "HOST")
	pick(&cfg.Remote.URL, env.Remote.URL, "REMOTE_WS_URL")
	pick(&cfg.Remote.UserAgent, env.Remote.UserAgent, "REMOTE_USER_AGENT")
	pick(&cfg.Identity.Project, env.Identity.Project, "PROJECT")
	pick(&cfg.Identity.Spider, env.Identity.Spider, "SPIDER")
	pick(&cfg.Storage.Driver, env.Storage.Driver, "STORAGE_DRIVER")
	pick(&cfg.Storage.Path, env.Storage.Path, "STORAGE_PATH")
	pick(&cfg.Logging.Level, env.Logging.Level, "LOG_LEVEL")

	if _, ok := os.LookupEnv("LOG_DEV"); ok {
		cfg.Logging.Development = env.Logging.Development
	}
	if _, ok := os.LookupEnv("LOG_OUTPUT"); ok {
		cfg.Logging.Outputs = env.Logging.Outputs
	}
	if _, ok := os.LookupEnv("REMOTE_REDIAL_MIN"); ok {
		cfg.Remote.RedialMin = env.Remote.RedialMin
	}
	if _, ok := os.LookupEnv("REMOTE_REDIAL_MAX"); ok {
		cfg.Remote.RedialMax = env.Remote.RedialMax
	}
	if _, ok := os.LookupEnv("LOAD_WATCHDOG_TIMEOUT"); ok {
		cfg.Load.WatchdogTimeout = env.Load.WatchdogTimeout
	}
	if _, ok := os.LookupEnv("LOAD_FAILURE_WINDOW"); ok {
		cfg.Load.FailureWindow = env.Load.FailureWindow
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Remote: RemoteConfig{
			URL:              "ws://localhost:9001/ws",
			HandshakeTimeout: 10 * time.Second,
			RedialMin:        time.Second,
			RedialMax:        30 * time.Second,
			UserAgent:        "Mozilla/5.0 (BrowserSync) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Load: LoadConfig{
			WatchdogTimeout: 60 * time.Second,
			FailureWindow:   time.Hour,
			SoftBlockAfter:  2,
			HardBlockAfter:  3,
			ReadyTimeout:    30 * time.Second,
			ScrollThrottle:  200 * time.Millisecond,
		},
		Viewport: ViewportConfig{
			Width:  1280,
			Height: 800,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "/tmp/browsersync/state.db",
		},
		Connectivity: ConnectivityConfig{
			Enabled:  true,
			ProbeURL: "https://www.google.com/generate_204",
			Interval: 15 * time.Second,
			Timeout:  3 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			Outputs:     []string{"stdout"},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
