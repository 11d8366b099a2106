// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// Supported browser drivers.
const (
	DriverCDP        = "cdp"
	DriverPlaywright = "playwright"
)

// Supported profile store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Fill    FillConfig    `mapstructure:"fill" yaml:"fill"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser the form is filled in.
type BrowserConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	// RemoteURL attaches to an already running Chrome (its DevTools websocket
	// or http://host:port endpoint) instead of launching one. Only the cdp
	// driver supports it.
	RemoteURL         string         `mapstructure:"remote_url" yaml:"remote_url"`
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir       string         `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration  `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	KeepOpen          bool           `mapstructure:"keep_open" yaml:"keep_open"`
	Humanoid          HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// StoreConfig selects and configures the profile persistence backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend" yaml:"backend"`
	Key      string         `mapstructure:"key" yaml:"key"`
	File     FileConfig     `mapstructure:"file" yaml:"file"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
}

// FileConfig configures the local JSON storage file.
type FileConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig holds the connection details for a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN renders the connection string pgx expects.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// RedisConfig holds the connection details for a Redis server.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// FillConfig tunes the form filling run.
type FillConfig struct {
	// Layout names a built-in field layout; LayoutFile, when set, wins.
	Layout     string `mapstructure:"layout" yaml:"layout"`
	LayoutFile string `mapstructure:"layout_file" yaml:"layout_file"`
	// Injection overrides the layout's event sequence ("keystroke" or "direct").
	Injection      string        `mapstructure:"injection" yaml:"injection"`
	OverlayTimeout time.Duration `mapstructure:"overlay_timeout" yaml:"overlay_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	AllowedHosts   []string      `mapstructure:"allowed_hosts" yaml:"allowed_hosts"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vfs-autofill")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.driver", DriverCDP)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.post_load_wait", "2s")
	v.SetDefault("browser.keep_open", true)
	setHumanoidDefaults(v)

	// -- Store --
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.key", schemas.ProfileStorageKey)
	v.SetDefault("store.file.path", "~/.vfs-autofill/storage.json")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "") // Should be set via env var
	v.SetDefault("store.postgres.dbname", "vfs_autofill")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)

	// -- Fill --
	v.SetDefault("fill.layout", "vfs-content")
	v.SetDefault("fill.layout_file", "")
	v.SetDefault("fill.injection", "")
	v.SetDefault("fill.overlay_timeout", "1500ms")
	v.SetDefault("fill.poll_interval", "50ms")
	v.SetDefault("fill.allowed_hosts", []string{"vfsglobal.com"})
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("store.postgres.password", "VFSFILL_PG_PASSWORD")
	v.BindEnv("store.redis.password", "VFSFILL_REDIS_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Store.Backend == BackendPostgres && cfg.Store.Postgres.Password == "" {
		cfg.Store.Postgres.Password = os.Getenv("VFSFILL_PG_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}
	if err := c.Fill.Validate(); err != nil {
		return fmt.Errorf("fill configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch strings.ToLower(b.Driver) {
	case DriverCDP:
	case DriverPlaywright:
		if b.RemoteURL != "" {
			return fmt.Errorf("remote_url is only supported by the %q driver", DriverCDP)
		}
	default:
		return fmt.Errorf("unknown driver %q (want %q or %q)", b.Driver, DriverCDP, DriverPlaywright)
	}
	if b.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	return b.Humanoid.Validate()
}

// Validate checks the store settings for the selected backend only.
func (s *StoreConfig) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("store.key must not be empty")
	}
	switch s.Backend {
	case BackendFile:
		if s.File.Path == "" {
			return fmt.Errorf("store.file.path is required for the file backend")
		}
	case BackendPostgres:
		if s.Postgres.Host == "" || s.Postgres.DBName == "" {
			return fmt.Errorf("store.postgres.host and store.postgres.dbname are required")
		}
		if s.Postgres.Port <= 0 {
			return fmt.Errorf("store.postgres.port must be a positive integer")
		}
	case BackendRedis:
		if s.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", s.Backend)
	}
	return nil
}

// Validate checks the fill timings.
func (f *FillConfig) Validate() error {
	if f.Layout == "" && f.LayoutFile == "" {
		return fmt.Errorf("either fill.layout or fill.layout_file must be set")
	}
	switch f.Injection {
	case "", "keystroke", "direct":
	default:
		return fmt.Errorf("fill.injection must be \"keystroke\" or \"direct\", got %q", f.Injection)
	}
	if f.OverlayTimeout <= 0 {
		return fmt.Errorf("fill.overlay_timeout must be a positive duration")
	}
	if f.PollInterval <= 0 || f.PollInterval > f.OverlayTimeout {
		return fmt.Errorf("fill.poll_interval must be positive and no longer than fill.overlay_timeout")
	}
	return nil
}
