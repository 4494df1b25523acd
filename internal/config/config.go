package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog source kinds.
const (
	SourceAPI      = "api"
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	OCR       OCRConfig       `yaml:"ocr"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CatalogConfig struct {
	Source   string         `yaml:"source"`
	APIURL   string         `yaml:"api_url"`
	APIToken string         `yaml:"api_token"`
	File     string         `yaml:"file"`
	Database DatabaseConfig `yaml:"database"`
	CacheDir string         `yaml:"cache_dir"`
	Refresh  string         `yaml:"refresh"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type MatcherConfig struct {
	Threshold   float64 `yaml:"threshold"`
	AliasesFile string  `yaml:"aliases_file"`
}

type OCRConfig struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	RateLimit float64       `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Tailscale: TailscaleConfig{
			Hostname: "wodocr",
			StateDir: "tsnet-state",
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Catalog: CatalogConfig{
			Source:   SourceAPI,
			Database: DatabaseConfig{Port: 5432},
			CacheDir: ".wodocr",
			Refresh:  "@every 30m",
		},
		Matcher: MatcherConfig{Threshold: 0.75},
		OCR: OCRConfig{
			RateLimit: 1,
			Timeout:   30 * time.Second,
		},
	}
}

// Load reads config from a YAML file on top of Defaults, then applies
// environment variable overrides. A missing file is not an error.
// Env vars use the prefix WODOCR_ and underscore-separated paths:
//
//	WODOCR_SERVER_HOST, WODOCR_SERVER_PORT, WODOCR_AUTH_API_KEY,
//	WODOCR_TAILSCALE_ENABLED, WODOCR_TAILSCALE_HOSTNAME,
//	WODOCR_LOG_LEVEL, WODOCR_LOG_FORMAT,
//	WODOCR_CATALOG_SOURCE, WODOCR_CATALOG_API_URL, WODOCR_CATALOG_API_TOKEN,
//	WODOCR_CATALOG_FILE, WODOCR_CATALOG_CACHE_DIR, WODOCR_CATALOG_REFRESH,
//	WODOCR_DB_HOST, WODOCR_DB_PORT, WODOCR_DB_NAME,
//	WODOCR_DB_USER, WODOCR_DB_PASSWORD, WODOCR_DB_SSLMODE,
//	WODOCR_MATCHER_THRESHOLD, WODOCR_MATCHER_ALIASES_FILE,
//	WODOCR_OCR_URL, WODOCR_OCR_API_KEY
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("WODOCR_SERVER_HOST", &cfg.Server.Host)
	num("WODOCR_SERVER_PORT", &cfg.Server.Port)
	str("WODOCR_AUTH_API_KEY", &cfg.Auth.APIKey)

	if v := os.Getenv("WODOCR_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("WODOCR_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)

	str("WODOCR_LOG_LEVEL", &cfg.Log.Level)
	str("WODOCR_LOG_FORMAT", &cfg.Log.Format)

	str("WODOCR_CATALOG_SOURCE", &cfg.Catalog.Source)
	str("WODOCR_CATALOG_API_URL", &cfg.Catalog.APIURL)
	str("WODOCR_CATALOG_API_TOKEN", &cfg.Catalog.APIToken)
	str("WODOCR_CATALOG_FILE", &cfg.Catalog.File)
	str("WODOCR_CATALOG_CACHE_DIR", &cfg.Catalog.CacheDir)
	str("WODOCR_CATALOG_REFRESH", &cfg.Catalog.Refresh)

	str("WODOCR_DB_HOST", &cfg.Catalog.Database.Host)
	num("WODOCR_DB_PORT", &cfg.Catalog.Database.Port)
	str("WODOCR_DB_NAME", &cfg.Catalog.Database.Name)
	str("WODOCR_DB_USER", &cfg.Catalog.Database.User)
	str("WODOCR_DB_PASSWORD", &cfg.Catalog.Database.Password)
	str("WODOCR_DB_SSLMODE", &cfg.Catalog.Database.SSLMode)

	if v := os.Getenv("WODOCR_MATCHER_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matcher.Threshold = f
		}
	}
	str("WODOCR_MATCHER_ALIASES_FILE", &cfg.Matcher.AliasesFile)

	str("WODOCR_OCR_URL", &cfg.OCR.URL)
	str("WODOCR_OCR_API_KEY", &cfg.OCR.APIKey)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Matcher.Threshold < 0 || c.Matcher.Threshold > 1 {
		return fmt.Errorf("matcher.threshold must be between 0 and 1, got %v", c.Matcher.Threshold)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	switch c.Catalog.Source {
	case SourceAPI:
		if c.Catalog.APIURL == "" {
			return fmt.Errorf("catalog.api_url is required for source %q", SourceAPI)
		}
	case SourcePostgres:
		if c.Catalog.Database.Host == "" {
			return fmt.Errorf("catalog.database.host is required for source %q", SourcePostgres)
		}
		if c.Catalog.Database.Name == "" {
			return fmt.Errorf("catalog.database.name is required for source %q", SourcePostgres)
		}
		if c.Catalog.Database.User == "" {
			return fmt.Errorf("catalog.database.user is required for source %q", SourcePostgres)
		}
	case SourceFile:
		if c.Catalog.File == "" {
			return fmt.Errorf("catalog.file is required for source %q", SourceFile)
		}
	default:
		return fmt.Errorf("catalog.source must be one of api, postgres, file; got %q", c.Catalog.Source)
	}

	if c.OCR.RateLimit < 0 {
		return fmt.Errorf("ocr.rate_limit must not be negative")
	}
	return nil
}

// NewLogger builds the process logger from the log section.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}
