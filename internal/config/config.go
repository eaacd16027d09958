// Package config loads server settings from defaults, an optional YAML file
// and the environment, in increasing priority.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"expense-manager/internal/logger"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// MinSecretLength is the shortest accepted SESSION_SECRET, in bytes.
const MinSecretLength = 32

// Config holds every server setting.
type Config struct {
	Port string `koanf:"port"`

	DBDriver    string `koanf:"db_driver"`
	DBPath      string `koanf:"db_path"`
	DatabaseURL string `koanf:"database_url"`

	SessionSecret   string        `koanf:"session_secret"`
	SessionDuration time.Duration `koanf:"session_duration"`
	SecureCookie    bool          `koanf:"secure_cookie"`

	TemplateDir string `koanf:"template_dir"`
	StaticDir   string `koanf:"static_dir"`

	LogLevel       string `koanf:"log_level"`
	LogDevelopment bool   `koanf:"log_development"`

	AdminUser     string `koanf:"admin_user"`
	AdminPassword string `koanf:"admin_password"`
}

var defaults = map[string]any{
	"port":             "8080",
	"db_driver":        "sqlite",
	"db_path":          "expenses.db",
	"session_duration": "720h",
	"secure_cookie":    false,
	"template_dir":     "web/templates",
	"static_dir":       "web/static",
	"log_level":        "info",
	"log_development":  false,
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	configFile string
	dotenv     []string
}

// WithConfigFile reads a YAML file between defaults and environment. It
// overrides CONFIG_FILE.
func WithConfigFile(path string) Option {
	return func(l *loader) {
		l.configFile = path
	}
}

// WithDotenv names the .env files to load; by default ".env" is tried.
// Variables already set in the environment are never overwritten.
func WithDotenv(paths ...string) Option {
	return func(l *loader) {
		l.dotenv = paths
	}
}

// Load builds a Config. The result is not validated; call Validate.
func Load(opts ...Option) (*Config, error) {
	l := &loader{dotenv: []string{".env"}}
	for _, opt := range opts {
		opt(l)
	}

	for _, path := range l.dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(mapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := l.configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Only known keys with non-empty values are taken from the environment.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		key = strings.ToLower(key)
		if _, ok := knownKeys[key]; !ok || value == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

var knownKeys = map[string]struct{}{
	"port": {}, "db_driver": {}, "db_path": {}, "database_url": {},
	"session_secret": {}, "session_duration": {}, "secure_cookie": {},
	"template_dir": {}, "static_dir": {}, "log_level": {}, "log_development": {},
	"admin_user": {}, "admin_password": {},
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, "DB_PATH cannot be empty when using the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using the postgres driver")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid DB_DRIVER '%s': must be one of [sqlite postgres]", c.DBDriver))
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < MinSecretLength {
		errs = append(errs, fmt.Sprintf("SESSION_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.SessionDuration < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid SESSION_DURATION %v: must be at least 1 minute", c.SessionDuration))
	}

	if _, err := logger.ParseLevel(logger.LogLevel(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOG_LEVEL: %v", err))
	}

	if (c.AdminUser == "") != (c.AdminPassword == "") {
		errs = append(errs, "ADMIN_USER and ADMIN_PASSWORD must be set together")
	}

	if c.TemplateDir == "" {
		errs = append(errs, "TEMPLATE_DIR cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// DSN returns the data source for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// SigningKey returns the session signing key. Without SESSION_SECRET a random
// key is generated and generated is true; sessions then end on restart.
func (c *Config) SigningKey() (key []byte, generated bool, err error) {
	if c.SessionSecret != "" {
		return []byte(c.SessionSecret), false, nil
	}
	key = make([]byte, MinSecretLength)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate session key: %w", err)
	}
	return key, true, nil
}
