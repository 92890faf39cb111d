// Package config loads runtime settings from defaults, a .env file, an
// optional YAML file and environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/checkedin/internal/matching"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns URL when set, otherwise a libpq-compatible connection string
// built from the individual parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RulesConfig holds the tunable business rules.
type RulesConfig struct {
	MessageLimit    int           `yaml:"message_limit"`
	DefaultCapacity int           `yaml:"default_capacity"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// Config is the full application configuration.
type Config struct {
	Port           string         `yaml:"port"`
	Database       DatabaseConfig `yaml:"database"`
	RedisURL       string         `yaml:"redis_url"`
	JWTSecret      string         `yaml:"jwt_secret"`
	TokenTTL       time.Duration  `yaml:"token_ttl"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	WebDir         string         `yaml:"web_dir"`
	SessionPath    string         `yaml:"session_path"`
	LogLevel       string         `yaml:"log_level"`
	LogFormat      string         `yaml:"log_format"`
	Rules          RulesConfig    `yaml:"rules"`
}

// Default returns the local-development defaults.
func Default() Config {
	return Config{
		Port: "8080",
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "checkedin",
			SSLMode:  "disable",
		},
		TokenTTL:       12 * time.Hour,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		SessionPath:    defaultSessionPath(),
		LogLevel:       "info",
		LogFormat:      "text",
		Rules: RulesConfig{
			MessageLimit:    matching.MessageLimit,
			DefaultCapacity: matching.DefaultCapacity,
			RefreshInterval: 20 * time.Second,
		},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("config: could not read .env file")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at first use.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.Rules.MessageLimit <= 0 {
		return errors.New("rules.message_limit must be positive")
	}
	if c.Rules.DefaultCapacity <= 0 {
		return errors.New("rules.default_capacity must be positive")
	}
	if c.Rules.RefreshInterval <= 0 {
		return errors.New("rules.refresh_interval must be positive")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	return nil
}

// RequireJWTSecret reports an error when no signing secret is configured.
// Only the HTTP server needs one.
func (c Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to serve the API")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.WebDir = getEnv("WEB_DIR", cfg.WebDir)
	cfg.SessionPath = getEnv("SESSION_PATH", cfg.SessionPath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return err
	}
	if cfg.Rules.RefreshInterval, err = durationEnv("REFRESH_INTERVAL", cfg.Rules.RefreshInterval); err != nil {
		return err
	}
	if cfg.Rules.MessageLimit, err = intEnv("MESSAGE_LIMIT", cfg.Rules.MessageLimit); err != nil {
		return err
	}
	if cfg.Rules.DefaultCapacity, err = intEnv("DEFAULT_CAPACITY", cfg.Rules.DefaultCapacity); err != nil {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "checkedin-session.db"
	}
	return filepath.Join(home, ".checkedin", "session.db")
}
