package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`
	BoltPath    string `koanf:"bolt_path"`

	JWTSecretKey string        `koanf:"jwt_secret_key"`
	SessionTTL   time.Duration `koanf:"session_ttl"`

	ServerPort         int      `koanf:"server_port"`
	LogLevel           string   `koanf:"log_level"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Лимит попыток входа/регистрации на один IP (запросов в секунду).
	AuthRateLimit float64 `koanf:"auth_rate_limit"`
	AuthRateBurst int     `koanf:"auth_rate_burst"`

	R2AccountID       string `koanf:"r2_account_id"`
	R2AccessKeyID     string `koanf:"r2_access_key_id"`
	R2SecretAccessKey string `koanf:"r2_secret_access_key"`
	R2BucketName      string `koanf:"r2_bucket_name"`
	R2PublicBaseURL   string `koanf:"r2_public_base_url"`
}

// keys lists the environment variables (lowercased) the loader picks up.
var keys = map[string]bool{
	"store_driver":         true,
	"database_url":         true,
	"bolt_path":            true,
	"jwt_secret_key":       true,
	"session_ttl":          true,
	"server_port":          true,
	"log_level":            true,
	"cors_allowed_origins": true,
	"auth_rate_limit":      true,
	"auth_rate_burst":      true,
	"r2_account_id":        true,
	"r2_access_key_id":     true,
	"r2_secret_access_key": true,
	"r2_bucket_name":       true,
	"r2_public_base_url":   true,
}

// listKeys are comma-separated in the environment.
var listKeys = map[string]bool{
	"cors_allowed_origins": true,
}

func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func defaults() Config {
	return Config{
		StoreDriver:   StoreDriverPostgres,
		SessionTTL:    24 * time.Hour,
		ServerPort:    8080,
		LogLevel:      "info",
		AuthRateLimit: 1,
		AuthRateBurst: 5,
	}
}

// Load собирает конфигурацию: значения по умолчанию, затем YAML-файл из
// CONFIG_FILE (если задан), затем переменные окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(key)
		if !keys[key] {
			return "", nil
		}
		if listKeys[key] {
			items := splitList(value)
			if len(items) == 0 {
				return "", nil
			}
			return key, items
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecretKey == "" {
		return errors.New("JWT_SECRET_KEY environment variable is not set")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}
	case StoreDriverBolt:
		if c.BoltPath == "" {
			return errors.New("BOLT_PATH environment variable is not set")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// R2Enabled reports whether logo uploads can be served.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
