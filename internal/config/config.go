package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

type Config struct {
	Port           string `mapstructure:"PORT"`
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBTimeZone  string `mapstructure:"DB_TIMEZONE"`

	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int    `mapstructure:"REDIS_DB"`
	StorageKeyPrefix string `mapstructure:"STORAGE_KEY_PREFIX"`

	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	SessionTTL   time.Duration `mapstructure:"SESSION_TTL"`
	FallbackUser string        `mapstructure:"FALLBACK_USER"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"PORT":               "3000",
	"STORAGE_BACKEND":    BackendRemote,
	"DATABASE_URL":       "",
	"DB_HOST":            "localhost",
	"DB_USER":            "postgres",
	"DB_PASSWORD":        "",
	"DB_NAME":            "stock_resi",
	"DB_PORT":            "5432",
	"DB_TIMEZONE":        "UTC",
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"STORAGE_KEY_PREFIX": "stock-resi",
	"JWT_SECRET":         "your-super-secret-key-change-in-production",
	"SESSION_TTL":        "720h",
	"FALLBACK_USER":      "Anonymous",
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "json",
}

// Load reads .env (if present) and the environment. The storage backend is
// decided here once; nothing switches it later.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendRemote, BackendLocal:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendRemote, BackendLocal, c.StorageBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// DSN returns DATABASE_URL or a DSN assembled from the DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimeZone,
	)
}
