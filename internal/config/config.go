package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CatalogSourceHTTP  = "http"
	CatalogSourceMySQL = "mysql"
)

type Config struct {
	AppEnv   string
	LogLevel string

	// An address set to the empty string disables that server.
	HTTPAddr string
	GRPCAddr string

	CatalogSource   string
	CatalogBaseURL  string
	CatalogTimeout  time.Duration
	CatalogCacheTTL time.Duration

	MySQLDSN  string
	RedisAddr string // empty disables caching and snapshot fan-out
}

// Load reads the environment after merging envFile (if it exists) into it.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPAddr:        lookupEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:        lookupEnv("GRPC_ADDR", ":50051"),
		CatalogSource:   strings.ToLower(getEnv("CATALOG_SOURCE", CatalogSourceHTTP)),
		CatalogBaseURL:  getEnv("CATALOG_BASE_URL", "https://fakestoreapi.com"),
		CatalogTimeout:  getEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 15*time.Minute),
		MySQLDSN:        getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/minicart?parseTime=true"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.CatalogSource {
	case CatalogSourceHTTP, CatalogSourceMySQL:
	default:
		return fmt.Errorf("CATALOG_SOURCE must be %q or %q, got %q", CatalogSourceHTTP, CatalogSourceMySQL, c.CatalogSource)
	}
	if c.HTTPAddr == "" && c.GRPCAddr == "" {
		return errors.New("at least one of HTTP_ADDR or GRPC_ADDR is required")
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// lookupEnv keeps an explicitly empty value instead of falling back to def.
func lookupEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
