package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	Env      string
	LogLevel string

	HTTPAddr             string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	StoreDriver  string
	DatabaseURL  string
	SeedFixtures bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret     string
	AdminUsername string
	AdminPassword string

	SimulatedLatency time.Duration

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAIRetries uint
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                  getenv("APP_ENV", "development"),
		LogLevel:             getenv("LOG_LEVEL", ""),
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		StoreDriver:          strings.ToLower(getenv("STORE_DRIVER", DriverMemory)),
		SeedFixtures:         getenv("SEED_FIXTURES", "true") == "true",
		RedisAddr:            getenv("REDIS_ADDR", ""),
		RedisPassword:        getenv("REDIS_PASSWORD", ""),
		AdminUsername:        getenv("ADMIN_USERNAME", "admin"),
		AdminPassword:        getenv("ADMIN_PASSWORD", "admin123"),
		OpenAIKey:            getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getenv("OPENAI_BASE_URL", ""),
		OpenAIModel:          getenv("OPENAI_MODEL", "gpt-4o-mini"),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		cfg.DatabaseURL = mustGetenv("DATABASE_URL")
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	db, err := strconv.Atoi(getenv("REDIS_DB", "0"))
	if err != nil {
		return cfg, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = db

	lat, err := time.ParseDuration(getenv("SIMULATED_LATENCY", "0s"))
	if err != nil {
		return cfg, fmt.Errorf("invalid SIMULATED_LATENCY: %w", err)
	}
	cfg.SimulatedLatency = lat

	retries, err := strconv.ParseUint(getenv("OPENAI_RETRIES", "2"), 10, 8)
	if err != nil {
		return cfg, fmt.Errorf("invalid OPENAI_RETRIES: %w", err)
	}
	cfg.OpenAIRetries = uint(retries)

	cfg.JWTSecret = mustGetenv("JWT_SECRET")
	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
