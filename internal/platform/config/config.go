// Package config builds process-level configuration from the environment so
// main stays lean. Module-specific tunables (limit tables, windows) live in
// internal/ratelimit/config.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string // "development" enables the login guard bypass
	Redis       RedisConfig
	Postgres    PostgresConfig
}

// RedisConfig configures the primary counter store client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the durable fallback store handle.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// FromEnv builds a Server config from environment variables. A .env file in
// the working directory is honored when present; real environment variables
// win over it.
func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:        getEnv("GATEKEEPER_ADDR", ":8080"),
		Environment: getEnv("GATEKEEPER_ENV", "production"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 200*time.Millisecond),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 200*time.Millisecond),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("PG_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("PG_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("PG_CONN_MAX_LIFETIME", 30*time.Minute),
		},
	}
}

// IsDevelopment reports whether the process runs with development affordances
// (login guard bypass for local traffic).
func (s Server) IsDevelopment() bool {
	return s.Environment == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
