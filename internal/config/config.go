package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	Store             string
	DatabaseURL       string
	DBMaxConns        int32
	ServerAddr        string
	EscrowAccount     string
	LedgerBaseURL     string
	LedgerToken       string
	LedgerTimeout     time.Duration
	PendingTTL        time.Duration
	PendingSweepEvery time.Duration
	AdminTokenHash    string
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "stakepot")
		pass := getenv("POSTGRES_PASSWORD", "stakepot_pass")
		db := getenv("POSTGRES_DB", "stakepot")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	cfg := &Config{
		Store:             getenv("STORE", "postgres"),
		DatabaseURL:       dsn,
		DBMaxConns:        parseInt32(getenv("DB_MAX_CONNS", "8"), 8),
		ServerAddr:        getenv("SERVER_ADDR", "0.0.0.0:8080"),
		EscrowAccount:     getenv("ESCROW_ACCOUNT", "escrow"),
		LedgerBaseURL:     getenv("LEDGER_BASE_URL", "http://localhost:9090"),
		LedgerToken:       os.Getenv("LEDGER_TOKEN"),
		LedgerTimeout:     parseDuration(getenv("LEDGER_TIMEOUT", "15s"), 15*time.Second),
		PendingTTL:        parseDuration(getenv("PENDING_TTL", "5m"), 5*time.Minute),
		PendingSweepEvery: parseDuration(getenv("PENDING_SWEEP_INTERVAL", "1m"), time.Minute),
		AdminTokenHash:    os.Getenv("ADMIN_TOKEN_HASH"),
	}
	if cfg.Store != "postgres" && cfg.Store != "memory" {
		return nil, fmt.Errorf("STORE must be postgres or memory, got %q", cfg.Store)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt32(val string, def int32) int32 {
	n, err := strconv.ParseInt(val, 10, 32)
	if err != nil || n <= 0 {
		return def
	}
	return int32(n)
}
