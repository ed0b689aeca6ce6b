package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/archmap/archmap/internal/auth"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultCacheTTL        = 5 * time.Minute
	defaultMigrationsPath  = "file://db/migrations"
	defaultShutdownTimeout = 10 * time.Second
	defaultDBMaxConns      = 10
)

type Config struct {
	DatabaseURL string
	HTTPAddr    string
	MetricsAddr string
	// DiagramCacheTTL is zero when the read cache is disabled.
	DiagramCacheTTL    time.Duration
	TrustedAuthHeaders bool
	// AnonymousRole applies to requests without trusted identity headers.
	AnonymousRole   string
	MigrationsPath  string
	ShutdownTimeout time.Duration
	DBMaxConns      int32
	// RefreshInterval schedules RefreshAll inside serve. Zero disables it.
	RefreshInterval time.Duration
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		HTTPAddr:           getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:        strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		DiagramCacheTTL:    defaultCacheTTL,
		TrustedAuthHeaders: getenvBoolDefault("TRUSTED_AUTH_HEADERS", false),
		AnonymousRole:      auth.NormalizeRole(getenvDefault("ANONYMOUS_ROLE", auth.RoleViewer)),
		MigrationsPath:     getenvDefault("MIGRATIONS_PATH", defaultMigrationsPath),
		ShutdownTimeout:    defaultShutdownTimeout,
		DBMaxConns:         int32(getenvIntDefault("DB_MAX_CONNS", defaultDBMaxConns)),
	}

	if v := strings.TrimSpace(os.Getenv("DIAGRAM_CACHE_TTL")); v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return cfg, fmt.Errorf("DIAGRAM_CACHE_TTL: %w", err)
		}
		cfg.DiagramCacheTTL = d
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ShutdownTimeout = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("REFRESH_INTERVAL")); v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return cfg, fmt.Errorf("REFRESH_INTERVAL: %w", err)
		}
		cfg.RefreshInterval = d
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

// parseTTL accepts a non-negative Go duration or one of off/0 meaning zero.
func parseTTL(v string) (time.Duration, error) {
	switch strings.ToLower(v) {
	case "off", "disabled", "false", "0":
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
