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
	IndexMemory   = "memory"
	IndexFile     = "file"
	IndexSQLite   = "sqlite"
	IndexPostgres = "postgres"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	LogLevel                string
	LogFormat               string
	PermittedRoots          []string
	WorkingDir              string
	BatchWorkers            int
	RenameMaxAttempts       int
	CopyBufferSize          int
	VerifyCopies            bool
	SniffBytes              int
	TrashBackend            string
	TrashRoot               string
	IndexBackend            string
	TrashIndexFile          string
	SQLitePath              string
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	AuditLogFile            string
	JWTSecret               string
	CORSOrigins             []string
	RateLimitRPM            int
	HeavyRateLimitRPM       int
	JobQueueSize            int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 0),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 5*time.Minute),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "pretty"),
		PermittedRoots:          splitCSV(os.Getenv("PERMITTED_ROOTS")),
		WorkingDir:              getEnv("WORKING_DIR", "."),
		BatchWorkers:            getInt("BATCH_WORKERS", 4),
		RenameMaxAttempts:       getInt("RENAME_MAX_ATTEMPTS", 100),
		CopyBufferSize:          getInt("COPY_BUFFER_SIZE", 1<<20),
		VerifyCopies:            getBool("VERIFY_COPIES", false),
		SniffBytes:              getInt("SNIFF_BYTES", 512),
		TrashBackend:            strings.ToLower(getEnv("TRASH_BACKEND", "auto")),
		TrashRoot:               getEnv("TRASH_ROOT", "./state/trash"),
		IndexBackend:            strings.ToLower(getEnv("INDEX_BACKEND", IndexFile)),
		TrashIndexFile:          getEnv("TRASH_INDEX_FILE", "./state/trash-index.json"),
		SQLitePath:              getEnv("SQLITE_PATH", "./state/fileops.db"),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		AuditLogFile:            getEnv("AUDIT_LOG_FILE", "./state/audit.jsonl"),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		HeavyRateLimitRPM:       getInt("HEAVY_RATE_LIMIT_RPM", 60),
		JobQueueSize:            getInt("JOB_QUEUE_SIZE", 256),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}

	if c.RenameMaxAttempts <= 0 {
		return fmt.Errorf("RENAME_MAX_ATTEMPTS must be positive")
	}

	if c.CopyBufferSize < 4096 {
		return fmt.Errorf("COPY_BUFFER_SIZE must be at least 4096")
	}

	if c.SniffBytes <= 0 {
		return fmt.Errorf("SNIFF_BYTES must be positive")
	}

	switch c.TrashBackend {
	case "auto", "dir", "freedesktop":
	default:
		return fmt.Errorf("TRASH_BACKEND must be one of auto|dir|freedesktop, got %q", c.TrashBackend)
	}

	if c.TrashBackend != "freedesktop" && strings.TrimSpace(c.TrashRoot) == "" {
		return fmt.Errorf("TRASH_ROOT cannot be empty")
	}

	switch c.IndexBackend {
	case IndexMemory:
	case IndexFile:
		if strings.TrimSpace(c.TrashIndexFile) == "" {
			return fmt.Errorf("TRASH_INDEX_FILE cannot be empty")
		}
	case IndexSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty")
		}
	case IndexPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for INDEX_BACKEND=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are inconsistent")
		}
	default:
		return fmt.Errorf("INDEX_BACKEND must be one of memory|file|sqlite|postgres, got %q", c.IndexBackend)
	}

	if strings.TrimSpace(c.AuditLogFile) == "" {
		return fmt.Errorf("AUDIT_LOG_FILE cannot be empty")
	}

	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
