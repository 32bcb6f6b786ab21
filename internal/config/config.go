package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	Environment string
	Port        string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CycleCacheTTL time.Duration

	NATSURL string

	JWTSecret      string
	AllowedOrigins []string

	EscalationInterval time.Duration
	RemindAfter        time.Duration
	EscalateAfter      time.Duration
}

// Load reads configuration from the environment, applying development
// defaults. The escalation SLAs default to 3 and 6 days.
func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),

		DatabaseURL: databaseURL(),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CycleCacheTTL: getEnvDuration("CYCLE_CACHE_TTL", 5*time.Minute),

		NATSURL: getEnv("NATS_URL", ""),

		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),

		EscalationInterval: getEnvDuration("ESCALATION_INTERVAL", time.Hour),
		RemindAfter:        getEnvDuration("ESCALATION_REMIND_AFTER", 72*time.Hour),
		EscalateAfter:      getEnvDuration("ESCALATION_ESCALATE_AFTER", 144*time.Hour),
	}
}

// databaseURL prefers a full DATABASE_URL and otherwise assembles one from
// the discrete DB_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "kpi_service"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

// InitDB opens the Postgres connection with gorm.
func InitDB(cfg *Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.Environment == "development" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(getEnvInt("DB_MAX_OPEN_CONNS", 25))
	sqlDB.SetMaxIdleConns(getEnvInt("DB_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute))

	return db, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
