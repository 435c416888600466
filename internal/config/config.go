package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Port           string
	AllowedOrigins string
	APIKeys        []string

	// Store
	StoreDriver string // "sqlite" or "postgres"
	SQLitePath  string

	// PostgreSQL
	PostgresHost     string
	PostgresPort     int
	PostgresDatabase string
	PostgresUser     string
	PostgresPassword string

	// ClickHouse line audit
	ClickHouseEnabled  bool
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string

	// NATS events. Empty URL disables publishing.
	NATSURL           string
	NATSSubjectPrefix string

	// S3 report archive
	S3Enabled   bool
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3Region    string

	// Logging
	LogLevel string

	// Environment
	Environment string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "*"),
		APIKeys:            getListEnv("API_KEYS"),
		StoreDriver:        getEnv("STORE_DRIVER", "sqlite"),
		SQLitePath:         getEnv("SQLITE_PATH", "koabot.db"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getIntEnv("POSTGRES_PORT", 5432),
		PostgresDatabase:   getEnv("POSTGRES_DATABASE", "koabot"),
		PostgresUser:       getEnv("POSTGRES_USER", "koabot"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "koabot"),
		ClickHouseEnabled:  getBoolEnv("CLICKHOUSE_ENABLED", false),
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getIntEnv("CLICKHOUSE_PORT", 9000),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "koabot"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		NATSURL:            getEnv("NATS_URL", ""),
		NATSSubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "koabot"),
		S3Enabled:          getBoolEnv("S3_ENABLED", false),
		S3Endpoint:         getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
		S3Bucket:           getEnv("S3_BUCKET", "reports"),
		S3UseSSL:           getBoolEnv("S3_USE_SSL", false),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Environment:        getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks.
func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AuthEnabled reports whether API keys are required.
func (c *Config) AuthEnabled() bool {
	return len(c.APIKeys) > 0
}
