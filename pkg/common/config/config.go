package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server (report-server only)
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Analysis inputs
	PatientsCSV   string
	ConditionsCSV string
	OutputDir     string
	AnalysisDate  string // YYYY-MM-DD; empty means today
	TopN          int

	// Classifier / bucket configuration files (empty means built-in defaults)
	ClassifierRulesPath string
	AgeBucketsPath      string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	WarehouseEnabled bool

	// Redis
	RedisHost    string
	RedisPort    string
	RedisPass    string
	RedisDB      int
	CacheEnabled bool
	CacheTTL     time.Duration

	// Kafka
	KafkaBrokers  []string
	KafkaGroupID  string
	AnalysisTopic string
	EventsEnabled bool
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PatientsCSV:   getEnv("PATIENTS_CSV", "data/patients.csv"),
		ConditionsCSV: getEnv("CONDITIONS_CSV", "data/conditions.csv"),
		OutputDir:     getEnv("OUTPUT_DIR", "analysis_outputs"),
		AnalysisDate:  getEnv("ANALYSIS_DATE", ""),
		TopN:          getIntEnv("TOP_N", 20),

		ClassifierRulesPath: getEnv("CLASSIFIER_RULES_PATH", ""),
		AgeBucketsPath:      getEnv("AGE_BUCKETS_PATH", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "carelens"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "carelens123"),
		PostgresDB:       getEnv("POSTGRES_DB", "carelens"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		WarehouseEnabled: getBoolEnv("WAREHOUSE_ENABLED", false),

		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:      getIntEnv("REDIS_DB", 0),
		CacheEnabled: getBoolEnv("CACHE_ENABLED", false),
		CacheTTL:     getDuration("CACHE_TTL", 15*time.Minute),

		KafkaBrokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "carelens-analytics"),
		AnalysisTopic: getEnv("ANALYSIS_TOPIC", "analysis.runs"),
		EventsEnabled: getBoolEnv("EVENTS_ENABLED", false),
	}
}

// ResolveAnalysisDate returns the reference date ages are computed against.
// An unset ANALYSIS_DATE means today; a malformed one is a configuration
// error and surfaces immediately.
func (c *Config) ResolveAnalysisDate() (time.Time, error) {
	if strings.TrimSpace(c.AnalysisDate) == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse("2006-01-02", c.AnalysisDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ANALYSIS_DATE %q: %w", c.AnalysisDate, err)
	}
	return parsed, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
