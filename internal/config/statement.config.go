package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string
	GRPCAddr string

	RedisAddrs   []string
	RedisPass    string
	RedisCluster bool
	LineCacheTTL time.Duration

	EventsEnabled bool
	EventsChannel string
	KafkaBrokers  []string
	KafkaTopic    string

	DB DBConfig
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
	Migrate  bool

	// how long a statement waits for a row lock before failing with 55P03
	LockTimeout time.Duration
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8031"),
		GRPCAddr: getEnv("GRPC_ADDR", ":8032"),

		RedisAddrs:   getEnvSlice("REDIS_ADDR", []string{"redis:6379"}),
		RedisPass:    getEnv("REDIS_PASS", ""),
		RedisCluster: getEnvBool("REDIS_CLUSTER", false),
		LineCacheTTL: getEnvDuration("LINE_CACHE_TTL", 5*time.Minute),

		EventsEnabled: getEnvBool("EVENTS_ENABLED", true),
		EventsChannel: getEnv("EVENTS_CHANNEL", "statement_line_events"),
		KafkaBrokers:  getEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "statement-line-events"),

		DB: DBConfig{
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "statements"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
			Migrate:  getEnvBool("DB_MIGRATE", true),

			LockTimeout: getEnvDuration("DB_LOCK_TIMEOUT", 5*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
