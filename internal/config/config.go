package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL      string
	HTTPTimeout     time.Duration
	RedisURL        string
	SessionStore    string
	Environment     string
	LogLevel        string
	AttemptTick     time.Duration
	RefreshThrottle time.Duration
	DevAPIPort      string
	DevAPIToken     string
	Events          EventConfig
}

// LoadConfig reads a .env file when one exists, then the process
// environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8080"),
		HTTPTimeout:     getDuration("HTTP_TIMEOUT", 15*time.Second),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		SessionStore:    strings.ToLower(getEnv("SESSION_STORE", "memory")),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "")),
		AttemptTick:     getDuration("ATTEMPT_TICK", 500*time.Millisecond),
		RefreshThrottle: getDuration("REFRESH_THROTTLE", time.Second),
		DevAPIPort:      getEnv("DEVAPI_PORT", "8080"),
		DevAPIToken:     getEnv("DEVAPI_TOKEN", ""),
		Events: EventConfig{
			Enabled:           getBool("EVENTS_ENABLED", true),
			Publisher:         strings.ToLower(getEnv("EVENTS_PUBLISHER", "channel")),
			KafkaBrokers:      getEnv("KAFKA_BROKERS", "localhost:9092"),
			NotificationTopic: getEnv("NOTIFICATION_TOPIC", "notifications"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getDuration accepts Go durations ("500ms") or plain milliseconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
