package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Driver names accepted in DATABASE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Addr   string // ops API bind address
	LogDir string

	DatabaseDriver string // memory | sqlite | postgres
	DatabaseURL    string // sqlite file path or postgres DSN

	ConfigPollInterval time.Duration // config poller tick
	ProbeTimeout       time.Duration // per-probe bound
	AggInterval        time.Duration // uptime aggregator cadence
	AggWindow          time.Duration // trailing summary window
	RetentionPrune     bool          // purge raw history after summarizing

	// Synchronous first check on website registration.
	RetryAttempts int
	RetryBackoff  time.Duration

	// Notification defaults; a project setting's recipient overrides these.
	SlackWebhook   string
	TelegramToken  string
	TelegramChatID string

	PublicAPIKeys  []string
	AdminAPIKeys   []string
	AllowedOrigins []string

	PublicRPM   int
	PublicBurst int
	AdminRPM    int
	AdminBurst  int
}

func FromEnv() Config {
	return Config{
		Addr:   getEnv("ADDR", "127.0.0.1:8080"),
		LogDir: getEnv("LOG_DIR", "logs"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverSQLite),
		DatabaseURL:    getEnv("DATABASE_URL", "data/sitewatch.db"),

		ConfigPollInterval: getEnvDuration("CONFIG_POLL_INTERVAL", 30*time.Second),
		ProbeTimeout:       getEnvDuration("PROBE_TIMEOUT", 10*time.Second),
		AggInterval:        getEnvDuration("AGGREGATION_INTERVAL", 15*time.Minute),
		AggWindow:          getEnvDuration("AGGREGATION_WINDOW", 15*time.Minute),
		RetentionPrune:     getEnvBool("RETENTION_PRUNE", false),

		RetryAttempts: getEnvInt("RETRY_ATTEMPTS", 2),
		RetryBackoff:  getEnvDuration("RETRY_BACKOFF", 300*time.Millisecond),

		SlackWebhook:   os.Getenv("SLACK_WEBHOOK"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),

		PublicAPIKeys:  splitList(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:   splitList(os.Getenv("ADMIN_API_KEYS")),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),

		PublicRPM:   getEnvInt("PUBLIC_RPM", 120),
		PublicBurst: getEnvInt("PUBLIC_BURST", 60),
		AdminRPM:    getEnvInt("ADMIN_RPM", 60),
		AdminBurst:  getEnvInt("ADMIN_BURST", 30),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
