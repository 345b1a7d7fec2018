package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the console engine.
type Config struct {
	App       AppConfig
	Upstream  UpstreamConfig
	Sync      SyncConfig
	Sla       SlaConfig
	Queue     QueueConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	Logger    LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// UpstreamConfig points at the ticket server the console mirrors.
type UpstreamConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
}

// SyncConfig holds the polling cadences.
type SyncConfig struct {
	ListPollSeconds   int
	DetailPollSeconds int
	SlaTickSeconds    int
}

// SlaConfig carries the classification windows in minutes.
type SlaConfig struct {
	TargetMinutes   int
	WarningMinutes  int
	CriticalMinutes int
}

// QueueConfig controls listing defaults.
type QueueConfig struct {
	PageSize             int
	DefaultSnoozeMinutes int
	OperatorLabel        string
}

// RedisConfig holds Redis connection values for the local ledger.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// TelemetryConfig points at the fire-and-forget event sink.
type TelemetryConfig struct {
	URL                string
	BufferSize         int
	LatencyObjectiveMS int
	ExperimentName     string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "dialog-console"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8090"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Upstream: UpstreamConfig{
			BaseURL:               getEnv("UPSTREAM_BASE_URL", "http://127.0.0.1:8080"),
			RequestTimeoutSeconds: getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", 15),
		},
		Sync: SyncConfig{
			ListPollSeconds:   getEnvAsInt("SYNC_LIST_POLL_SECONDS", 8),
			DetailPollSeconds: getEnvAsInt("SYNC_DETAIL_POLL_SECONDS", 8),
			SlaTickSeconds:    getEnvAsInt("SYNC_SLA_TICK_SECONDS", 60),
		},
		Sla: SlaConfig{
			TargetMinutes:   getEnvAsInt("SLA_TARGET_MINUTES", 1440),
			WarningMinutes:  getEnvAsInt("SLA_WARNING_MINUTES", 240),
			CriticalMinutes: getEnvAsInt("SLA_CRITICAL_MINUTES", 30),
		},
		Queue: QueueConfig{
			PageSize:             getEnvAsInt("QUEUE_PAGE_SIZE", 50),
			DefaultSnoozeMinutes: getEnvAsInt("QUEUE_SNOOZE_MINUTES", 1440),
			OperatorLabel:        getEnv("OPERATOR_LABEL", "operator"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			Namespace: getEnv("REDIS_NAMESPACE", "console"),
		},
		Telemetry: TelemetryConfig{
			URL:                getEnv("TELEMETRY_URL", ""),
			BufferSize:         getEnvAsInt("TELEMETRY_BUFFER_SIZE", 256),
			LatencyObjectiveMS: getEnvAsInt("WORKSPACE_LATENCY_OBJECTIVE_MS", 2000),
			ExperimentName:     getEnv("EXPERIMENT_NAME", "workspace_rollout"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RequestTimeout returns the upstream call timeout.
func (u UpstreamConfig) RequestTimeout() time.Duration {
	if u.RequestTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(u.RequestTimeoutSeconds) * time.Second
}

// ListPollInterval returns the list polling period.
func (s SyncConfig) ListPollInterval() time.Duration {
	return time.Duration(s.ListPollSeconds) * time.Second
}

// DetailPollInterval returns the open-ticket polling period.
func (s SyncConfig) DetailPollInterval() time.Duration {
	return time.Duration(s.DetailPollSeconds) * time.Second
}

// SlaTickInterval returns the badge-refresh period.
func (s SyncConfig) SlaTickInterval() time.Duration {
	return time.Duration(s.SlaTickSeconds) * time.Second
}

// LatencyObjective returns the workspace-open target duration.
func (t TelemetryConfig) LatencyObjective() time.Duration {
	return time.Duration(t.LatencyObjectiveMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
