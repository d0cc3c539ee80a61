package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultListenAddr      = ":3000"
	DefaultWebhookPath     = "/webhooks/telegram"
	DefaultMaxBodyBytes    = 1 << 20
	DefaultShutdownTimeout = 10 * time.Second

	// Admin group used before any matching join rebinds it.
	DefaultAdminGroupID        = -533125184
	DefaultConfidenceThreshold = 0.5
	DefaultIntentPrefixLength  = 4

	DefaultNLUBackend            = "none"
	DefaultRasaBaseURL           = "http://rasa:5005/"
	DefaultRasaTimeout           = 10 * time.Second
	DefaultRasaMaxRetries        = 2
	DefaultRasaRetryDelay        = 500 * time.Millisecond
	DefaultGeminiModel           = "gemini-2.0-flash"
	DefaultGeminiTemperature     = 0.0
	DefaultGeminiRetrievalPrefix = "faq"
	DefaultGeminiMaxRetries      = 2
	DefaultGeminiRetryDelay      = 2
	DefaultBreakerMaxFailures    = 5
	DefaultBreakerOpenTimeout    = 30 * time.Second

	DefaultLaneIdleTimeout = 30 * time.Minute
	DefaultMaxLanes        = 10000

	DefaultDedupSize = 4096

	DefaultStoreBackend = "memory"
	DefaultStorePath    = "helpdesk.db"

	DefaultLaneEvictionSchedule   = "0 * * * * *"
	DefaultSQLMaintenanceSchedule = "0 0 4 * * *"
)

// Scheduled task names.
const (
	TaskLaneEviction   = "lane_eviction"
	TaskSQLMaintenance = "sql_maintenance"
)

// setDefaults sets default values for optional configuration parameters
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("http.listen_addr", DefaultListenAddr)
	v.SetDefault("http.webhook_path", DefaultWebhookPath)
	v.SetDefault("http.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("http.set_webhooks_on_start", false)
	v.SetDefault("http.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("workflow.admin_group_id", DefaultAdminGroupID)
	v.SetDefault("workflow.confidence_threshold", DefaultConfidenceThreshold)
	v.SetDefault("workflow.intent_prefix_length", DefaultIntentPrefixLength)

	v.SetDefault("nlu.backend", DefaultNLUBackend)
	v.SetDefault("nlu.rasa.base_url", DefaultRasaBaseURL)
	v.SetDefault("nlu.rasa.timeout", DefaultRasaTimeout)
	v.SetDefault("nlu.rasa.max_retries", DefaultRasaMaxRetries)
	v.SetDefault("nlu.rasa.retry_delay", DefaultRasaRetryDelay)
	v.SetDefault("nlu.gemini.model_name", DefaultGeminiModel)
	v.SetDefault("nlu.gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("nlu.gemini.retrieval_prefix", DefaultGeminiRetrievalPrefix)
	v.SetDefault("nlu.gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("nlu.gemini.retry_delay_seconds", DefaultGeminiRetryDelay)
	v.SetDefault("nlu.breaker.max_failures", DefaultBreakerMaxFailures)
	v.SetDefault("nlu.breaker.open_timeout", DefaultBreakerOpenTimeout)

	v.SetDefault("lanes.idle_timeout", DefaultLaneIdleTimeout)
	v.SetDefault("lanes.max_lanes", DefaultMaxLanes)
	v.SetDefault("lanes.task_timeout", 0)

	v.SetDefault("dedup.size", DefaultDedupSize)

	v.SetDefault("store.backend", DefaultStoreBackend)
	v.SetDefault("store.path", DefaultStorePath)

	v.SetDefault("scheduler.tasks", map[string]any{
		TaskLaneEviction:   map[string]any{"enabled": true, "schedule": DefaultLaneEvictionSchedule},
		TaskSQLMaintenance: map[string]any{"enabled": true, "schedule": DefaultSQLMaintenanceSchedule},
	})
}
