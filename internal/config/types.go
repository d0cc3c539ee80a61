// Package config manages application configuration from environment variables,
// config files, and default values.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every configuration loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Bot roles. A worker bot echoes; the admin bot runs the labeling workflow;
// a support bot only feeds support-group messages into that workflow.
const (
	RoleWorker  = "worker"
	RoleAdmin   = "admin"
	RoleSupport = "support"
)

// Config defines the application configuration. Values can be set via environment
// variables prefixed with BOT_ (e.g., BOT_HTTP_LISTEN_ADDR) or through config.yaml.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Bots      []BotConfig     `mapstructure:"bots"      validate:"required,min=1,dive"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	NLU       NLUConfig       `mapstructure:"nlu"`
	Lanes     LanesConfig     `mapstructure:"lanes"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// HTTPConfig configures the webhook endpoint.
type HTTPConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	// PublicURL is the externally reachable base URL used when registering webhooks.
	PublicURL          string        `mapstructure:"public_url"            validate:"omitempty,url"`
	WebhookPath        string        `mapstructure:"webhook_path"          validate:"required,startswith=/"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"        validate:"min=1024"`
	SetWebhooksOnStart bool          `mapstructure:"set_webhooks_on_start"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"      validate:"min=0"`
}

// BotConfig describes one bot identity.
type BotConfig struct {
	Username string `mapstructure:"username" validate:"required"`
	Secret   string `mapstructure:"secret"   validate:"required"`
	Token    string `mapstructure:"token"    validate:"required"`
	Role     string `mapstructure:"role"     validate:"required,oneof=worker admin support"`
}

// GroupCriteria identifies a group by username or title.
type GroupCriteria struct {
	Username string `mapstructure:"username"`
	Title    string `mapstructure:"title"`
}

// WorkflowConfig configures the intent labeling and auto-response workflow.
type WorkflowConfig struct {
	// AdminGroupID is the admin group used until a matching join rebinds it.
	AdminGroupID        int64         `mapstructure:"admin_group_id"`
	AdminGroup          GroupCriteria `mapstructure:"admin_group"`
	SupportGroup        GroupCriteria `mapstructure:"support_group"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold" validate:"min=0,max=1"`
	IntentPrefixLength  int           `mapstructure:"intent_prefix_length" validate:"min=0"`
}

// NLUConfig selects and configures the intent classification backend.
type NLUConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=none rasa gemini"`
	Rasa    RasaConfig    `mapstructure:"rasa"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig guards the backend with a circuit breaker. MaxFailures of
// zero disables it.
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" validate:"min=0"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"min=0"`
}

// RasaConfig configures the Rasa HTTP backend.
type RasaConfig struct {
	BaseURL    string        `mapstructure:"base_url"    validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout"     validate:"min=0"`
	MaxRetries int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"min=0"`
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey            string   `mapstructure:"api_key"`
	ModelName         string   `mapstructure:"model_name"`
	Temperature       float32  `mapstructure:"temperature"         validate:"min=0,max=2"`
	Intents           []string `mapstructure:"intents"`
	RetrievalPrefix   string   `mapstructure:"retrieval_prefix"`
	MaxRetries        int      `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int      `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
}

// LanesConfig tunes the per-conversation lanes.
type LanesConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	MaxLanes    int           `mapstructure:"max_lanes"    validate:"min=0"`
	TaskTimeout time.Duration `mapstructure:"task_timeout" validate:"min=0"`
}

// DedupConfig sizes the cache of recently seen update ids.
type DedupConfig struct {
	Size int `mapstructure:"size" validate:"min=0"`
}

// StoreConfig selects where workflow state lives.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory sqlite"`
	Path    string `mapstructure:"path"`
}

// SchedulerConfig lists scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}
