// Package config provides configuration loading for standupd.
//
// Configuration is assembled from defaults, an optional YAML file and
// STANDUPD_* environment variables (see LoadWithFile).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete standupd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Slack         SlackConfig         `koanf:"slack"`
	Tracker       TrackerConfig       `koanf:"tracker"`
	LLM           LLMConfig           `koanf:"llm"`
	Store         StoreConfig         `koanf:"store"`
	Bus           BusConfig           `koanf:"bus"`
	Transcripts   TranscriptsConfig   `koanf:"transcripts"`
	Warehouse     WarehouseConfig     `koanf:"warehouse"`
	Temporal      TemporalConfig      `koanf:"temporal"`
	Directory     DirectoryConfig     `koanf:"directory"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds the Slack event ingress settings.
type ServerConfig struct {
	Host            string   `koanf:"http_host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RateLimit       float64  `koanf:"rate_limit"` // requests per second per client IP
	RateBurst       int      `koanf:"rate_burst"`
}

// SlackConfig holds chat platform credentials and routing.
type SlackConfig struct {
	BotToken      Secret `koanf:"bot_token"`
	SigningSecret Secret `koanf:"signing_secret"`
	BotUserID     string `koanf:"bot_user_id"`
	TeamChannel   string `koanf:"team_channel"` // shared channel for unidentified people
	APIURL        string `koanf:"api_url"`      // override for tests and proxies
}

// TrackerConfig holds Linear GraphQL settings.
type TrackerConfig struct {
	URL     string   `koanf:"url"`
	APIKey  Secret   `koanf:"api_key"`
	Timeout Duration `koanf:"timeout"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider          string   `koanf:"provider"` // "gemini" or "openai"
	Model             string   `koanf:"model"`
	APIKey            Secret   `koanf:"api_key"`
	BaseURL           string   `koanf:"base_url"`
	RequestsPerMinute int      `koanf:"requests_per_minute"`
	Timeout           Duration `koanf:"timeout"`
}

// StoreConfig selects the Pending-Update store backend.
type StoreConfig struct {
	Backend    string `koanf:"backend"` // "nats", "sqlite" or "memory"
	Bucket     string `koanf:"bucket"`
	SQLitePath string `koanf:"sqlite_path"`
}

// BusConfig holds the NATS task hand-off settings.
type BusConfig struct {
	URL      string `koanf:"url"`
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`
	Stream   string `koanf:"stream"`
	Subject  string `koanf:"subject"`
	Consumer string `koanf:"consumer"`
}

// TranscriptsConfig holds the meeting transcript source settings.
type TranscriptsConfig struct {
	FolderID          string `koanf:"folder_id"`
	ProcessedFolderID string `koanf:"processed_folder_id"`
	CredentialsFile   string `koanf:"credentials_file"`
	Schedule          string `koanf:"schedule"` // cron expression for the ingestion workflow
}

// WarehouseConfig selects the analytics warehouse.
type WarehouseConfig struct {
	Backend      string `koanf:"backend"` // "bigquery" or "sqlite"
	ProjectID    string `koanf:"project_id"`
	Dataset      string `koanf:"dataset"`
	MetricsTable string `koanf:"metrics_table"`
	SQLitePath   string `koanf:"sqlite_path"`
}

// TemporalConfig holds the Temporal client settings.
type TemporalConfig struct {
	HostPort  string `koanf:"host_port"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
}

// DirectoryConfig points at the name to email roster.
type DirectoryConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

// ObservabilityConfig holds logging and OpenTelemetry settings.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	OTLPProtocol    string `koanf:"otlp_protocol"` // "grpc" or "http"
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 5
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 20
	}

	if cfg.Tracker.URL == "" {
		cfg.Tracker.URL = "https://api.linear.app/graphql"
	}
	if cfg.Tracker.Timeout == 0 {
		cfg.Tracker.Timeout = Duration(15 * time.Second)
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.Model = "gpt-4o-mini"
		default:
			cfg.LLM.Model = "gemini-2.0-flash-lite"
		}
	}
	if cfg.LLM.RequestsPerMinute == 0 {
		cfg.LLM.RequestsPerMinute = 60
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(60 * time.Second)
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "nats"
	}
	if cfg.Store.Bucket == "" {
		cfg.Store.Bucket = "pending_updates"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "standupd.db"
	}

	if cfg.Bus.URL == "" {
		cfg.Bus.URL = "nats://localhost:4222"
	}
	if cfg.Bus.Stream == "" {
		cfg.Bus.Stream = "STANDUP"
	}
	if cfg.Bus.Subject == "" {
		cfg.Bus.Subject = "standup.tasks"
	}
	if cfg.Bus.Consumer == "" {
		cfg.Bus.Consumer = "reconciler"
	}

	if cfg.Warehouse.Backend == "" {
		cfg.Warehouse.Backend = "bigquery"
	}
	if cfg.Warehouse.Dataset == "" {
		cfg.Warehouse.Dataset = "linear_metrics_dev"
	}
	if cfg.Warehouse.MetricsTable == "" {
		cfg.Warehouse.MetricsTable = "linear_metrics_summary"
	}
	if cfg.Warehouse.SQLitePath == "" {
		cfg.Warehouse.SQLitePath = "warehouse.db"
	}

	if cfg.Temporal.HostPort == "" {
		cfg.Temporal.HostPort = "localhost:7233"
	}
	if cfg.Temporal.Namespace == "" {
		cfg.Temporal.Namespace = "default"
	}
	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "standup-ingestion"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "standupd"
	}
	if cfg.Observability.OTLPProtocol == "" {
		cfg.Observability.OTLPProtocol = "grpc"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = "json"
	}
}

// Validate validates the configuration.
//
// Credentials are not required here: commands that need a collaborator
// check for its credentials when they build the client.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("rate limit and burst must not be negative")
	}

	if err := validateURL("tracker.url", c.Tracker.URL, "https", "http"); err != nil {
		return err
	}

	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q (want gemini or openai)", c.LLM.Provider)
	}
	if c.LLM.BaseURL != "" {
		if err := validateURL("llm.base_url", c.LLM.BaseURL, "https", "http"); err != nil {
			return err
		}
	}

	switch c.Store.Backend {
	case "nats", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store backend %q (want nats, sqlite or memory)", c.Store.Backend)
	}
	if c.Store.Backend == "sqlite" && strings.Contains(c.Store.SQLitePath, "..") {
		return fmt.Errorf("store.sqlite_path must not contain '..': %s", c.Store.SQLitePath)
	}

	if !c.Bus.Embedded {
		if err := validateURL("bus.url", c.Bus.URL, "nats", "tls"); err != nil {
			return err
		}
	}

	switch c.Warehouse.Backend {
	case "bigquery", "sqlite":
	default:
		return fmt.Errorf("unknown warehouse backend %q (want bigquery or sqlite)", c.Warehouse.Backend)
	}

	switch c.Observability.OTLPProtocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("unknown otlp protocol %q (want grpc or http)", c.Observability.OTLPProtocol)
	}
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (scheme must be one of %s)", field, raw, strings.Join(schemes, ", "))
}
