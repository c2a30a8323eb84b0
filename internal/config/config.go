// Package config provides the configuration schema, loader, and ASR provider
// registry for the digitspan service.
package config

import "time"

// LogLevel controls log verbosity for the digitspan server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultListenAddr        = ":8080"
	DefaultMaxBodyBytes      = 10 << 20
	DefaultLanguage          = "en"
	DefaultPhoneticThreshold = 0.85
	DefaultMaxFailures       = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultServiceName       = "digitspan"
)

// Config is the root configuration structure for digitspan.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
// Scalar settings can be overridden by the environment variable named in
// their env tag; environment beats YAML.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr" env:"DIGITSPAN_LISTEN_ADDR"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level" env:"DIGITSPAN_LOG_LEVEL" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	// MaxBodyBytes caps request bodies, including audio uploads.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"DIGITSPAN_MAX_BODY_BYTES" jsonschema:"minimum=0"`

	// AnswerLog is the path of a JSON-lines file that receives every graded
	// answer. Empty disables the log.
	AnswerLog string `yaml:"answer_log" env:"DIGITSPAN_ANSWER_LOG"`
}

// NormalizerConfig tunes transcript parsing.
type NormalizerConfig struct {
	// DefaultLanguage is used when a request carries no language tag.
	DefaultLanguage string `yaml:"default_language" env:"DIGITSPAN_DEFAULT_LANGUAGE" jsonschema:"enum=en,enum=hi,enum=kn"`

	// PhoneticRecovery enables the misspelling recovery stage.
	PhoneticRecovery bool `yaml:"phonetic_recovery" env:"DIGITSPAN_PHONETIC_RECOVERY"`

	// PhoneticThreshold is the Jaro-Winkler cut-off in (0, 1].
	PhoneticThreshold float64 `yaml:"phonetic_threshold" env:"DIGITSPAN_PHONETIC_THRESHOLD" jsonschema:"minimum=0,maximum=1"`
}

// ProvidersConfig lists the ASR backends, in failover order. Each entry
// selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	ASR []ProviderEntry `yaml:"asr"`
}

// ProviderEntry is the common configuration block shared by all providers.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper", "openai").
	Name string `yaml:"name" jsonschema:"required"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1", "base").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// ResilienceConfig configures the per-provider circuit breakers.
type ResilienceConfig struct {
	// MaxFailures is the number of consecutive failures that opens a breaker.
	MaxFailures int `yaml:"max_failures" env:"DIGITSPAN_MAX_FAILURES" jsonschema:"minimum=0"`

	// ResetTimeout is how long an open breaker waits before probing again.
	ResetTimeout time.Duration `yaml:"reset_timeout" env:"DIGITSPAN_RESET_TIMEOUT" jsonschema:"type=string,example=30s"`
}

// TelemetryConfig names the service in traces and metrics.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" env:"DIGITSPAN_SERVICE_NAME,OTEL_SERVICE_NAME"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Normalizer.DefaultLanguage == "" {
		c.Normalizer.DefaultLanguage = DefaultLanguage
	}
	if c.Normalizer.PhoneticThreshold == 0 {
		c.Normalizer.PhoneticThreshold = DefaultPhoneticThreshold
	}
	if c.Resilience.MaxFailures == 0 {
		c.Resilience.MaxFailures = DefaultMaxFailures
	}
	if c.Resilience.ResetTimeout == 0 {
		c.Resilience.ResetTimeout = DefaultResetTimeout
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}
