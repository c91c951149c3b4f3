package config

import (
	"time"

	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/observability"
	"github.com/idg10/rxrewrite/validation"
)

// DefaultName is the service name used in logs and telemetry.
const DefaultName = "rxrewrite"

// EnvPrefix prefixes the environment variables Load binds.
const EnvPrefix = "RXREWRITE"

// Config is the configuration of the rxrewrite command and server.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Engine        EngineConfig        `yaml:"engine" mapstructure:"engine"`
	Adapter       AdapterConfig       `yaml:"adapter" mapstructure:"adapter"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Pipelines     PipelinesConfig     `yaml:"pipelines" mapstructure:"pipelines"`
}

// EngineConfig configures pipeline preparation.
type EngineConfig struct {
	// Mode is the default execution mode: rewrite or direct.
	Mode string `yaml:"mode" mapstructure:"mode" validate:"oneof=rewrite direct"`
	// CachePlans reuses prepared plans per expression.
	CachePlans bool `yaml:"cache_plans" mapstructure:"cache_plans"`
	// TraceOperators starts a span per operator application.
	TraceOperators bool `yaml:"trace_operators" mapstructure:"trace_operators"`
}

// AdapterConfig bounds the blocking boundaries of the push adapter. Zero
// waits indefinitely.
type AdapterConfig struct {
	SubscribeTimeout time.Duration `yaml:"subscribe_timeout" mapstructure:"subscribe_timeout" validate:"gte=0"`
	DisposeTimeout   time.Duration `yaml:"dispose_timeout" mapstructure:"dispose_timeout" validate:"gte=0"`
}

// ObservabilityConfig configures OTLP export.
type ObservabilityConfig struct {
	Tracing    bool          `yaml:"tracing" mapstructure:"tracing"`
	Metrics    bool          `yaml:"metrics" mapstructure:"metrics"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gte=0"`
	// RunTimeout bounds one pipeline run.
	RunTimeout time.Duration `yaml:"run_timeout" mapstructure:"run_timeout" validate:"gte=0"`
	// MaxConcurrentRuns caps the runs executing at once. Zero means no cap.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs" validate:"gte=0"`
	// RunQueueWait is how long a run waits for a free slot before it is
	// rejected.
	RunQueueWait time.Duration `yaml:"run_queue_wait" mapstructure:"run_queue_wait" validate:"gte=0"`
}

// PipelinesConfig locates pipeline definitions.
type PipelinesConfig struct {
	Dirs []string `yaml:"dirs" mapstructure:"dirs"`
}

// Defaults are the values of keys that neither the file nor the environment
// sets.
func Defaults() map[string]any {
	return map[string]any{
		"engine.mode":                "rewrite",
		"engine.cache_plans":         true,
		"adapter.subscribe_timeout":  "10s",
		"adapter.dispose_timeout":    "10s",
		"observability.endpoint":     "localhost:4318",
		"observability.insecure":     true,
		"observability.sample_rate":  1.0,
		"observability.interval":     "15s",
		"server.addr":                ":8080",
		"server.read_timeout":        "10s",
		"server.shutdown_timeout":    "10s",
		"server.run_timeout":         "30s",
		"server.max_concurrent_runs": 64,
		"server.run_queue_wait":      "1s",
		"pipelines.dirs":             []string{"pipelines"},
	}
}

// Load reads the configuration from the config file, .env file and
// RXREWRITE_* environment variables, then applies defaults and validates it.
func Load(opts ...LoaderOption) (*Config, error) {
	var cfg Config
	opts = append([]LoaderOption{WithEnvPrefix(EnvPrefix), WithDefaults(Defaults())}, opts...)
	if err := LoadConfig(DefaultName, &cfg, opts...); err != nil {
		return nil, apperrors.InvalidInput("config", err.Error()).WithCause(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in values that have no viper-level default.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Engine.Mode == "" {
		c.Engine.Mode = "rewrite"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate validates the whole configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return apperrors.InvalidInput("config", err.Error()).WithCause(err)
	}
	return validation.Validate(c)
}

// TracerConfig returns the tracer settings for InitTracer.
func (c *Config) TracerConfig() *observability.TracerConfig {
	return &observability.TracerConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Observability.Endpoint,
		Insecure:       c.Observability.Insecure,
		SampleRate:     c.Observability.SampleRate,
	}
}

// MeterConfig returns the meter settings for InitMeter.
func (c *Config) MeterConfig() *observability.MeterConfig {
	return &observability.MeterConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Observability.Endpoint,
		Insecure:       c.Observability.Insecure,
		Interval:       c.Observability.Interval,
	}
}
