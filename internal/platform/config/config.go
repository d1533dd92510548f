// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize is the default maximum request body size (1MB).
	DefaultMaxRequestSize = 1 << 20 // 1048576 bytes

	// DefaultSentrySampleRate is the default event sample rate.
	DefaultSentrySampleRate = 1.0

	// DefaultSentryBufferSize is the default number of buffered events.
	DefaultSentryBufferSize = 10

	// DefaultSentryAsyncQueueSize is the default async delivery queue size.
	DefaultSentryAsyncQueueSize = 50

	// DefaultSentryMaxMessageLength is the default event message length limit.
	DefaultSentryMaxMessageLength = 1000

	// DefaultSentryMaxBreadcrumbs is the default breadcrumb limit per request.
	DefaultSentryMaxBreadcrumbs = 100

	// DefaultDiagnosticsRecentEvents is how many captured events the
	// diagnostics API remembers.
	DefaultDiagnosticsRecentEvents = 256

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28
)

// Config is the root configuration structure.
type Config struct {
	App         AppConfig         `koanf:"app"         validate:"required"`
	Server      ServerConfig      `koanf:"server"      validate:"required"`
	Log         LogConfig         `koanf:"log"         validate:"required"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Sentry      SentryConfig      `koanf:"sentry"`
	Diagnostics DiagnosticsConfig `koanf:"diagnostics"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// SentryConfig contains error tracking settings. The DSN may be left empty
// here and supplied through the SENTRY_DSN environment variable instead.
type SentryConfig struct {
	DSN                    string                 `koanf:"dsn"                      validate:"omitempty,url"`
	Release                string                 `koanf:"release"`
	Dist                   string                 `koanf:"dist"`
	Environment            string                 `koanf:"environment"`
	ServerName             string                 `koanf:"server_name"`
	Tags                   map[string]string      `koanf:"tags"`
	Extra                  map[string]string      `koanf:"extra"`
	MDCTags                []string               `koanf:"mdc_tags"`
	Stacktrace             SentryStacktraceConfig `koanf:"stacktrace"`
	SampleRate             float64                `koanf:"sample_rate"              validate:"min=0,max=1"`
	UncaughtHandlerEnabled bool                   `koanf:"uncaught_handler_enabled"`
	Buffer                 SentryBufferConfig     `koanf:"buffer"`
	Async                  SentryAsyncConfig      `koanf:"async"`
	Compression            bool                   `koanf:"compression"`
	MaxMessageLength       int                    `koanf:"max_message_length"       validate:"min=0"`
	MaxBreadcrumbs         int                    `koanf:"max_breadcrumbs"          validate:"min=1,max=1000"`
	Timeout                time.Duration          `koanf:"timeout"                  validate:"min=0"`
	HTTPProxy              SentryProxyConfig      `koanf:"http_proxy"`
	InitStaticClient       bool                   `koanf:"init_static_client"`
	AutoCallID             bool                   `koanf:"auto_call_id"`
	AutoRequestPath        bool                   `koanf:"auto_request_path"`
	LogBreadcrumbs         string                 `koanf:"log_breadcrumbs"          validate:"omitempty,oneof=debug info warn error"`
}

// SentryStacktraceConfig controls in-app frame detection.
type SentryStacktraceConfig struct {
	AppPackages []string `koanf:"app_packages"`
	HideCommon  bool     `koanf:"hide_common"`
}

// SentryBufferConfig contains offline buffering settings.
type SentryBufferConfig struct {
	Dir              string        `koanf:"dir"`
	Size             int           `koanf:"size"             validate:"min=0"`
	FlushTime        time.Duration `koanf:"flush_time"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
	GracefulShutdown bool          `koanf:"graceful_shutdown"`
}

// SentryAsyncConfig contains asynchronous delivery settings.
type SentryAsyncConfig struct {
	Enabled          bool          `koanf:"enabled"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
	GracefulShutdown bool          `koanf:"graceful_shutdown"`
	QueueSize        int           `koanf:"queue_size"       validate:"min=0"`
	Threads          int           `koanf:"threads"          validate:"min=0"`
	Priority         int           `koanf:"priority"`
}

// SentryProxyConfig contains the outbound proxy for event delivery.
type SentryProxyConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"omitempty,min=1,max=65535"`
}

// DiagnosticsConfig controls the /api/v1/diagnostics endpoints.
type DiagnosticsConfig struct {
	Enabled      bool `koanf:"enabled"`
	RecentEvents int  `koanf:"recent_events" validate:"required_if=Enabled true,omitempty,min=1,max=10000"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "reqsentry",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/app.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.insecure":      false,
		"telemetry.service_name":  "reqsentry",
		"telemetry.sampling_rate": 1.0,

		"sentry.dsn":                      "",
		"sentry.environment":              "local",
		"sentry.sample_rate":              DefaultSentrySampleRate,
		"sentry.uncaught_handler_enabled": true,
		"sentry.buffer.size":              DefaultSentryBufferSize,
		"sentry.buffer.flush_time":        "60s",
		"sentry.buffer.shutdown_timeout":  "1s",
		"sentry.buffer.graceful_shutdown": true,
		"sentry.async.enabled":            true,
		"sentry.async.shutdown_timeout":   "1s",
		"sentry.async.graceful_shutdown":  true,
		"sentry.async.queue_size":         DefaultSentryAsyncQueueSize,
		"sentry.async.threads":            1,
		"sentry.async.priority":           1,
		"sentry.compression":              true,
		"sentry.max_message_length":       DefaultSentryMaxMessageLength,
		"sentry.max_breadcrumbs":          DefaultSentryMaxBreadcrumbs,
		"sentry.timeout":                  "1s",
		"sentry.mdc_tags":                 []string{"request_id", "correlation_id"},
		"sentry.init_static_client":       false,
		"sentry.auto_call_id":             true,
		"sentry.auto_request_path":        true,
		"sentry.log_breadcrumbs":          "warn",

		"diagnostics.enabled":       true,
		"diagnostics.recent_events": DefaultDiagnosticsRecentEvents,
	}
}

// EnvPrefix marks environment variables that override configuration.
const EnvPrefix = "APP_"

// Load layers configuration sources, later ones winning:
//  1. defaults
//  2. configs/base.yaml
//  3. configs/{profile}.yaml
//  4. APP_ environment variables
//
// Missing files are skipped. APP_SENTRY_LOG_BREADCRUMBS sets
// sentry.log_breadcrumbs: variables resolve to known keys first, and only
// unknown ones split on every underscore.
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, filepath.Join("configs", "base.yaml")); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := loadFileIfExists(k, filepath.Join("configs", profile+".yaml")); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyMapper(k.Keys())), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKeyMapper maps APP_SENTRY_MAX_BREADCRUMBS to sentry.max_breadcrumbs
// when that key is known.
func envKeyMapper(known []string) func(string) string {
	byEnv := make(map[string]string, len(known))
	for _, key := range known {
		byEnv[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(name string) string {
		name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		if key, ok := byEnv[name]; ok {
			return key
		}

		return strings.ReplaceAll(name, "_", ".")
	}
}

// loadFileIfExists loads a YAML file. A missing file is not an error.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
