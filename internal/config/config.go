package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/locale"
	"github.com/MimeLyc/chameleon-localizer/pkg/log"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Values come from environment variables (and an optional .env file)
// with sensible defaults.
//
// Environment Variables:
// Backend:
// - API_BASE_URL: job API base URL; empty means simulation only
// - API_TIMEOUT: submission timeout in seconds (default: 30)
//
// Pipeline:
// - PIPELINE_VARIANT: linear or dual (default: dual)
// - SOURCE_LANGUAGE: spoken language of uploads (default: en)
// - TARGET_LANGUAGE: default localization target (default: hi)
// - STAGE_INTERVAL_MS: linear stage dwell time (default: 650)
// - TICK_INTERVAL_MS: track progress tick (default: 50)
// - AUDIO_DURATION_MIN_MS / AUDIO_DURATION_MAX_MS (default: 3000 / 7000)
// - VIDEO_DURATION_MIN_MS / VIDEO_DURATION_MAX_MS (default: 4000 / 8000)
// - MERGE_SETTLE_MS / MERGE_DURATION_MS (default: 500 / 1500)
//
// HTTP:
// - HTTP_ADDR (default: :8080)
// - UI_STATIC_DIR (default: /app/web), UI_ENABLED (default: true)
// - UPLOAD_DIR (default: OS temp dir), MAX_UPLOAD_MB (default: 500)
//
// System:
// - HEARTBEAT_CRON (default: @every 30s)
// - LOG_LEVEL (default: info)
type Config struct {
	Backend  BackendConfig  `json:"backend"`
	Pipeline PipelineConfig `json:"pipeline"`
	HTTP     HTTPConfig     `json:"http"`
	System   SystemConfig   `json:"system"`
}

// BackendConfig describes the optional job API.
type BackendConfig struct {
	BaseURL string `json:"base_url"`
	Timeout int    `json:"timeout"`
}

// Enabled reports whether submissions should be attempted.
func (c BackendConfig) Enabled() bool {
	return strings.TrimSpace(c.BaseURL) != ""
}

type Variant string

const (
	VariantLinear Variant = "linear"
	VariantDual   Variant = "dual"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantLinear, VariantDual:
		return v, nil
	default:
		return "", fmt.Errorf("unknown pipeline variant %q", s)
	}
}

// DurationRange bounds the randomized duration of one track run.
type DurationRange struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

type PipelineConfig struct {
	Variant        Variant       `json:"variant"`
	SourceLanguage language.Tag  `json:"source_language"`
	TargetLanguage language.Tag  `json:"target_language"`
	StageInterval  time.Duration `json:"stage_interval"`
	TickInterval   time.Duration `json:"tick_interval"`
	AudioDuration  DurationRange `json:"audio_duration"`
	VideoDuration  DurationRange `json:"video_duration"`
	MergeSettle    time.Duration `json:"merge_settle"`
	MergeDuration  time.Duration `json:"merge_duration"`
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIStaticDir string `json:"ui_static_dir"`
	UIEnabled   bool   `json:"ui_enabled"`
	UploadDir   string `json:"upload_dir"`
	MaxUploadMB int64  `json:"max_upload_mb"`
}

type SystemConfig struct {
	HeartbeatCron string `json:"heartbeat_cron"`
	LogLevel      string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithBackendURL(url string) Option {
	return func(c *Config) {
		c.Backend.BaseURL = url
	}
}

func WithVariant(v Variant) Option {
	return func(c *Config) {
		c.Pipeline.Variant = v
	}
}

// New loads a .env file from the working directory, if any, and then
// reads the environment.
func New(opts ...Option) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to load .env file: %v", err)
	}
	return NewFromEnv(opts...)
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	variant, err := ParseVariant(getEnvString("PIPELINE_VARIANT", string(VariantDual)))
	if err != nil {
		return nil, err
	}
	source, err := getEnvLanguage("SOURCE_LANGUAGE", language.English, language.Parse)
	if err != nil {
		return nil, err
	}
	target, err := getEnvLanguage("TARGET_LANGUAGE", language.Hindi, locale.Parse)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnvString("API_BASE_URL", ""), "/"),
			Timeout: getEnvInt("API_TIMEOUT", 30),
		},
		Pipeline: PipelineConfig{
			Variant:        variant,
			SourceLanguage: source,
			TargetLanguage: target,
			StageInterval:  getEnvMillis("STAGE_INTERVAL_MS", 650),
			TickInterval:   getEnvMillis("TICK_INTERVAL_MS", 50),
			AudioDuration: DurationRange{
				Min: getEnvMillis("AUDIO_DURATION_MIN_MS", 3000),
				Max: getEnvMillis("AUDIO_DURATION_MAX_MS", 7000),
			},
			VideoDuration: DurationRange{
				Min: getEnvMillis("VIDEO_DURATION_MIN_MS", 4000),
				Max: getEnvMillis("VIDEO_DURATION_MAX_MS", 8000),
			},
			MergeSettle:   getEnvMillis("MERGE_SETTLE_MS", 500),
			MergeDuration: getEnvMillis("MERGE_DURATION_MS", 1500),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIStaticDir: getEnvString("UI_STATIC_DIR", "/app/web"),
			UIEnabled:   getEnvBool("UI_ENABLED", true),
			UploadDir:   getEnvString("UPLOAD_DIR", os.TempDir()),
			MaxUploadMB: int64(getEnvInt("MAX_UPLOAD_MB", 500)),
		},
		System: SystemConfig{
			HeartbeatCron: getEnvString("HEARTBEAT_CRON", "@every 30s"),
			LogLevel:      getEnvString("LOG_LEVEL", "info"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", config)
	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if _, err := ParseVariant(string(c.Pipeline.Variant)); err != nil {
		return err
	}
	if c.Pipeline.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL_MS must be positive")
	}
	if c.Pipeline.StageInterval < 0 {
		return fmt.Errorf("STAGE_INTERVAL_MS must not be negative")
	}
	for name, r := range map[string]DurationRange{
		"AUDIO_DURATION": c.Pipeline.AudioDuration,
		"VIDEO_DURATION": c.Pipeline.VideoDuration,
	} {
		if r.Min <= 0 || r.Max < r.Min {
			return fmt.Errorf("%s range is invalid: min=%s max=%s", name, r.Min, r.Max)
		}
	}
	if c.Pipeline.MergeSettle < 0 || c.Pipeline.MergeDuration < 0 {
		return fmt.Errorf("merge delays must not be negative")
	}
	if c.HTTP.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if _, err := cron.ParseStandard(c.System.HeartbeatCron); err != nil {
		return fmt.Errorf("invalid HEARTBEAT_CRON: %w", err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvLanguage(key string, defaultValue language.Tag, parse func(string) (language.Tag, error)) (language.Tag, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	tag, err := parse(value)
	if err != nil {
		return language.Und, fmt.Errorf("invalid %s: %w", key, err)
	}
	return tag, nil
}
