package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewFromEnv_HTTPDefaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/app/web", cfg.HTTP.UIStaticDir)
	assert.True(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, int64(500), cfg.HTTP.MaxUploadMB)
}

func TestNewFromEnv_PipelineDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Backend.Enabled())
	assert.Equal(t, VariantDual, cfg.Pipeline.Variant)
	assert.Equal(t, language.English, cfg.Pipeline.SourceLanguage)
	assert.Equal(t, language.Hindi, cfg.Pipeline.TargetLanguage)
	assert.Equal(t, 650*time.Millisecond, cfg.Pipeline.StageInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Pipeline.TickInterval)
	assert.Equal(t, DurationRange{Min: 3 * time.Second, Max: 7 * time.Second}, cfg.Pipeline.AudioDuration)
	assert.Equal(t, DurationRange{Min: 4 * time.Second, Max: 8 * time.Second}, cfg.Pipeline.VideoDuration)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.MergeSettle)
	assert.Equal(t, 1500*time.Millisecond, cfg.Pipeline.MergeDuration)
	assert.Equal(t, "@every 30s", cfg.System.HeartbeatCron)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://backend.test/api/")
	t.Setenv("PIPELINE_VARIANT", "LINEAR")
	t.Setenv("TARGET_LANGUAGE", "es")
	t.Setenv("TICK_INTERVAL_MS", "10")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Backend.Enabled())
	assert.Equal(t, "http://backend.test/api", cfg.Backend.BaseURL)
	assert.Equal(t, VariantLinear, cfg.Pipeline.Variant)
	assert.Equal(t, language.Spanish, cfg.Pipeline.TargetLanguage)
	assert.Equal(t, 10*time.Millisecond, cfg.Pipeline.TickInterval)
}

func TestNewFromEnv_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "variant", key: "PIPELINE_VARIANT", val: "triple"},
		{name: "language", key: "TARGET_LANGUAGE", val: "not a tag!"},
		{name: "undetectable language", key: "TARGET_LANGUAGE", val: "cy"},
		{name: "tick", key: "TICK_INTERVAL_MS", val: "0"},
		{name: "audio range", key: "AUDIO_DURATION_MAX_MS", val: "1000"},
		{name: "cron", key: "HEARTBEAT_CRON", val: "every now and then"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := NewFromEnv()
			require.Error(t, err)
		})
	}
}

func TestNew_LoadsDotEnv(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env"), []byte("HTTP_ADDR=127.0.0.1:9999\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("HTTP_ADDR", "")
	require.NoError(t, os.Unsetenv("HTTP_ADDR"))

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)
}

func TestWithVariant_Option(t *testing.T) {
	cfg, err := NewFromEnv(WithVariant(VariantLinear), WithBackendURL("http://x.test"))
	require.NoError(t, err)

	assert.Equal(t, VariantLinear, cfg.Pipeline.Variant)
	assert.Equal(t, "http://x.test", cfg.Backend.BaseURL)
}
