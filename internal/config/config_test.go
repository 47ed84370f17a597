package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridehq/driftwatch/internal/config"
	"github.com/stridehq/driftwatch/pkg/types"
)

func TestLoadConfig_DefaultHostIsLocalhost(t *testing.T) {
	_ = os.Unsetenv("DRIFTWATCH_HOST")
	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host,
		"Default host must be 127.0.0.1 for security")
}

func TestLoadConfig_CanOverrideHost(t *testing.T) {
	t.Setenv("DRIFTWATCH_HOST", "0.0.0.0")
	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadConfig_EngineDefaults(t *testing.T) {
	_ = os.Unsetenv("DRIFTWATCH_ENGINE_CONFIG")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Engine.Thresholds.CheckinFrequency)
	assert.Equal(t, 72*time.Hour, cfg.Engine.Thresholds.ResponseDelay)
	assert.Equal(t, 0.25, cfg.Engine.Weights[types.IndicatorCheckinFrequency])
	assert.Equal(t, 7, cfg.Engine.DefaultTimeframeDays)
}

func TestLoadConfig_VectorDefaults(t *testing.T) {
	_ = os.Unsetenv("DRIFTWATCH_VECTOR_BACKEND")
	_ = os.Unsetenv("DRIFTWATCH_VECTOR_DIMENSION")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.VectorBackend)
	assert.Equal(t, 384, cfg.Storage.VectorDimension)
}

func TestLoadEngineConfig_OverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	yaml := `
thresholds:
  checkin_frequency: 0.8
  mood_decline: 3.0
  response_delay: 48h
weights:
  checkin_frequency: 0.4
default_timeframe_days: 14
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.LoadEngineConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Thresholds.CheckinFrequency)
	assert.Equal(t, 3.0, cfg.Thresholds.MoodDecline)
	assert.Equal(t, 48*time.Hour, cfg.Thresholds.ResponseDelay)
	assert.Equal(t, 0.4, cfg.Weights[types.IndicatorCheckinFrequency])
	assert.Equal(t, 14, cfg.DefaultTimeframeDays)

	// Unspecified fields keep their defaults via Normalize.
	assert.Equal(t, 0.4, cfg.Thresholds.EngagementDrop)
	assert.Equal(t, 0.7, cfg.Thresholds.PatternDeviation)
}

func TestLoadEngineConfig_MissingFile(t *testing.T) {
	_, err := config.LoadEngineConfig("/nonexistent/engine.yaml")
	assert.Error(t, err)
}

func TestLoadEngineConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds: [not a map"), 0o600))

	_, err := config.LoadEngineConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EngineConfigEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_timeframe_days: 21\n"), 0o600))
	t.Setenv("DRIFTWATCH_ENGINE_CONFIG", path)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 21, cfg.Engine.DefaultTimeframeDays)
}

func TestLoadConfig_SecurityDefaults(t *testing.T) {
	_ = os.Unsetenv("DRIFTWATCH_SECURITY_MODE")
	_ = os.Unsetenv("DRIFTWATCH_API_TOKEN")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Security.SecurityMode)
	assert.Empty(t, cfg.Security.APIToken)
	assert.Equal(t, 20.0, cfg.Security.RateLimit)
	assert.Equal(t, 40, cfg.Security.RateBurst)
}
