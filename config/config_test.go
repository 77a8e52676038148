package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("MQTT_BROKER", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 0.40, cfg.StrongDefectThreshold)
	require.Equal(t, 0.25, cfg.ModerateDefectThreshold)
	require.Equal(t, 0.15, cfg.WeakDefectThreshold)
	require.Equal(t, 0.60, cfg.WeakNormalCeiling)
	require.Equal(t, 250*time.Millisecond, cfg.InferenceInterval)
	require.Equal(t, 4*time.Second, cfg.HysteresisHold)
	require.Equal(t, "every_tick", cfg.CapturePolicy)
	require.Equal(t, "requantize", cfg.QuantizationPolicy)
	require.Equal(t, 640, cfg.CameraWidth)
	require.Equal(t, 480, cfg.CameraHeight)
	require.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	require.Equal(t, ":8000", cfg.HTTPAddr)
	require.Empty(t, cfg.TelegramToken)
	require.Empty(t, cfg.MQTTBroker)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STRONG_DEFECT_THRESHOLD", "0.5")
	t.Setenv("INFERENCE_INTERVAL", "200ms")
	t.Setenv("CAPTURE_POLICY", "cooldown")
	t.Setenv("CAMERA_FPS", "30")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 0.5, cfg.StrongDefectThreshold)
	require.Equal(t, 200*time.Millisecond, cfg.InferenceInterval)
	require.Equal(t, "cooldown", cfg.CapturePolicy)
	require.Equal(t, 30, cfg.CameraFPS)
	require.True(t, cfg.LogDevelopment)
}

func TestLoad_ReportsAllParseErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HYSTERESIS_HOLD", "four seconds")
	t.Setenv("CAMERA_WIDTH", "wide")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "HYSTERESIS_HOLD")
	require.Contains(t, err.Error(), "CAMERA_WIDTH")
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	cfg.InferenceInterval = 0
	cfg.CameraWidth = -1
	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "INFERENCE_INTERVAL")
	require.Contains(t, err.Error(), "camera resolution")
}
