package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "tcp", cfg.SensorTransport)
	assert.Equal(t, 30, cfg.RRWindowBeats)
	assert.Equal(t, 300, cfg.RRMinMS)
	assert.Equal(t, 2000, cfg.RRMaxMS)
	assert.Equal(t, 250, cfg.RRMaxJumpMS)
	assert.Equal(t, 10, cfg.PNN50MinDiffs)
	assert.Equal(t, 50, cfg.PNN50ThresholdMS)
	assert.Equal(t, "delta", cfg.ClassifierStrategy)
	assert.Equal(t, 5, cfg.SmoothSize)
	assert.InDelta(t, 6.0, cfg.ChillDelta, 0.001)
	assert.Equal(t, 3, cfg.StatusSwitchThreshold)
	assert.Equal(t, 60*time.Second, cfg.RestDuration)
	assert.Equal(t, 15*time.Second, cfg.SustainedDuration)
	assert.Equal(t, 60*time.Second, cfg.Cooldown)
	assert.Equal(t, 2*time.Second, cfg.TrackPollInterval)
	assert.Equal(t, time.Second, cfg.TickInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SENSOR_TRANSPORT", "mqtt")
	t.Setenv("RR_WINDOW_BEATS", "45")
	t.Setenv("CHILL_DELTA", "8.5")
	t.Setenv("REST_DURATION_SEC", "30")
	t.Setenv("CLASSIFIER_STRATEGY", "ratio")

	cfg := Load()

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "mqtt", cfg.SensorTransport)
	assert.Equal(t, 45, cfg.RRWindowBeats)
	assert.InDelta(t, 8.5, cfg.ChillDelta, 0.001)
	assert.Equal(t, 30*time.Second, cfg.RestDuration)
	assert.Equal(t, "ratio", cfg.ClassifierStrategy)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("RR_WINDOW_BEATS", "not-a-number")
	t.Setenv("CHILL_DELTA", "abc")

	cfg := Load()

	assert.Equal(t, 30, cfg.RRWindowBeats)
	assert.InDelta(t, 6.0, cfg.ChillDelta, 0.001)
}
