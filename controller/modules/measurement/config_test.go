package measurement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1.025, cfg.DesiredDensity)
	assert.Equal(t, 30, cfg.MeasurementInterval)
	assert.Equal(t, 10, cfg.MeasurementDuration)
	assert.Equal(t, 1.0, cfg.CalibrationScale)
	assert.False(t, cfg.AutoMeasurementEnabled)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FillDuration = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.AutoMeasurementEnabled = true
	cfg.MeasurementInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TargetAngleMin = 50
	cfg.TargetAngleMax = 40
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ConversionExpression = "1.0 + angle *"
	assert.Error(t, cfg.Validate())

	cfg.ConversionExpression = "1.0 + angle * 0.0011"
	assert.NoError(t, cfg.Validate())
}

func TestConfigJSONRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoMeasurementEnabled = true
	cfg.LastMeasurementValue = 1.031
	cfg.LastMeasurementTime = 1756450800
	cfg.LastMeasurementAngle = 27.9
	cfg.ConversionExpression = "1.0 + angle * 0.0011"

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var back Config
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, cfg, back)
}
