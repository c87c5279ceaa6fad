package measurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertLinearMap(t *testing.T) {
	cfg := DefaultConfig()

	cal, d := Convert(45, cfg)
	assert.InDelta(t, 45.0, cal, 1e-9)
	assert.InDelta(t, 1.050, d, 1e-9)

	_, d = Convert(0, cfg)
	assert.InDelta(t, 1.000, d, 1e-9)

	_, d = Convert(-45, cfg)
	assert.InDelta(t, 0.950, d, 1e-9)

	_, d = Convert(22.5, cfg)
	assert.InDelta(t, 1.025, d, 1e-9)
}

func TestConvertAppliesCalibrationOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CalibrationOffset = -2.0
	cfg.CalibrationScale = 1.5

	cal, d := Convert(32, cfg)
	assert.InDelta(t, (32.0-2.0)*1.5, cal, 1e-9)
	assert.InDelta(t, 1.000+(cal/45.0)*0.050, d, 1e-9)
}

func TestConvertClampsToPlausibleBand(t *testing.T) {
	cfg := DefaultConfig()

	_, d := Convert(500, cfg)
	assert.Equal(t, 1.200, d)

	_, d = Convert(-500, cfg)
	assert.Equal(t, 0.900, d)
}

func TestConvertIsMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	prev := -1.0
	for a := -60.0; a <= 60.0; a += 5 {
		_, d := Convert(a, cfg)
		assert.GreaterOrEqual(t, d, prev, "angle %v", a)
		prev = d
	}
}

func TestConvertExpressionOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConversionExpression = "1.0 + angle * 0.002"

	cal, d := Convert(30, cfg)
	assert.InDelta(t, 30.0, cal, 1e-9)
	assert.InDelta(t, 1.060, d, 1e-9)

	// Expression output is still clamped
	cfg.ConversionExpression = "9.9"
	_, d = Convert(0, cfg)
	assert.Equal(t, 1.200, d)

	// A broken expression falls back to the linear map
	cfg.ConversionExpression = "angle +"
	_, d = Convert(45, cfg)
	assert.InDelta(t, 1.050, d, 1e-9)
}
