package measurement

import "github.com/Knetic/govaluate"

// Density bounds; anything outside is a calibration error or a sensor fault.
const (
	densityFloor   = 0.900
	densityCeiling = 1.200
)

// Convert turns a raw averaged angle into the calibrated angle and density.
// The calibration offset and scale are applied once, then the angle maps
// linearly: 45 degrees of tilt is +0.050 density over a 1.000 baseline. The
// output is clamped to the plausible band regardless of how the value was
// produced.
func Convert(rawAngle float64, cfg Config) (calibrated, density float64) {
	calibrated = (rawAngle + cfg.CalibrationOffset) * cfg.CalibrationScale
	density = 1.000 + (calibrated/45.0)*0.050

	if cfg.ConversionExpression != "" {
		if v, err := evalExpression(cfg.ConversionExpression, calibrated); err == nil {
			density = v
		}
		// A broken expression falls back to the linear map; Validate
		// rejects unparsable expressions before they are saved.
	}

	if density < densityFloor {
		density = densityFloor
	}
	if density > densityCeiling {
		density = densityCeiling
	}
	return calibrated, density
}

func evalExpression(expr string, angle float64) (float64, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, err
	}
	v, err := e.Evaluate(map[string]interface{}{"angle": angle})
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, errNotNumeric
	}
	return f, nil
}

type conversionError string

func (e conversionError) Error() string { return string(e) }

const errNotNumeric = conversionError("conversion expression did not yield a number")
