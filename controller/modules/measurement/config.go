package measurement

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// Bucket is the store bucket holding the measurement settings document.
const Bucket = "measurement"

const configID = "default"

// Config is the durable settings document. Field names match the JSON keys
// the web UI reads and writes.
type Config struct {
	DesiredDensity         float64 `json:"desiredDensity"`
	MeasurementInterval    int     `json:"measurementInterval"` // minutes
	FillDuration           int     `json:"fillDuration"`        // seconds
	WaitDuration           int     `json:"waitDuration"`        // seconds
	MeasurementDuration    int     `json:"measurementDuration"` // seconds, one sample per second
	EmptyDuration          int     `json:"emptyDuration"`       // seconds
	CalibrationOffset      float64 `json:"calibrationOffset"`
	CalibrationScale       float64 `json:"calibrationScale"`
	LastMeasurementValue   float64 `json:"lastMeasurementValue"`
	LastMeasurementTime    int64   `json:"lastMeasurementTime"` // unix seconds, 0 = none
	LastMeasurementAngle   float64 `json:"lastMeasurementAngle"`
	TargetAngleMin         float64 `json:"targetAngleMin"`
	TargetAngleMax         float64 `json:"targetAngleMax"`
	AutoMeasurementEnabled bool    `json:"autoMeasurementEnabled"`

	// ConversionExpression optionally replaces the built-in linear
	// angle-to-density map, e.g. "1.0 + angle * 0.0011". The variable
	// "angle" is the calibrated angle; the clamp still applies.
	ConversionExpression string `json:"conversionExpression"`
}

func DefaultConfig() Config {
	return Config{
		DesiredDensity:      1.025,
		MeasurementInterval: 30,
		FillDuration:        5,
		WaitDuration:        60,
		MeasurementDuration: 10,
		EmptyDuration:       120,
		CalibrationOffset:   0.0,
		CalibrationScale:    1.0,
		TargetAngleMin:      40.0,
		TargetAngleMax:      45.0,
	}
}

func (c Config) Validate() error {
	if c.FillDuration <= 0 || c.WaitDuration <= 0 || c.MeasurementDuration <= 0 || c.EmptyDuration <= 0 {
		return fmt.Errorf("measurement: all durations must be positive")
	}
	if c.AutoMeasurementEnabled && c.MeasurementInterval <= 0 {
		return fmt.Errorf("measurement: interval must be positive when automatic measurement is enabled")
	}
	if c.TargetAngleMin > c.TargetAngleMax {
		return fmt.Errorf("measurement: target angle range is inverted")
	}
	if c.ConversionExpression != "" {
		if _, err := govaluate.NewEvaluableExpression(c.ConversionExpression); err != nil {
			return fmt.Errorf("measurement: conversion expression: %w", err)
		}
	}
	return nil
}
