package controller

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Settings is the boot configuration loaded from a yaml file. Everything an
// operator would change when wiring a new unit lives here; measurement
// parameters live in the persisted store instead.
type Settings struct {
	Listen   string `yaml:"listen"`
	Database string `yaml:"database"`
	DataDir  string `yaml:"data_dir"`
	WebDir   string `yaml:"web_dir"`
	Dev      bool   `yaml:"dev"`

	TickMs            int `yaml:"tick_ms"`
	DisplayRefreshSec int `yaml:"display_refresh_sec"`

	GPIO struct {
		Chip         string `yaml:"chip"`
		FillPin      int    `yaml:"fill_pin"`
		EmptyPin     int    `yaml:"empty_pin"`
		IndicatorPin int    `yaml:"indicator_pin"`
		ActiveLow    bool   `yaml:"active_low"`
	} `yaml:"gpio"`

	I2C struct {
		SensorAddress  byte `yaml:"sensor_address"`
		RTCAddress     byte `yaml:"rtc_address"`
		DisplayAddress byte `yaml:"display_address"`
	} `yaml:"i2c"`

	MQTT struct {
		Broker string `yaml:"broker"`
		Topic  string `yaml:"topic"`
	} `yaml:"mqtt"`
}

func DefaultSettings() Settings {
	var s Settings
	s.Listen = ":8080"
	s.Database = "densimeter.db"
	s.DataDir = "data"
	s.WebDir = "web"
	s.TickMs = 200
	s.DisplayRefreshSec = 3
	s.GPIO.Chip = "gpiochip0"
	s.GPIO.FillPin = 25
	s.GPIO.EmptyPin = 26
	s.GPIO.IndicatorPin = 27
	s.GPIO.ActiveLow = true
	// The DS3231 is hardwired to 0x68, so the tilt sensor's AD0 pin must be
	// strapped high to move it to 0x69 when both share the bus.
	s.I2C.SensorAddress = 0x69
	s.I2C.RTCAddress = 0x68
	s.I2C.DisplayAddress = 0x3C
	s.MQTT.Topic = "densimeter/measurements"
	return s
}

// LoadSettings reads the settings file, filling gaps with defaults. A missing
// file is not an error; defaults apply.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return s, nil
}
