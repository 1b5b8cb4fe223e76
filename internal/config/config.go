// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full monitoring-session configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Reactor     ReactorConfig     `yaml:"reactor"`
	Poll        PollConfig        `yaml:"poll"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Log         LogConfig         `yaml:"log"`
}

// SerialConfig describes the RS-485 link both slaves sit on.
type SerialConfig struct {
	Port      string `yaml:"port"`
	BaudRate  int    `yaml:"baud_rate"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ReactorConfig identifies one reactor on the bus. Immutable for the
// lifetime of a session.
type ReactorConfig struct {
	Name            string `yaml:"name"`
	PhSlaveID       int    `yaml:"ph_slave_id"`
	SpectralSlaveID int    `yaml:"spectral_slave_id"`
}

// PollConfig holds the cycle timing and retry budget.
type PollConfig struct {
	IntervalMs  int `yaml:"interval_ms"`
	MaxAttempts int `yaml:"max_attempts"`
}

// CalibrationConfig holds the derived-metric calibration parameters.
// Offsets are applied as corrected = raw + offset.
type CalibrationConfig struct {
	TempOffsetC         float64 `yaml:"temp_offset_c"`
	PhOffset            float64 `yaml:"ph_offset"`
	GreenStartIntensity int     `yaml:"green_start_intensity"`
	GreenFullIntensity  int     `yaml:"green_full_intensity"`
}

// LogConfig controls optional on-disk logging of readings.
type LogConfig struct {
	CsvPath string `yaml:"csv_path"`
}

// Default returns a configuration with sensible values for a single
// reactor with the factory slave addressing.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:      "",
			BaudRate:  9600,
			TimeoutMs: 500,
		},
		Reactor: ReactorConfig{
			Name:            "Reactor 1",
			PhSlaveID:       1,
			SpectralSlaveID: 50,
		},
		Poll: PollConfig{
			IntervalMs:  1000,
			MaxAttempts: 3,
		},
		Calibration: CalibrationConfig{
			TempOffsetC:         0,
			PhOffset:            0,
			GreenStartIntensity: 1000,
			GreenFullIntensity:  10000,
		},
	}
}

// Load reads configuration from a YAML file on top of defaults. A missing
// file yields defaults, not an error.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ensureDefaults fills fields the file left at zero.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.TimeoutMs == 0 {
		c.Serial.TimeoutMs = def.Serial.TimeoutMs
	}

	if c.Reactor.Name == "" {
		c.Reactor.Name = def.Reactor.Name
	}
	if c.Reactor.PhSlaveID == 0 {
		c.Reactor.PhSlaveID = def.Reactor.PhSlaveID
	}
	if c.Reactor.SpectralSlaveID == 0 {
		c.Reactor.SpectralSlaveID = def.Reactor.SpectralSlaveID
	}

	if c.Poll.IntervalMs == 0 {
		c.Poll.IntervalMs = def.Poll.IntervalMs
	}
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = def.Poll.MaxAttempts
	}

	if c.Calibration.GreenStartIntensity == 0 {
		c.Calibration.GreenStartIntensity = def.Calibration.GreenStartIntensity
	}
	if c.Calibration.GreenFullIntensity == 0 {
		c.Calibration.GreenFullIntensity = def.Calibration.GreenFullIntensity
	}
}
