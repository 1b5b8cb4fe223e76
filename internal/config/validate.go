// internal/config/validate.go
package config

import (
	"fmt"
)

// Modbus slave address limits per the RTU spec.
const (
	minSlaveID = 1
	maxSlaveID = 247
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg.Serial.Port == "" {
		return fmt.Errorf("serial: port is required")
	}
	if cfg.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial: baud_rate must be > 0, got %d", cfg.Serial.BaudRate)
	}
	if cfg.Serial.TimeoutMs <= 0 {
		return fmt.Errorf("serial: timeout_ms must be > 0, got %d", cfg.Serial.TimeoutMs)
	}

	if cfg.Reactor.Name == "" {
		return fmt.Errorf("reactor: name is required")
	}
	if err := checkSlaveID("ph_slave_id", cfg.Reactor.PhSlaveID); err != nil {
		return err
	}
	if err := checkSlaveID("spectral_slave_id", cfg.Reactor.SpectralSlaveID); err != nil {
		return err
	}
	if cfg.Reactor.PhSlaveID == cfg.Reactor.SpectralSlaveID {
		return fmt.Errorf(
			"reactor: ph_slave_id and spectral_slave_id collide on address %d",
			cfg.Reactor.PhSlaveID,
		)
	}

	if cfg.Poll.IntervalMs <= 0 {
		return fmt.Errorf("poll: interval_ms must be > 0, got %d", cfg.Poll.IntervalMs)
	}
	if cfg.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll: max_attempts must be > 0, got %d", cfg.Poll.MaxAttempts)
	}

	return nil
}

func checkSlaveID(field string, id int) error {
	if id < minSlaveID || id > maxSlaveID {
		return fmt.Errorf(
			"reactor: %s must be in %d..%d, got %d",
			field, minSlaveID, maxSlaveID, id,
		)
	}
	return nil
}
