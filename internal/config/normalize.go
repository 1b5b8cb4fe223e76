// internal/config/normalize.go
package config

// MinPollIntervalMs is the floor for the poll interval. Shorter intervals
// would starve the RS-485 bus of inter-frame silence.
const MinPollIntervalMs = 100

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Poll.IntervalMs < MinPollIntervalMs {
		cfg.Poll.IntervalMs = MinPollIntervalMs
	}
	if cfg.Poll.MaxAttempts < 1 {
		cfg.Poll.MaxAttempts = 1
	}

	// A full-intensity threshold at or below the start threshold would make
	// the harvest interpolation divide by zero; push it one count up.
	if cfg.Calibration.GreenFullIntensity <= cfg.Calibration.GreenStartIntensity {
		cfg.Calibration.GreenFullIntensity = cfg.Calibration.GreenStartIntensity + 1
	}
}
