// internal/calibrate/calibrate.go

// Package calibrate turns raw poll snapshots into operator-facing values:
// offset-corrected temperature and pH, and the harvest-rate percentage
// derived from the green spectral channel. Pure functions; all state
// lives in the Params the caller supplies.
package calibrate

import (
	"github.com/greendeserttech/reactor-monitor/internal/poller"
)

// GreenChannelIndex is the position of the green (F5, 555 nm) channel in
// the 9-value published light order [F1..F8, NIR].
const GreenChannelIndex = 4

// Default green-channel thresholds: intensity where harvesting starts
// (> 0%) and where it reaches 100%.
const (
	DefaultGreenStartIntensity = 1000
	DefaultGreenFullIntensity  = 10000
)

// Params holds the calibration parameters for one reactor.
type Params struct {
	// TempOffsetC is added to the raw temperature.
	TempOffsetC float64
	// PhOffset is added to the raw pH.
	PhOffset float64
	// GreenStartIntensity and GreenFullIntensity bound the linear
	// harvest-rate interpolation on the green channel.
	GreenStartIntensity int
	GreenFullIntensity  int
}

// DefaultParams returns zero offsets and the default green thresholds.
func DefaultParams() Params {
	return Params{
		GreenStartIntensity: DefaultGreenStartIntensity,
		GreenFullIntensity:  DefaultGreenFullIntensity,
	}
}

// Derived is the calibrated view of one Reading.
type Derived struct {
	TemperatureC   float64
	PH             float64
	HarvestPercent float64
}

// CorrectedTemperature applies the linear temperature offset.
func CorrectedTemperature(rawC float64, p Params) float64 {
	return rawC + p.TempOffsetC
}

// CorrectedPH applies the linear pH offset.
func CorrectedPH(raw float64, p Params) float64 {
	return raw + p.PhOffset
}

// HarvestPercent maps a green-channel intensity onto 0..100%.
// Below start the rate is 0; at or above full it is 100; in between it is
// linear. A degenerate range (full <= start) is treated as full = start+1
// so the interpolation never divides by zero.
func HarvestPercent(green, startIntensity, fullIntensity int) float64 {
	if fullIntensity <= startIntensity {
		fullIntensity = startIntensity + 1
	}

	switch {
	case green < startIntensity:
		return 0
	case green >= fullIntensity:
		return 100
	default:
		return float64(green-startIntensity) * 100.0 / float64(fullIntensity-startIntensity)
	}
}

// Apply calibrates one Reading. A light slice too short to contain the
// green channel yields a zero harvest rate rather than a panic.
func Apply(r poller.Reading, p Params) Derived {
	d := Derived{
		TemperatureC: CorrectedTemperature(r.TemperatureC, p),
		PH:           CorrectedPH(r.PH, p),
	}
	if len(r.Light) > GreenChannelIndex {
		d.HarvestPercent = HarvestPercent(
			int(r.Light[GreenChannelIndex]),
			p.GreenStartIntensity,
			p.GreenFullIntensity,
		)
	}
	return d
}
