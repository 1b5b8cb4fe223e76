// internal/poller/types.go
package poller

import "time"

// PhTempReader abstracts the pH/temperature transmitter.
// The engine depends on readings only, so tests inject fakes.
type PhTempReader interface {
	ReadAll() (tempC, ph float64, err error)
}

// SpectralController abstracts the spectral/actuator board.
type SpectralController interface {
	WriteLed(value uint16) error
	WriteRelay(value uint16) error
	ReadSpectral() (values []uint16, statusWord uint16, err error)
}

// Devices bundles one reactor's opened device handles. Close releases the
// shared serial link; it may be nil for fakes.
type Devices struct {
	Ph       PhTempReader
	Spectral SpectralController
	Close    func() error
}

// Opener establishes the device connections for a session.
// ONE attempt per call; failure is fatal to the session.
type Opener func() (*Devices, error)

// Reading is the snapshot produced by one fully successful poll cycle.
// Immutable once constructed; the engine keeps no reference after emission.
type Reading struct {
	ReactorName string
	Timestamp   time.Time

	TemperatureC float64
	PH           float64

	// Light holds the 9 published spectral channels in fixed order
	// [F1..F8, NIR]; CLEAR is dropped before this point.
	Light []uint16

	Relay uint16
	Led   uint16

	// Status is the device-reported status word: 0 = OK, nonzero carries
	// fault bits. A nonzero status does not fail the cycle.
	Status uint16
}
