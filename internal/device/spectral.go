// internal/device/spectral.go
package device

// AS7341 spectral/actuator board register map (0-based):
//
//	0:    LED control     (0 = off, nonzero = on)
//	1:    relay control   (0 = off, nonzero = on)
//	2-11: spectral block  [F1..F8, CLEAR, NIR]
//	12:   status word     (0 = OK, nonzero = device fault bits)
const (
	spectralRegLED          = 0
	spectralRegRelay        = 1
	spectralRegFirstChannel = 2
	spectralNumChannels     = 10 // F1..F8, CLEAR, NIR
	spectralRegStatusWord   = 12

	spectralClearIndex = 8 // position of CLEAR in the raw block

	// SpectralChannelCount is the number of published channels per reading:
	// [F1..F8, NIR], CLEAR dropped.
	SpectralChannelCount = spectralNumChannels - 1
)

// SpectralBoard is the profile for the AS7341-based spectral sensor with
// LED and relay outputs.
type SpectralBoard struct {
	drv *Driver
}

// NewSpectralBoard binds the profile to one slave on the bus.
func NewSpectralBoard(conn RegisterClient) *SpectralBoard {
	return &SpectralBoard{drv: NewDriver(conn)}
}

// WriteLed sets the LED state. Any nonzero value is written as 1.
func (b *SpectralBoard) WriteLed(value uint16) error {
	return b.drv.WriteRegister(spectralRegLED, normalizeSwitch(value))
}

// WriteRelay sets the relay state. Any nonzero value is written as 1.
func (b *SpectralBoard) WriteRelay(value uint16) error {
	return b.drv.WriteRegister(spectralRegRelay, normalizeSwitch(value))
}

// ReadSpectral reads the 10-channel spectral block and the status word.
// The hardware order is [F1..F8, CLEAR, NIR]; CLEAR is dropped before
// returning, so values is always exactly SpectralChannelCount entries in
// order [F1..F8, NIR]. A block shorter than 10 registers surfaces as a
// *ShortResponseError from the driver.
func (b *SpectralBoard) ReadSpectral() (values []uint16, statusWord uint16, err error) {
	raw, err := b.drv.ReadRegisterBlock(spectralRegFirstChannel, spectralNumChannels)
	if err != nil {
		return nil, 0, err
	}

	values = make([]uint16, 0, SpectralChannelCount)
	values = append(values, raw[:spectralClearIndex]...)
	values = append(values, raw[spectralClearIndex+1:]...)

	status, err := b.drv.ReadRegisterBlock(spectralRegStatusWord, 1)
	if err != nil {
		return nil, 0, err
	}
	return values, status[0], nil
}

func normalizeSwitch(value uint16) uint16 {
	if value != 0 {
		return 1
	}
	return 0
}
