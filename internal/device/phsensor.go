// internal/device/phsensor.go
package device

// CWT-BL pH/temperature transmitter register map (0-based).
const (
	phRegTemperature = 0 // holding register 40001, 1 decimal, signed
	phRegPH          = 1 // holding register 40002, 1 decimal, unsigned
)

// PhTempSensor is the profile for a CWT-BL pH/temperature transmitter.
type PhTempSensor struct {
	drv *Driver
}

// NewPhTempSensor binds the profile to one slave on the bus.
func NewPhTempSensor(conn RegisterClient) *PhTempSensor {
	return &PhTempSensor{drv: NewDriver(conn)}
}

// ReadTemperatureC reads the water temperature in degrees Celsius.
func (s *PhTempSensor) ReadTemperatureC() (float64, error) {
	return s.drv.ReadScaledRegister(phRegTemperature, 1, true)
}

// ReadPH reads the pH value.
func (s *PhTempSensor) ReadPH() (float64, error) {
	return s.drv.ReadScaledRegister(phRegPH, 1, false)
}

// ReadAll reads temperature then pH in sequence. Either failure fails the
// whole call; no partial result is reported from this layer.
func (s *PhTempSensor) ReadAll() (tempC, ph float64, err error) {
	tempC, err = s.ReadTemperatureC()
	if err != nil {
		return 0, 0, err
	}
	ph, err = s.ReadPH()
	if err != nil {
		return 0, 0, err
	}
	return tempC, ph, nil
}
