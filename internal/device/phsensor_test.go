// internal/device/phsensor_test.go
package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhTempSensor_ReadAll(t *testing.T) {
	fake := &fakeRegisterClient{regs: map[uint16]uint16{
		phRegTemperature: 214,
		phRegPH:          68,
	}}
	sensor := NewPhTempSensor(fake)

	tempC, ph, err := sensor.ReadAll()
	require.NoError(t, err)
	assert.InDelta(t, 21.4, tempC, 1e-9)
	assert.InDelta(t, 6.8, ph, 1e-9)
}

func TestPhTempSensor_NegativeTemperature(t *testing.T) {
	// -20.0°C is 0xFF38 as a signed register with one decimal.
	fake := &fakeRegisterClient{regs: map[uint16]uint16{
		phRegTemperature: 0xFF38,
		phRegPH:          70,
	}}
	sensor := NewPhTempSensor(fake)

	tempC, ph, err := sensor.ReadAll()
	require.NoError(t, err)
	assert.InDelta(t, -20.0, tempC, 1e-9)
	assert.InDelta(t, 7.0, ph, 1e-9)
}

func TestPhTempSensor_ReadAll_FailurePropagates(t *testing.T) {
	fake := &fakeRegisterClient{readErr: errors.New("no response")}
	sensor := NewPhTempSensor(fake)

	_, _, err := sensor.ReadAll()
	require.Error(t, err)

	var transErr *TransportError
	assert.ErrorAs(t, err, &transErr)
}
