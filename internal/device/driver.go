// internal/device/driver.go
package device

import (
	"encoding/binary"
	"fmt"
)

// Driver translates domain reads/writes into holding-register operations
// for one slave. Pure protocol plumbing: no retry, no locking. A single
// call is atomic only at the wire level; retry belongs to the caller.
type Driver struct {
	conn RegisterClient
}

// NewDriver wraps a slave-bound register client.
func NewDriver(conn RegisterClient) *Driver {
	return &Driver{conn: conn}
}

// ReadScaledRegister reads one holding register and applies the divisor
// implied by decimals (1 decimal place = raw / 10). When signed, the raw
// 16-bit value is interpreted as two's complement.
func (d *Driver) ReadScaledRegister(address uint16, decimals int, signed bool) (float64, error) {
	op := fmt.Sprintf("read register %d", address)

	regs, err := d.readBlock(op, address, 1)
	if err != nil {
		return 0, err
	}

	var value float64
	if signed {
		value = float64(int16(regs[0]))
	} else {
		value = float64(regs[0])
	}

	divisor := 1.0
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}
	return value / divisor, nil
}

// ReadRegisterBlock reads count consecutive holding registers, returned
// in register order, unscaled.
func (d *Driver) ReadRegisterBlock(address, count uint16) ([]uint16, error) {
	op := fmt.Sprintf("read block %d+%d", address, count)
	return d.readBlock(op, address, count)
}

// WriteRegister writes one holding register, unscaled.
func (d *Driver) WriteRegister(address, value uint16) error {
	if _, err := d.conn.WriteSingleRegister(address, value); err != nil {
		return classify(fmt.Sprintf("write register %d", address), err)
	}
	return nil
}

func (d *Driver) readBlock(op string, address, count uint16) ([]uint16, error) {
	payload, err := d.conn.ReadHoldingRegisters(address, count)
	if err != nil {
		return nil, classify(op, err)
	}
	if len(payload) < int(count)*2 {
		return nil, &ShortResponseError{Op: op, Want: int(count), Got: len(payload) / 2}
	}

	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(payload[2*i:])
	}
	return regs, nil
}
