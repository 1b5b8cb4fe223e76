// internal/device/bus.go
package device

import (
	"errors"
	"time"

	"github.com/goburrow/modbus"
)

const (
	// DefaultBaudRate matches the factory setting of both slave boards.
	DefaultBaudRate = 9600
	// DefaultTimeout bounds every register transaction on the wire.
	DefaultTimeout = 500 * time.Millisecond
)

// RegisterClient is the exact subset of Modbus operations the register
// driver needs: holding-register reads (FC 3) and single-register writes
// (FC 6). Results are raw big-endian payload bytes, as goburrow returns
// them.
type RegisterClient interface {
	ReadHoldingRegisters(address, quantity uint16) (results []byte, err error)
	WriteSingleRegister(address, value uint16) (results []byte, err error)
}

// Bus owns one RS-485 serial link with multiple slaves on it.
// It is NOT safe for concurrent use: the polling worker is the sole owner
// of the link for the lifetime of a session, so conns bound to different
// slave addresses may share the handler without locking.
type Bus struct {
	handler *modbus.RTUClientHandler
	client  modbus.Client
}

// OpenBus opens the serial port in Modbus RTU mode: 8 data bits, no
// parity, 1 stop bit. Failure to open is a *DeviceOpenError.
func OpenBus(port string, baudRate int, timeout time.Duration) (*Bus, error) {
	if port == "" {
		return nil, &DeviceOpenError{Port: port, Err: errors.New("serial port required")}
	}
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	handler := modbus.NewRTUClientHandler(port)
	handler.BaudRate = baudRate
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.Timeout = timeout

	if err := handler.Connect(); err != nil {
		return nil, &DeviceOpenError{Port: port, Err: err}
	}

	return &Bus{
		handler: handler,
		client:  modbus.NewClient(handler),
	}, nil
}

// Close closes the serial port.
func (b *Bus) Close() error {
	if b == nil || b.handler == nil {
		return nil
	}
	return b.handler.Close()
}

// Conn binds the shared link to one slave address. Each call on the
// returned client re-addresses the handler before the transaction.
func (b *Bus) Conn(slaveID byte) RegisterClient {
	return &slaveConn{bus: b, slaveID: slaveID}
}

type slaveConn struct {
	bus     *Bus
	slaveID byte
}

func (c *slaveConn) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	c.bus.handler.SlaveId = c.slaveID
	return c.bus.client.ReadHoldingRegisters(address, quantity)
}

func (c *slaveConn) WriteSingleRegister(address, value uint16) ([]byte, error) {
	c.bus.handler.SlaveId = c.slaveID
	return c.bus.client.WriteSingleRegister(address, value)
}
