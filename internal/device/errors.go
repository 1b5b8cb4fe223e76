// internal/device/errors.go
package device

import (
	"errors"
	"fmt"

	"github.com/goburrow/modbus"
)

// TransportError is a link-level failure: timeout, framing fault, bad CRC,
// or a dead serial connection. Transient by nature; the caller decides
// whether to retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the slave answered, but with a Modbus exception
// response. The link is fine; the device rejected the request.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// DeviceOpenError means the serial connection could not be established.
// Fatal for the session: the poll loop never starts on top of it.
type DeviceOpenError struct {
	Port string
	Err  error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Port, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// ShortResponseError means the device returned fewer registers than
// requested. Downstream consumers index into register blocks by position,
// so a short block is a hard failure, never a silent truncation.
type ShortResponseError struct {
	Op   string
	Want int
	Got  int
}

func (e *ShortResponseError) Error() string {
	return fmt.Sprintf("short response: %s: want %d registers, got %d", e.Op, e.Want, e.Got)
}

// classify wraps a raw goburrow error into the driver taxonomy.
// A Modbus exception response surfaces as *modbus.ModbusError; everything
// else is link-level.
func classify(op string, err error) error {
	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return &ProtocolError{Op: op, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}
