// internal/device/ports.go
package device

import (
	"fmt"

	"go.bug.st/serial"
)

// ListPorts returns the names of the serial ports present on this machine,
// for operator-facing port selection. Purely informational: nothing here
// touches the Modbus link.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
