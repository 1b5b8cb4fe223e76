// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/greendeserttech/reactor-monitor/internal/config"
	"github.com/greendeserttech/reactor-monitor/internal/device"
)

// Build constructs an Engine wired to real hardware from validated,
// normalized configuration. The serial link is opened lazily inside the
// worker on Start, one attempt per session.
func Build(c *cfg.Config) (*Engine, error) {
	serial := c.Serial
	reactor := c.Reactor

	open := func() (*Devices, error) {
		bus, err := device.OpenBus(
			serial.Port,
			serial.BaudRate,
			time.Duration(serial.TimeoutMs)*time.Millisecond,
		)
		if err != nil {
			return nil, err
		}
		return &Devices{
			Ph:       device.NewPhTempSensor(bus.Conn(byte(reactor.PhSlaveID))),
			Spectral: device.NewSpectralBoard(bus.Conn(byte(reactor.SpectralSlaveID))),
			Close:    bus.Close,
		}, nil
	}

	return New(
		Config{
			ReactorName:    reactor.Name,
			PollIntervalMs: c.Poll.IntervalMs,
			MaxAttempts:    c.Poll.MaxAttempts,
		},
		open,
	)
}
