// Package ledservice implements the peripheral side of the LED link: the
// mask applier, the GATT LED service event dispatch, and the
// advertise-connect loop that serves one central at a time.
package ledservice

import (
	"github.com/sirupsen/logrus"

	"ledlink/ledwire"
)

// OutputDriver drives the physical (or simulated) indicator outputs.
// Index is 0-based; polarity is the driver's concern.
type OutputDriver interface {
	SetOutput(index int, on bool)
}

// ApplyMask sets output i on iff bit i of mask is set, for the meaningful
// bits only. Bits above ledwire.LedCount have no effect.
func ApplyMask(d OutputDriver, mask uint8) {
	for i := 0; i < ledwire.LedCount; i++ {
		d.SetOutput(i, mask&ledwire.Bit(i) != 0)
	}
}

// AllOff forces every output off, the safety default after a disconnect.
func AllOff(d OutputDriver) {
	for i := 0; i < ledwire.LedCount; i++ {
		d.SetOutput(i, false)
	}
}

// LogDriver is an OutputDriver that logs state transitions. It stands in
// for a GPIO driver when the peripheral runs on a desktop adapter.
type LogDriver struct {
	log   *logrus.Entry
	state [ledwire.LedCount]bool
}

// NewLogDriver creates a LogDriver with all outputs off.
func NewLogDriver(log *logrus.Entry) *LogDriver {
	return &LogDriver{log: log}
}

func (d *LogDriver) SetOutput(index int, on bool) {
	if index < 0 || index >= ledwire.LedCount {
		return
	}
	if d.state[index] == on {
		return
	}
	d.state[index] = on
	d.log.WithFields(logrus.Fields{"led": index + 1, "on": on}).Info("output changed")
}
