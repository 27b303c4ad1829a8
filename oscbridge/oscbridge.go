// Package oscbridge exposes the LED mask over OSC, so external tools can
// drive the connected peripheral alongside the GUI.
package oscbridge

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"
	"github.com/sirupsen/logrus"

	"ledlink/bleworker"
	"ledlink/ledwire"
)

// Bridge listens for OSC messages and turns them into SetMask commands.
//
//	/led/mask <int|float|bool>  sets the whole mask
//	/led/1 .. /led/4 <truthy>   flips one bit in the bridge's shadow mask
type Bridge struct {
	addr string
	cmds chan<- bleworker.Command
	log  *logrus.Entry

	server *osc.Server

	// mask is the bridge's shadow of the per-bit endpoints. go-osc runs
	// one dispatcher goroutine per server, so no lock is needed.
	mask uint8
}

// New creates a bridge publishing commands onto cmds.
func New(addr string, cmds chan<- bleworker.Command, log *logrus.Entry) *Bridge {
	return &Bridge{addr: addr, cmds: cmds, log: log}
}

// Run starts the OSC server. It blocks until the server fails.
func (b *Bridge) Run() error {
	dispatcher := osc.NewStandardDispatcher()

	dispatcher.AddMsgHandler("/led/mask", b.handleMask)
	for i := 1; i <= ledwire.LedCount; i++ {
		led := i
		dispatcher.AddMsgHandler(fmt.Sprintf("/led/%d", led), func(msg *osc.Message) {
			b.handleBit(led, msg)
		})
	}

	b.server = &osc.Server{
		Addr:       b.addr,
		Dispatcher: dispatcher,
	}

	b.log.WithField("addr", b.addr).Info("listening for OSC")
	return b.server.ListenAndServe()
}

func (b *Bridge) handleMask(msg *osc.Message) {
	v, ok := numericArg(msg)
	if !ok {
		b.log.WithField("msg", msg.Address).Warn("mask message without numeric argument")
		return
	}
	b.mask = uint8(v) & ledwire.MaskBits
	b.send(b.mask)
}

func (b *Bridge) handleBit(led int, msg *osc.Message) {
	on, ok := truthyArg(msg)
	if !ok {
		b.log.WithField("msg", msg.Address).Warn("led message without argument")
		return
	}
	bit := ledwire.Bit(led - 1)
	if on {
		b.mask |= bit
	} else {
		b.mask &^= bit
	}
	b.send(b.mask)
}

func (b *Bridge) send(mask uint8) {
	select {
	case b.cmds <- bleworker.SetMask(mask):
	default:
		b.log.Warn("command queue full, OSC mask dropped")
	}
}

func numericArg(msg *osc.Message) (int, bool) {
	if len(msg.Arguments) == 0 {
		return 0, false
	}
	switch v := msg.Arguments[0].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func truthyArg(msg *osc.Message) (bool, bool) {
	if len(msg.Arguments) == 0 {
		return false, false
	}
	switch v := msg.Arguments[0].(type) {
	case bool:
		return v, true
	case int32:
		return v != 0, true
	case int64:
		return v != 0, true
	case float32:
		return v > 0, true
	case float64:
		return v > 0, true
	default:
		return false, false
	}
}
