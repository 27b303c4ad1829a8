package ledservice

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Server runs the peripheral state machine: advertise, serve one
// connection event by event, reset outputs on disconnect, repeat.
//
// The authoritative mask is the last byte accepted by a write. Events are
// handled strictly one at a time; the applier runs before any notify.
type Server struct {
	stack   Stack
	outputs OutputDriver
	log     *logrus.Entry

	mask    uint8
	battery uint8
}

// NewServer creates a server over the given stack and output driver.
func NewServer(stack Stack, outputs OutputDriver, log *logrus.Entry) *Server {
	return &Server{
		stack:   stack,
		outputs: outputs,
		log:     log,
		battery: 100,
	}
}

// Mask returns the last accepted mask.
func (s *Server) Mask() uint8 {
	return s.mask
}

// Run loops forever: advertise, serve, reset. It returns only on a
// stack-level failure, which is unrecoverable.
func (s *Server) Run() error {
	for {
		s.log.Info("advertising")
		if err := s.stack.AdvertiseAndWait(); err != nil {
			return fmt.Errorf("advertise: %w", err)
		}
		s.log.Info("central connected")

		s.serveConnection()

		// Safety default: whatever the cause of the disconnect, the
		// outputs must end up off.
		s.mask = 0
		AllOff(s.outputs)
		s.log.Info("central disconnected, outputs off")
	}
}

// serveConnection dispatches GATT events until the link ends.
func (s *Server) serveConnection() {
	for {
		ev, err := s.stack.NextEvent()
		if err != nil {
			s.log.WithError(err).Warn("link lost")
			return
		}
		if ev.Kind == EventDisconnect {
			return
		}
		s.handleEvent(ev)
	}
}

func (s *Server) handleEvent(ev Event) {
	switch ev.Kind {
	case EventWrite:
		s.handleWrite(ev)
	case EventSubscribe:
		s.log.WithFields(logrus.Fields{
			"char":          ev.Char.String(),
			"notifications": ev.Notify,
		}).Info("subscription changed")
	}
}

func (s *Server) handleWrite(ev Event) {
	if ev.Char != CharLEDMask {
		s.log.WithField("char", ev.Char.String()).Warn("write to read-only characteristic ignored")
		return
	}
	if len(ev.Payload) == 0 {
		s.log.Warn("empty mask write ignored")
		return
	}
	if len(ev.Payload) > 1 {
		// Lenient parse: take the first byte, ignore the rest.
		s.log.WithField("len", len(ev.Payload)).Warn("oversized mask write, taking first byte")
	}

	mask := ev.Payload[0]
	s.log.WithField("mask", fmt.Sprintf("0x%02x", mask)).Info("mask write")

	s.mask = mask
	ApplyMask(s.outputs, mask)

	// Confirm the applied state back to the peer. An unsubscribed peer
	// makes this fail; that does not touch the stored mask.
	if err := s.stack.Notify(CharLEDMask, mask); err != nil {
		s.log.WithError(err).Warn("mask notify failed")
	}
}
