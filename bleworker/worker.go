package bleworker

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ledlink/blecentral"
	"ledlink/devicestore"
	"ledlink/ledwire"
)

// Worker owns the adapter, the last scan snapshot and the at-most-one
// active (link, characteristic) pair. It is the sole mutator of
// connection state; the UI only sees immutable Event values.
type Worker struct {
	central blecentral.Central
	store   *devicestore.Store
	cmds    <-chan Command
	events  chan<- Event
	dwell   time.Duration
	log     *logrus.Entry

	link    blecentral.Link
	ledChar blecentral.Characteristic
}

// New creates a worker. Run must be started on its own goroutine.
func New(central blecentral.Central, store *devicestore.Store, cmds <-chan Command, events chan<- Event, dwell time.Duration, log *logrus.Entry) *Worker {
	return &Worker{
		central: central,
		store:   store,
		cmds:    cmds,
		events:  events,
		dwell:   dwell,
		log:     log,
	}
}

// Run consumes commands until the command channel closes or the stack
// fails at the adapter level. A fatal exit is announced with an
// EventWorkerStopped so the UI knows no further commands will run.
func (w *Worker) Run() {
	if err := w.central.Enable(); err != nil {
		w.log.WithError(err).Error("adapter enable failed")
		w.emitLog("BLE adapter unavailable: %v", err)
		w.stop(err)
		return
	}
	w.emitLog("BLE worker started.")

	for cmd := range w.cmds {
		switch cmd.Kind {
		case CmdScan:
			if err := w.scan(); err != nil {
				w.stop(err)
				return
			}
		case CmdConnect:
			w.connect(cmd.Addr)
		case CmdDisconnect:
			w.disconnect()
		case CmdSetMask:
			w.setMask(cmd.Mask)
		}
	}
}

// scan replaces the snapshot and reports it. A scan-start failure is an
// adapter-level fault and is returned as fatal.
func (w *Worker) scan() error {
	w.emitLog("Scanning (%s)...", w.dwell)

	devices, err := w.central.Scan(w.dwell)
	if err != nil {
		w.emitLog("Scan failed: %v", err)
		return fmt.Errorf("scan: %w", err)
	}

	SortDevices(devices)
	w.store.Replace(devices)

	w.emit(Event{Kind: EventScanResults, Devices: devices})
	w.emitLog("Scan results: %d device(s)", len(devices))
	return nil
}

func (w *Worker) connect(addr string) {
	w.log.WithField("addr", addr).Info("connect requested")

	dev, ok := w.store.Find(addr)
	if !ok {
		w.emitLog("That device was not in the last scan list.")
		return
	}

	link, err := w.central.Connect(dev.Addr)
	if err != nil {
		w.emitLog("Connect failed: %v", err)
		w.emit(Event{Kind: EventConnectionState, Connected: false})
		return
	}

	ch, err := link.DiscoverCharacteristic(ledwire.LEDServiceUUID, ledwire.LEDMaskCharUUID)
	if err != nil {
		w.emitLog("LED characteristic %s not found on device: %v", ledwire.LEDMaskCharUUID, err)
		if err := link.Disconnect(); err != nil {
			w.log.WithError(err).Warn("disconnect after failed discovery")
		}
		w.emit(Event{Kind: EventConnectionState, Connected: false})
		return
	}

	if !ch.CanWrite() {
		w.emitLog("Warning: LED characteristic is not writable; attempting anyway.")
	}

	// The peripheral confirms each applied mask with a notification;
	// surfacing it is best-effort.
	if err := ch.Subscribe(func(p []byte) {
		if len(p) > 0 {
			w.emitLog("Peripheral confirmed mask 0x%02x", p[0])
		}
	}); err != nil {
		w.emitLog("Mask notifications unavailable: %v", err)
	}

	w.link = link
	w.ledChar = ch
	w.emit(Event{Kind: EventConnectionState, Connected: true})
}

func (w *Worker) disconnect() {
	if w.link != nil {
		w.emitLog("Disconnecting...")
		if err := w.link.Disconnect(); err != nil {
			w.log.WithError(err).Warn("disconnect")
		}
		w.link = nil
		w.ledChar = nil
	}
	w.emit(Event{Kind: EventConnectionState, Connected: false})
}

func (w *Worker) setMask(mask uint8) {
	if w.ledChar == nil {
		w.emitLog("Not connected; ignoring LED write.")
		return
	}
	if err := w.ledChar.Write([]byte{mask}); err != nil {
		w.emitLog("Write failed: %v", err)
		return
	}
	w.emitLog("Wrote LED mask 0x%02x", mask)
}

func (w *Worker) stop(err error) {
	w.log.WithError(err).Error("worker stopping")
	w.emit(Event{Kind: EventWorkerStopped, Line: err.Error()})
}

func (w *Worker) emit(ev Event) {
	w.events <- ev
}

func (w *Worker) emitLog(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	w.log.Info(line)
	w.emit(Event{Kind: EventLog, Line: line})
}
