package bleworker

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ledlink/blecentral"
	"ledlink/devicestore"
	"ledlink/ledwire"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// fakeCharacteristic records writes and the notification subscriber.
type fakeCharacteristic struct {
	mu           sync.Mutex
	writes       [][]byte
	writeErr     error
	writable     bool
	subscribeErr error
	notifyCb     func([]byte)
}

func (c *fakeCharacteristic) Write(p []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(p))
	copy(cp, p)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *fakeCharacteristic) Subscribe(cb func([]byte)) error {
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyCb = cb
	return nil
}

func (c *fakeCharacteristic) CanWrite() bool { return c.writable }

// fakeLink serves one characteristic keyed by UUID.
type fakeLink struct {
	chars       map[string]*fakeCharacteristic
	discoverErr error
	disconnects int
}

func (l *fakeLink) DiscoverCharacteristic(serviceUUID, charUUID string) (blecentral.Characteristic, error) {
	if l.discoverErr != nil {
		return nil, l.discoverErr
	}
	if c, ok := l.chars[charUUID]; ok {
		return c, nil
	}
	return nil, errors.New("characteristic not found")
}

func (l *fakeLink) Disconnect() error {
	l.disconnects++
	return nil
}

type fakeCentral struct {
	enableErr  error
	scanErr    error
	connectErr error
	devices    []blecentral.Device
	link       *fakeLink
	connects   []string
}

func (c *fakeCentral) Enable() error { return c.enableErr }

func (c *fakeCentral) Scan(time.Duration) ([]blecentral.Device, error) {
	if c.scanErr != nil {
		return nil, c.scanErr
	}
	cp := make([]blecentral.Device, len(c.devices))
	copy(cp, c.devices)
	return cp, nil
}

func (c *fakeCentral) Connect(addr string) (blecentral.Link, error) {
	c.connects = append(c.connects, addr)
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	return c.link, nil
}

func newLEDCentral(devices []blecentral.Device) (*fakeCentral, *fakeCharacteristic) {
	ch := &fakeCharacteristic{writable: true}
	return &fakeCentral{
		devices: devices,
		link:    &fakeLink{chars: map[string]*fakeCharacteristic{ledwire.LEDMaskCharUUID: ch}},
	}, ch
}

// runWorker feeds the commands, runs the worker to completion and returns
// every emitted event in order.
func runWorker(t *testing.T, central blecentral.Central, commands ...Command) []Event {
	t.Helper()

	cmds := make(chan Command, len(commands)+1)
	events := make(chan Event, 128)
	for _, c := range commands {
		cmds <- c
	}
	close(cmds)

	w := New(central, devicestore.New(), cmds, events, time.Millisecond, testLog())
	w.Run()

	var out []Event
	for {
		select {
		case ev := <-events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func logsContaining(events []Event, substr string) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == EventLog && strings.Contains(ev.Line, substr) {
			out = append(out, ev)
		}
	}
	return out
}

func connectionStates(events []Event) []bool {
	var out []bool
	for _, ev := range events {
		if ev.Kind == EventConnectionState {
			out = append(out, ev.Connected)
		}
	}
	return out
}

func TestScanNamedBeatsStrongerUnnamed(t *testing.T) {
	central, _ := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
		{Addr: "BB", RSSI: -30, HasRSSI: true},
	})

	events := runWorker(t, central, Scan())

	var results []blecentral.Device
	for _, ev := range events {
		if ev.Kind == EventScanResults {
			results = ev.Devices
		}
	}
	if len(results) != 2 {
		t.Fatalf("scan results = %v, want 2 devices", results)
	}
	if results[0].Addr != "AA" || results[1].Addr != "BB" {
		t.Errorf("order = [%s %s], want [AA BB]", results[0].Addr, results[1].Addr)
	}
	if got := logsContaining(events, "2 device(s)"); len(got) != 1 {
		t.Errorf("expected one count summary log, got %v", got)
	}
}

func TestSortDevicesMissingRSSIIsWeakest(t *testing.T) {
	devices := []blecentral.Device{
		{Addr: "1"},                              // unnamed, no RSSI
		{Addr: "2", RSSI: -95, HasRSSI: true},    // unnamed, weak
		{Addr: "3", Name: "n"},                   // named, no RSSI
		{Addr: "4", Name: "n", RSSI: -90, HasRSSI: true},
	}
	SortDevices(devices)

	want := []string{"4", "3", "2", "1"}
	for i, addr := range want {
		if devices[i].Addr != addr {
			t.Fatalf("position %d = %s, want %s (full order %v)", i, devices[i].Addr, addr, devices)
		}
	}
}

func TestSortDevicesStableTies(t *testing.T) {
	devices := []blecentral.Device{
		{Addr: "first", Name: "a", RSSI: -50, HasRSSI: true},
		{Addr: "second", Name: "b", RSSI: -50, HasRSSI: true},
	}
	SortDevices(devices)
	if devices[0].Addr != "first" {
		t.Error("equal sort keys must keep enumeration order")
	}
}

func TestConnectUnknownAddressRejected(t *testing.T) {
	central, _ := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
	})

	events := runWorker(t, central, Scan(), Connect("CC"))

	if len(central.connects) != 0 {
		t.Errorf("Connect() reached the central for an unscanned address: %v", central.connects)
	}
	if states := connectionStates(events); len(states) != 0 {
		t.Errorf("connection state events = %v, want none", states)
	}
	if got := logsContaining(events, "not in the last scan"); len(got) != 1 {
		t.Errorf("expected exactly one rejection log, got %d", len(got))
	}
}

func TestConnectMissingCharacteristic(t *testing.T) {
	central, _ := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
	})
	central.link.discoverErr = errors.New("no such characteristic")

	events := runWorker(t, central, Scan(), Connect("AA"), SetMask(0x01))

	if states := connectionStates(events); len(states) != 1 || states[0] {
		t.Errorf("connection states = %v, want [false]", states)
	}
	if got := logsContaining(events, ledwire.LEDMaskCharUUID); len(got) != 1 {
		t.Error("rejection log should name the missing characteristic UUID")
	}
	if central.link.disconnects != 1 {
		t.Errorf("link disconnects = %d, want 1 (force-disconnect)", central.link.disconnects)
	}
	// No stored connection: the following mask write must be a no-op.
	if got := logsContaining(events, "Not connected"); len(got) != 1 {
		t.Error("mask write after failed connect should be rejected as disconnected")
	}
}

func TestConnectSuccessSubscribesAndReportsState(t *testing.T) {
	central, ch := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
	})

	events := runWorker(t, central, Scan(), Connect("AA"))

	if states := connectionStates(events); len(states) != 1 || !states[0] {
		t.Errorf("connection states = %v, want [true]", states)
	}
	if ch.notifyCb == nil {
		t.Error("worker should subscribe to mask notifications on connect")
	}
}

func TestConnectNonWritableCharacteristicWarnsAndProceeds(t *testing.T) {
	central, ch := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
	})
	ch.writable = false

	events := runWorker(t, central, Scan(), Connect("AA"))

	if got := logsContaining(events, "not writable"); len(got) != 1 {
		t.Error("expected a warning about the missing write property")
	}
	if states := connectionStates(events); len(states) != 1 || !states[0] {
		t.Errorf("connection states = %v, want [true] despite warning", states)
	}
}

func TestSetMaskWritesSingleByte(t *testing.T) {
	central, ch := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
	})

	events := runWorker(t, central, Scan(), Connect("AA"), SetMask(0x05))

	if len(ch.writes) != 1 || len(ch.writes[0]) != 1 || ch.writes[0][0] != 0x05 {
		t.Fatalf("writes = %v, want [[0x05]]", ch.writes)
	}
	if got := logsContaining(events, "0x05"); len(got) == 0 {
		t.Error("successful write should log the written value")
	}
}

func TestSetMaskWhileDisconnected(t *testing.T) {
	central, ch := newLEDCentral(nil)

	events := runWorker(t, central, SetMask(0x01))

	if len(ch.writes) != 0 {
		t.Errorf("writes = %v, want none while disconnected", ch.writes)
	}
	if got := logsContaining(events, "ignoring LED write"); len(got) != 1 {
		t.Errorf("expected exactly one ignored-write log, got %d", len(got))
	}
}

func TestWriteFailureKeepsConnection(t *testing.T) {
	central, ch := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
	})
	ch.writeErr = errors.New("att timeout")

	events := runWorker(t, central, Scan(), Connect("AA"), SetMask(0x02), SetMask(0x03))

	if got := logsContaining(events, "Write failed"); len(got) != 2 {
		t.Errorf("expected both writes attempted and failed, got %d failure logs", len(got))
	}
	// Only the connect transition: failures never change connection state.
	if states := connectionStates(events); len(states) != 1 || !states[0] {
		t.Errorf("connection states = %v, want [true]", states)
	}
}

func TestDisconnectAlwaysEmitsFalse(t *testing.T) {
	central, _ := newLEDCentral(nil)

	events := runWorker(t, central, Disconnect())

	if states := connectionStates(events); len(states) != 1 || states[0] {
		t.Errorf("connection states = %v, want [false] even with no connection", states)
	}
}

func TestCommandsProcessedInOrder(t *testing.T) {
	central, _ := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
	})

	events := runWorker(t, central, Scan(), SetMask(0x01))

	// All scan effects (results + summary) must precede the mask
	// rejection emitted by the later command.
	scanDone, maskSeen := -1, -1
	for i, ev := range events {
		if ev.Kind == EventLog && strings.Contains(ev.Line, "device(s)") {
			scanDone = i
		}
		if ev.Kind == EventLog && strings.Contains(ev.Line, "ignoring LED write") {
			maskSeen = i
		}
	}
	if scanDone == -1 || maskSeen == -1 {
		t.Fatalf("missing expected events in %v", events)
	}
	if scanDone > maskSeen {
		t.Errorf("scan summary at %d after mask rejection at %d", scanDone, maskSeen)
	}
}

func TestEnableFailureStopsWorker(t *testing.T) {
	central, _ := newLEDCentral(nil)
	central.enableErr = errors.New("no adapters found")

	events := runWorker(t, central, Scan(), SetMask(0x01))

	if len(events) == 0 || events[len(events)-1].Kind != EventWorkerStopped {
		t.Fatalf("last event = %v, want EventWorkerStopped", events)
	}
	// Queued commands must not have produced effects.
	if got := logsContaining(events, "device(s)"); len(got) != 0 {
		t.Error("scan ran after a fatal enable failure")
	}
}

func TestScanStartFailureIsFatal(t *testing.T) {
	central, _ := newLEDCentral(nil)
	central.scanErr = errors.New("hci down")

	events := runWorker(t, central, Scan(), Disconnect())

	if len(events) == 0 || events[len(events)-1].Kind != EventWorkerStopped {
		t.Fatalf("last event = %v, want EventWorkerStopped", events)
	}
	if states := connectionStates(events); len(states) != 0 {
		t.Error("commands queued after a fatal scan failure must not run")
	}
}

func TestNotificationConfirmationLogged(t *testing.T) {
	central, ch := newLEDCentral([]blecentral.Device{
		{Addr: "AA", Name: "Tag", RSSI: -40, HasRSSI: true},
	})

	cmds := make(chan Command, 2)
	events := make(chan Event, 128)
	cmds <- Scan()
	cmds <- Connect("AA")
	close(cmds)

	w := New(central, devicestore.New(), cmds, events, time.Millisecond, testLog())
	w.Run()

	if ch.notifyCb == nil {
		t.Fatal("no notification subscriber registered")
	}
	ch.notifyCb([]byte{0x05})

	var all []Event
	for {
		select {
		case ev := <-events:
			all = append(all, ev)
		default:
			if got := logsContaining(all, "confirmed mask 0x05"); len(got) != 1 {
				t.Errorf("expected one confirmation log, got %d", len(got))
			}
			return
		}
	}
}
