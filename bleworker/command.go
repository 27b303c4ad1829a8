// Package bleworker runs the host-side BLE worker: a single goroutine
// that owns the central role, consumes user commands strictly in order,
// and reports back through a one-way event stream.
package bleworker

import (
	"math"
	"sort"

	"ledlink/blecentral"
)

// CommandKind tags a Command.
type CommandKind int

const (
	CmdScan CommandKind = iota
	CmdConnect
	CmdDisconnect
	CmdSetMask
)

// Command is a user intent. Addr is set for CmdConnect, Mask for
// CmdSetMask. Commands are processed FIFO, one at a time.
type Command struct {
	Kind CommandKind
	Addr string
	Mask uint8
}

// Scan requests a fresh device scan.
func Scan() Command { return Command{Kind: CmdScan} }

// Connect requests a connection to a device from the last scan.
func Connect(addr string) Command { return Command{Kind: CmdConnect, Addr: addr} }

// Disconnect requests the active connection be closed.
func Disconnect() Command { return Command{Kind: CmdDisconnect} }

// SetMask requests a mask write to the connected peripheral.
func SetMask(mask uint8) Command { return Command{Kind: CmdSetMask, Mask: mask} }

// EventKind tags an Event.
type EventKind int

const (
	// EventLog carries a console line.
	EventLog EventKind = iota
	// EventScanResults carries the full sorted scan snapshot.
	EventScanResults
	// EventConnectionState carries a connected/disconnected transition.
	EventConnectionState
	// EventWorkerStopped announces that the worker loop has exited and
	// will process no further commands.
	EventWorkerStopped
)

// Event is a worker-to-UI notification. Emission order matches the order
// of the effects it describes.
type Event struct {
	Kind      EventKind
	Line      string
	Devices   []blecentral.Device
	Connected bool
}

// SortDevices orders a scan snapshot in place: named devices first, then
// stronger signal first. A device without signal strength sorts as the
// weakest possible; ties keep their enumeration order.
func SortDevices(devices []blecentral.Device) {
	rssiOf := func(d blecentral.Device) int {
		if !d.HasRSSI {
			return math.MinInt32 // below any valid RSSI
		}
		return int(d.RSSI)
	}
	sort.SliceStable(devices, func(i, j int) bool {
		in, jn := devices[i].Name != "", devices[j].Name != ""
		if in != jn {
			return in
		}
		return rssiOf(devices[i]) > rssiOf(devices[j])
	})
}
