// Package blecentral abstracts the host-side BLE central role so the
// worker can be driven against real adapters and test fakes alike.
package blecentral

import "time"

// Device is one scan result. Name is empty when the peripheral did not
// advertise one; HasRSSI is false when no signal strength was observed.
type Device struct {
	Addr    string
	Name    string
	RSSI    int16
	HasRSSI bool
}

// Characteristic is a remote GATT characteristic on a connected peer.
type Characteristic interface {
	// Write performs a confirmed write of the payload.
	Write(p []byte) error
	// Subscribe enables notifications, delivering each value to cb.
	Subscribe(cb func(p []byte)) error
	// CanWrite reports whether the characteristic advertises a
	// write-capable property. Stacks that cannot see property flags
	// report true.
	CanWrite() bool
}

// Link is an open connection to a peripheral.
type Link interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
}

// Central owns the adapter. All methods are called from a single worker
// goroutine; implementations need not be safe for concurrent commands.
type Central interface {
	// Enable powers on the adapter. Failure is unrecoverable.
	Enable() error
	// Scan observes advertisements for the dwell time and returns every
	// device seen, unordered and deduplicated by address.
	Scan(dwell time.Duration) ([]Device, error)
	// Connect opens a link to the device with the given address.
	Connect(addr string) (Link, error)
}
