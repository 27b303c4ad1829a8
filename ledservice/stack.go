package ledservice

// CharID names a characteristic in the service table.
type CharID int

const (
	CharLEDMask CharID = iota
	CharBatteryLevel
)

func (c CharID) String() string {
	switch c {
	case CharLEDMask:
		return "led_mask"
	case CharBatteryLevel:
		return "battery_level"
	default:
		return "unknown"
	}
}

// EventKind is the closed set of GATT events a connection can produce.
type EventKind int

const (
	// EventWrite is an inbound write to a characteristic value.
	EventWrite EventKind = iota
	// EventSubscribe is a CCCD change toggling notification delivery.
	EventSubscribe
	// EventDisconnect ends the connection, whatever the cause.
	EventDisconnect
)

// Event is one GATT event delivered by the stack. Payload is set for
// writes, Notify for subscribe changes.
type Event struct {
	Kind    EventKind
	Char    CharID
	Payload []byte
	Notify  bool
}

// Stack is the radio and link layer the server drives. Implementations
// map these calls onto a concrete BLE stack; fakes stand in for tests.
type Stack interface {
	// AdvertiseAndWait broadcasts the advertisement and blocks until a
	// central connects. An error is a stack-level failure and is fatal.
	AdvertiseAndWait() error

	// NextEvent blocks until the next GATT event on the live connection.
	// Link loss is reported either as an EventDisconnect or as an error;
	// both end the connection.
	NextEvent() (Event, error)

	// Notify pushes a one-byte value to the subscribed peer, if any.
	Notify(char CharID, value byte) error
}
