package ledservice

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"ledlink/ledwire"
)

// TinygoStack implements Stack on a tinygo bluetooth adapter. It
// registers the battery and LED services, folds the 16-bit and 128-bit
// service UUIDs plus the local name into the advertisement, and turns the
// adapter's callbacks into the server's event stream.
type TinygoStack struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	log     *logrus.Entry

	maskChar bluetooth.Characteristic
	battChar bluetooth.Characteristic

	events chan Event
	connCh chan struct{}

	advertising bool
}

// NewTinygoStack enables the adapter, registers the GATT table and
// configures the advertisement. Errors here are boot-time failures.
func NewTinygoStack(adapter *bluetooth.Adapter, localName string, log *logrus.Entry) (*TinygoStack, error) {
	t := &TinygoStack{
		adapter: adapter,
		log:     log,
		events:  make(chan Event, 16),
		connCh:  make(chan struct{}, 1),
	}

	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}

	ledUUID, err := bluetooth.ParseUUID(ledwire.LEDServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("parse LED service UUID: %w", err)
	}
	maskUUID, err := bluetooth.ParseUUID(ledwire.LEDMaskCharUUID)
	if err != nil {
		return nil, fmt.Errorf("parse mask characteristic UUID: %w", err)
	}

	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			select {
			case t.connCh <- struct{}{}:
			default:
			}
			return
		}
		select {
		case t.events <- Event{Kind: EventDisconnect}:
		default:
		}
	})

	if err := adapter.AddService(&bluetooth.Service{
		UUID: bluetooth.ServiceUUIDBattery,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &t.battChar,
				UUID:   bluetooth.CharacteristicUUIDBatteryLevel,
				Value:  []byte{100},
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("add battery service: %w", err)
	}

	if err := adapter.AddService(&bluetooth.Service{
		UUID: ledUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &t.maskChar,
				UUID:   maskUUID,
				Value:  []byte{0},
				Flags: bluetooth.CharacteristicReadPermission |
					bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicNotifyPermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					payload := make([]byte, len(value))
					copy(payload, value)
					select {
					case t.events <- Event{Kind: EventWrite, Char: CharLEDMask, Payload: payload}:
					default:
						t.log.Warn("event queue full, mask write dropped")
					}
				},
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("add LED service: %w", err)
	}

	adv := adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    localName,
		ServiceUUIDs: []bluetooth.UUID{bluetooth.ServiceUUIDBattery, ledUUID},
	}); err != nil {
		return nil, fmt.Errorf("configure advertisement: %w", err)
	}
	t.adv = adv

	return t, nil
}

// AdvertiseAndWait starts advertising and blocks until a central
// connects. BlueZ keeps the advertisement registered across connections
// and pauses it while a central is connected, so Start is issued once.
func (t *TinygoStack) AdvertiseAndWait() error {
	// Events queued by a previous connection must not leak into the next.
drain:
	for {
		select {
		case <-t.events:
		default:
			break drain
		}
	}

	if !t.advertising {
		if err := t.adv.Start(); err != nil {
			return fmt.Errorf("start advertising: %w", err)
		}
		t.advertising = true
	}

	<-t.connCh
	return nil
}

// NextEvent blocks for the next GATT event.
func (t *TinygoStack) NextEvent() (Event, error) {
	return <-t.events, nil
}

// Notify writes the local characteristic value, which delivers a
// notification to a subscribed peer.
func (t *TinygoStack) Notify(char CharID, value byte) error {
	switch char {
	case CharLEDMask:
		_, err := t.maskChar.Write([]byte{value})
		return err
	case CharBatteryLevel:
		_, err := t.battChar.Write([]byte{value})
		return err
	default:
		return fmt.Errorf("unknown characteristic %s", char)
	}
}
