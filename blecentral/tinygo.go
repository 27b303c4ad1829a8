package blecentral

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// TinygoCentral implements Central on a tinygo bluetooth adapter.
type TinygoCentral struct {
	adapter        *bluetooth.Adapter
	log            *logrus.Entry
	connectTimeout time.Duration
}

// NewTinygoCentral wraps the default adapter.
func NewTinygoCentral(log *logrus.Entry) *TinygoCentral {
	return &TinygoCentral{
		adapter:        bluetooth.DefaultAdapter,
		log:            log,
		connectTimeout: 10 * time.Second,
	}
}

func (c *TinygoCentral) Enable() error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	return nil
}

// Scan collects advertisements for the dwell time. Repeat sightings of
// the same address refresh its RSSI and fill in a late-arriving name.
func (c *TinygoCentral) Scan(dwell time.Duration) ([]Device, error) {
	var mu sync.Mutex
	var devices []Device
	index := make(map[string]int)

	ctx, cancel := context.WithTimeout(context.Background(), dwell)
	defer cancel()

	go func() {
		<-ctx.Done()
		c.adapter.StopScan()
	}()

	// Blocks until StopScan fires.
	err := c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		addr := result.Address.String()
		name := result.LocalName()

		mu.Lock()
		defer mu.Unlock()
		if i, seen := index[addr]; seen {
			devices[i].RSSI = result.RSSI
			devices[i].HasRSSI = true
			if devices[i].Name == "" {
				devices[i].Name = name
			}
			return
		}
		index[addr] = len(devices)
		devices = append(devices, Device{
			Addr:    addr,
			Name:    name,
			RSSI:    result.RSSI,
			HasRSSI: true,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	c.log.WithField("count", len(devices)).Debug("scan complete")
	return devices, nil
}

// Connect opens a link, guarding the blocking adapter call with a local
// timeout since tinygo's Connect cannot be cancelled from outside.
func (c *TinygoCentral) Connect(addr string) (Link, error) {
	var address bluetooth.Address
	address.Set(addr)

	type result struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		device, err := c.adapter.Connect(address, bluetooth.ConnectionParams{})
		ch <- result{device, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("connect to %s: %w", addr, r.err)
		}
		return &tinygoLink{device: r.device}, nil
	case <-time.After(c.connectTimeout):
		return nil, fmt.Errorf("connect to %s: timed out after %s", addr, c.connectTimeout)
	}
}

var _ Central = (*TinygoCentral)(nil)

type tinygoLink struct {
	device bluetooth.Device
}

func (l *tinygoLink) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("parse service UUID: %w", err)
	}
	chUUID, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, fmt.Errorf("parse characteristic UUID: %w", err)
	}

	svcs, err := l.device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("service %s not found", serviceUUID)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{chUUID})
	if err != nil {
		return nil, fmt.Errorf("discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("characteristic %s not found", charUUID)
	}

	return &tinygoCharacteristic{char: chars[0]}, nil
}

func (l *tinygoLink) Disconnect() error {
	return l.device.Disconnect()
}

type tinygoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *tinygoCharacteristic) Write(p []byte) error {
	_, err := c.char.Write(p)
	return err
}

func (c *tinygoCharacteristic) Subscribe(cb func(p []byte)) error {
	return c.char.EnableNotifications(func(buf []byte) {
		cb(buf)
	})
}

// CanWrite reports true: tinygo does not surface remote characteristic
// property flags, so a missing write property only shows up when the
// write itself fails.
func (c *tinygoCharacteristic) CanWrite() bool {
	return true
}
