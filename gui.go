// gui.go
package main

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"ledlink/blecentral"
	"ledlink/ledwire"
)

// --- Console handling ---
type Console struct {
	widget *widget.Entry
	limit  int
}

func newConsole(limit int) *Console {
	c := &Console{
		widget: widget.NewMultiLineEntry(),
		limit:  limit,
	}
	c.widget.SetPlaceHolder("Console output...")
	c.widget.Wrapping = fyne.TextWrapWord
	c.widget.Disable()
	return c
}

// append adds a line, trimming to the line limit. Safe to call from any
// goroutine except the Fyne main one.
func (c *Console) append(line string) {
	lines := strings.Split(c.widget.Text, "\n")
	lines = append(lines, line)

	if len(lines) > c.limit {
		lines = lines[len(lines)-c.limit:]
	}
	fyne.DoAndWait(func() {
		c.widget.SetText(strings.Join(lines, "\n"))
		c.widget.CursorRow = len(lines)
	})
}

// --- Device list rendering ---
func formatDevice(d blecentral.Device) string {
	name := d.Name
	if name == "" {
		name = "(no name)"
	}
	rssi := "? dBm"
	if d.HasRSSI {
		rssi = fmt.Sprintf("%d dBm", d.RSSI)
	}
	return fmt.Sprintf("%s  |  %s  |  %s", name, d.Addr, rssi)
}

// --- LED controls ---
func maskFromChecks(checks []*widget.Check) uint8 {
	var m uint8
	for i, c := range checks {
		if c.Checked {
			m |= ledwire.Bit(i)
		}
	}
	return m
}

func setChecks(checks []*widget.Check, on bool) {
	for _, c := range checks {
		c.SetChecked(on)
	}
}

// setLedControlsEnabled must run on the Fyne goroutine.
func setLedControlsEnabled(checks []*widget.Check, allOn, allOff *widget.Button, enabled bool) {
	for _, c := range checks {
		if enabled {
			c.Enable()
		} else {
			c.Disable()
		}
	}
	if enabled {
		allOn.Enable()
		allOff.Enable()
	} else {
		allOn.Disable()
		allOff.Disable()
	}
}

func ledsToObjects(checks []*widget.Check, extra ...fyne.CanvasObject) []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, len(checks)+len(extra))
	for _, c := range checks {
		objs = append(objs, c)
	}
	return append(objs, extra...)
}
