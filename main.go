package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"ledlink/blecentral"
	"ledlink/bleworker"
	"ledlink/config"
	"ledlink/devicestore"
	"ledlink/ledwire"
	"ledlink/oscbridge"
)

var (
	cmdChan   = make(chan bleworker.Command, 64)
	eventChan = make(chan bleworker.Event, 256)
)

// sendCommand never blocks the UI thread; an overflowing queue drops the
// command.
func sendCommand(cmd bleworker.Command) {
	select {
	case cmdChan <- cmd:
	default:
		logrus.Warn("command queue full, command dropped")
	}
}

func main() {
	cfgPath := flag.String("config", config.DefaultConfigPath(), "path to config file")
	flag.Parse()

	cfg := config.Default()
	if _, err := os.Stat(*cfgPath); err == nil {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			logrus.WithError(err).Fatal("load config")
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	a := app.New()
	w := a.NewWindow("BLE LED Controller")

	// --- Console ---
	console := newConsole(200)
	consoleScroll := container.NewVScroll(console.widget)
	consoleScroll.SetMinSize(fyne.NewSize(0, 180))

	// --- Device list ---
	var devices []blecentral.Device
	selected := -1

	deviceList := widget.NewList(
		func() int { return len(devices) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(formatDevice(devices[id]))
		},
	)
	deviceList.OnSelected = func(id widget.ListItemID) { selected = id }
	deviceList.OnUnselected = func(widget.ListItemID) { selected = -1 }

	// --- Top controls ---
	scanBtn := widget.NewButton("Scan", func() {
		sendCommand(bleworker.Scan())
	})
	connectBtn := widget.NewButton("Connect", func() {
		if selected < 0 || selected >= len(devices) {
			logrus.Info("connect pressed with no device selected")
			return
		}
		sendCommand(bleworker.Connect(devices[selected].Addr))
	})
	disconnectBtn := widget.NewButton("Disconnect", func() {
		sendCommand(bleworker.Disconnect())
	})

	// --- LED controls ---
	ledChecks := make([]*widget.Check, ledwire.LedCount)
	updatingChecks := false
	for i := range ledChecks {
		ledChecks[i] = widget.NewCheck(fmt.Sprintf("LED%d", i+1), func(bool) {
			if updatingChecks {
				return
			}
			sendCommand(bleworker.SetMask(maskFromChecks(ledChecks)))
		})
	}
	allOnBtn := widget.NewButton("All On", func() {
		updatingChecks = true
		setChecks(ledChecks, true)
		updatingChecks = false
		sendCommand(bleworker.SetMask(ledwire.MaskBits))
	})
	allOffBtn := widget.NewButton("All Off", func() {
		updatingChecks = true
		setChecks(ledChecks, false)
		updatingChecks = false
		sendCommand(bleworker.SetMask(0))
	})
	setLedControlsEnabled(ledChecks, allOnBtn, allOffBtn, false)

	// --- Layout ---
	top := container.NewHBox(scanBtn, connectBtn, disconnectBtn)
	ledRow := container.NewHBox(ledsToObjects(ledChecks, allOnBtn, allOffBtn)...)
	bottom := container.NewVBox(
		widget.NewLabel("LEDs:"),
		ledRow,
		widget.NewLabel("Console:"),
		consoleScroll,
	)
	w.SetContent(container.NewBorder(top, bottom, nil, nil, deviceList))
	w.Resize(fyne.NewSize(800, 600))

	// --- BLE worker ---
	central := blecentral.NewTinygoCentral(logrus.WithField("component", "central"))
	store := devicestore.New()
	worker := bleworker.New(central, store, cmdChan, eventChan, cfg.ScanDwell(), logrus.WithField("component", "worker"))
	go worker.Run()

	// --- OSC bridge ---
	if cfg.OSCListenAddr != "" {
		bridge := oscbridge.New(cfg.OSCListenAddr, cmdChan, logrus.WithField("component", "osc"))
		go func() {
			if err := bridge.Run(); err != nil {
				logrus.WithError(err).Error("OSC bridge stopped")
			}
		}()
	}

	applyEvent := func(ev bleworker.Event) {
		switch ev.Kind {
		case bleworker.EventLog:
			console.append(ev.Line)

		case bleworker.EventScanResults:
			fyne.DoAndWait(func() {
				devices = ev.Devices
				selected = -1
				deviceList.UnselectAll()
				deviceList.Refresh()
			})

		case bleworker.EventConnectionState:
			if ev.Connected {
				console.append("Connected.")
			} else {
				console.append("Disconnected.")
			}
			fyne.DoAndWait(func() {
				setLedControlsEnabled(ledChecks, allOnBtn, allOffBtn, ev.Connected)
			})

		case bleworker.EventWorkerStopped:
			console.append("BLE worker stopped: " + ev.Line)
			fyne.DoAndWait(func() {
				setLedControlsEnabled(ledChecks, allOnBtn, allOffBtn, false)
				scanBtn.Disable()
				connectBtn.Disable()
				disconnectBtn.Disable()
			})
		}
	}

	// --- Event poller: drain worker events on a fixed cadence ---
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
		drain:
			for {
				select {
				case ev := <-eventChan:
					applyEvent(ev)
				default:
					break drain
				}
			}
		}
	}()

	go console.append("Ready. Click Scan.")

	w.ShowAndRun()
}
