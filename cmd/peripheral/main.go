// The peripheral binary serves the LED control GATT service on the local
// adapter: it advertises, accepts one central at a time, applies inbound
// mask writes to its outputs and confirms them with notifications.
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"ledlink/config"
	"ledlink/ledservice"
)

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

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	log := logrus.WithField("component", "peripheral")

	stack, err := ledservice.NewTinygoStack(bluetooth.DefaultAdapter, cfg.DeviceName, log)
	if err != nil {
		log.WithError(err).Fatal("stack setup failed")
	}

	outputs := ledservice.NewLogDriver(logrus.WithField("component", "outputs"))
	ledservice.AllOff(outputs)

	server := ledservice.NewServer(stack, outputs, log)
	if err := server.Run(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
