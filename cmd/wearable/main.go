// Wearable behavior pipeline: polls the sensor hat, detects wearer
// behaviors, and streams events to the production server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/wearable"
)

func main() {
	cfg := parseFlags()

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	app, err := wearable.New(cfg)
	if err != nil {
		log.Error("configuration error", "err", err)
		os.Exit(1)
	}

	if err := app.Init(); err != nil {
		log.Error("initialization failed", "err", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil && err != context.Canceled {
		log.Error("runtime error", "err", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
// Environment variables are applied on top by wearable.New.
func parseFlags() wearable.Config {
	cfg := wearable.DefaultConfig()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	sensorID := flag.String("sensor-id", "", "Sensor identifier (overrides DEVICE_ID env var)")
	server := flag.String("server", "", "Event stream websocket URL (overrides SERVER_URL env var)")
	heartbeat := flag.String("heartbeat", "", "Heartbeat endpoint URL (overrides HEARTBEAT_URL env var)")
	location := flag.String("location", "", "Deployment location label")
	port := flag.String("port", cfg.DashboardPort, "Dashboard HTTP port")
	mock := flag.Bool("mock", false, "Use synthetic sensor sources instead of hardware")
	flag.Parse()

	cfg.Debug = *debug
	cfg.Mock = *mock
	cfg.DashboardPort = *port
	if *sensorID != "" {
		cfg.SensorID = *sensorID
	}
	if *server != "" {
		cfg.ServerURL = *server
	}
	if *heartbeat != "" {
		cfg.HeartbeatURL = *heartbeat
	}
	if *location != "" {
		cfg.Location = *location
	}
	return cfg
}
