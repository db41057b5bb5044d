// Wearable simulator: runs the full pipeline against scripted sensor
// sources, cycling through walking, turning, shouting, light changes,
// and a fall so the downstream stack can be exercised without hardware.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/sensor"
	"github.com/cavg-team/go-wearable/pkg/wearable"
)

func main() {
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	server := flag.String("server", "", "Event stream websocket URL (overrides SERVER_URL env var)")
	port := flag.String("port", "8088", "Dashboard HTTP port")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	cfg := wearable.DefaultConfig()
	cfg.SensorID = "wearable_sim"
	cfg.Location = "simulator"
	cfg.DashboardPort = *port
	cfg.Debug = *debug
	if *server != "" {
		cfg.ServerURL = *server
	}

	app, err := wearable.New(cfg)
	if err != nil {
		log.Error("configuration error", "err", err)
		os.Exit(1)
	}

	imu := sensor.NewMockIMU()
	camera := sensor.NewMockCamera()
	mic := sensor.NewMockMicrophone()
	app.SetSources(imu, camera, mic)

	if err := app.Init(); err != nil {
		log.Error("initialization failed", "err", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go runScenario(ctx, imu, camera, mic)

	if err := app.Run(ctx); err != nil && err != context.Canceled {
		log.Error("runtime error", "err", err)
		os.Exit(1)
	}
}

// runScenario loops through a fixed sequence of behaviors, holding each
// phase long enough for the detectors to pick it up.
func runScenario(ctx context.Context, imu *sensor.MockIMU, camera *sensor.MockCamera, mic *sensor.MockMicrophone) {
	// Give calibration a quiet device to sample first.
	if !sleepCtx(ctx, 3*time.Second) {
		return
	}

	for {
		log.Info("scenario: walking")
		if !walk(ctx, imu, 5*time.Second) {
			return
		}

		log.Info("scenario: turning around")
		imu.SetGyro(sensor.Vec3{Z: 120})
		if !sleepCtx(ctx, 1800*time.Millisecond) {
			return
		}
		imu.SetGyro(sensor.Vec3{})

		log.Info("scenario: shouting")
		mic.SetTone(440, 0.8, 85)
		if !sleepCtx(ctx, time.Second) {
			return
		}
		mic.SetSilence(40)

		log.Info("scenario: lights out")
		camera.SetBrightness(20)
		if !sleepCtx(ctx, 4*time.Second) {
			return
		}
		camera.SetBrightness(128)
		if !sleepCtx(ctx, 4*time.Second) {
			return
		}

		log.Info("scenario: fall")
		imu.SetAccel(sensor.Vec3{Z: 0.2})
		if !sleepCtx(ctx, 200*time.Millisecond) {
			return
		}
		imu.SetAccel(sensor.Vec3{Z: 2.8})
		imu.SetOrientation(sensor.Orientation{Pitch: 80})
		if !sleepCtx(ctx, 300*time.Millisecond) {
			return
		}

		log.Info("scenario: getting back up")
		imu.SetGyro(sensor.Vec3{X: 40, Y: 40})
		if !sleepCtx(ctx, time.Second) {
			return
		}
		imu.SetGyro(sensor.Vec3{})
		imu.SetOrientation(sensor.Orientation{})
		imu.SetAccel(sensor.Vec3{Z: 1})
		if !sleepCtx(ctx, 5*time.Second) {
			return
		}
	}
}

// walk pulses the accelerometer at a step-like cadence.
func walk(ctx context.Context, imu *sensor.MockIMU, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		imu.SetAccel(sensor.Vec3{X: 0.35, Z: 1})
		if !sleepCtx(ctx, 150*time.Millisecond) {
			return false
		}
		imu.SetAccel(sensor.Vec3{Z: 1})
		if !sleepCtx(ctx, 350*time.Millisecond) {
			return false
		}
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
