// Package wearable wires the full on-device pipeline: sensor polling,
// calibration, behavior detection, event delivery, the LED display, and
// the status dashboard.
package wearable

import (
	"context"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/behavior"
	"github.com/cavg-team/go-wearable/pkg/calibration"
	"github.com/cavg-team/go-wearable/pkg/delivery"
	"github.com/cavg-team/go-wearable/pkg/display"
	"github.com/cavg-team/go-wearable/pkg/sensor"
	"github.com/cavg-team/go-wearable/pkg/web"
)

// App is the main application orchestrator. It manages all components
// and their lifecycle.
type App struct {
	cfg Config

	cache  *sensor.Cache
	poller *sensor.Poller
	cal    *calibration.Calibrator
	system *behavior.System
	client *delivery.Client
	server *web.Server

	// Hardware sources, injected before Init. Nil sources leave the
	// corresponding bus unpolled.
	imu    sensor.IMUSource
	camera sensor.CameraSource
	mic    sensor.MicrophoneSource
}

// New creates the application with the given configuration.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{cfg: cfg}, nil
}

// SetSources injects the hardware sources. Call before Init; when Mock
// is set in the config, Init installs synthetic sources instead.
func (a *App) SetSources(imu sensor.IMUSource, camera sensor.CameraSource, mic sensor.MicrophoneSource) {
	a.imu, a.camera, a.mic = imu, camera, mic
}

// Init builds and wires all components. Call after New and before Run.
func (a *App) Init() error {
	if a.cfg.Mock {
		log.Info("using mock sensor sources")
		a.imu = sensor.NewMockIMU()
		a.camera = sensor.NewMockCamera()
		a.mic = sensor.NewMockMicrophone()
	}

	a.cache = sensor.NewCache()
	a.poller = sensor.NewPoller(a.cache, sensor.DefaultPollerConfig(), a.imu, a.camera, a.mic)
	a.cal = calibration.New(a.cache, calibration.DefaultConfig())

	dcfg := delivery.DefaultConfig().
		WithServer(a.cfg.ServerURL).
		WithSensorID(a.cfg.SensorID).
		WithOfflinePath(a.cfg.OfflinePath)
	dcfg.HeartbeatURL = a.cfg.HeartbeatURL
	dcfg.Location = a.cfg.Location

	client, err := delivery.NewClient(dcfg)
	if err != nil {
		return err
	}
	a.client = client

	a.server = web.NewServer(a.cfg.DashboardPort, a.statusReport, a.recalibrate)

	// Events fan out to the remote consumer and the dashboard feed.
	scfg := behavior.DefaultSystemConfig(a.cfg.SensorID)
	a.system = behavior.NewSystem(a.cache, a.cal, scfg, publisherFunc(func(ev behavior.Event) {
		a.client.Publish(ev)
		a.server.RecordEvent(ev)
	}))

	// The server can order a recalibration remotely.
	a.client.OnRecalibrate(func(reason string) {
		log.Info("remote recalibration requested", "reason", reason)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.system.Recalibrate(ctx); err != nil {
			log.Error("remote recalibration failed", "err", err)
		}
	})

	return nil
}

// Run starts everything and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.poller.Start()

	// Let the cache fill before sampling the stationary frame.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
	}
	if _, err := a.cal.Calibrate(ctx); err != nil {
		return err
	}

	a.system.Start()
	a.client.Start()
	a.server.StartAsync()

	log.Info("wearable pipeline running",
		"sensor_id", a.cfg.SensorID, "server", a.cfg.ServerURL, "dashboard_port", a.cfg.DashboardPort)

	a.snapshotLoop(ctx)
	return nil
}

// Shutdown stops all components in reverse dependency order.
func (a *App) Shutdown() {
	log.Info("shutting down")
	if a.server != nil {
		a.server.Shutdown()
	}
	if a.client != nil {
		a.client.Stop()
	}
	if a.system != nil {
		a.system.Stop()
	}
	if a.poller != nil {
		a.poller.Stop(2 * time.Second)
	}
	log.Info("shutdown complete")
}

// snapshotLoop periodically renders the detector state for the display
// and dashboard clients.
func (a *App) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.SnapshotRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := a.system.Snapshot()
			a.server.BroadcastSnapshot(snap)
			a.server.BroadcastFrame(display.Render(snap))
		}
	}
}

func (a *App) statusReport() web.StatusReport {
	return web.StatusReport{
		SensorID:         a.cfg.SensorID,
		Location:         a.cfg.Location,
		System:           a.system.Status(),
		Delivery:         a.client.Stats(),
		SensorReadErrors: a.poller.ReadErrors(),
	}
}

func (a *App) recalibrate(ctx context.Context, reason string) error {
	log.Info("recalibration requested", "reason", reason)
	return a.system.Recalibrate(ctx)
}

// publisherFunc adapts a function to the behavior.Publisher interface.
type publisherFunc func(behavior.Event)

func (f publisherFunc) Publish(ev behavior.Event) { f(ev) }
