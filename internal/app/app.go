package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"motioncapture/internal/config"
	"motioncapture/internal/errs"
	"motioncapture/internal/logger"
	"motioncapture/internal/metrics"
	"motioncapture/internal/repository"
	"motioncapture/internal/service/camera"
	"motioncapture/internal/service/capture"
	"motioncapture/internal/service/sensor"
)

// Sensor is the motion input owned by the App.
type Sensor interface {
	capture.MotionSensor
	Close() error
}

// Camera is the still camera owned by the App.
type Camera interface {
	capture.Camera
	Close() error
}

// Repository is the capture store owned by the App.
type Repository interface {
	capture.Repository
	Close(ctx context.Context) error
}

// Dependencies opens the collaborators. Tests replace them with fakes.
type Dependencies struct {
	OpenSensor     func(cfg *config.Config, logger *logger.Logger) (Sensor, error)
	OpenCamera     func(cfg *config.Config, logger *logger.Logger) (Camera, error)
	OpenRepository func(ctx context.Context, cfg *config.Config) (Repository, error)
	LoopOptions    []capture.Option
}

// DefaultDependencies opens the GPIO sensor, the gocv camera and the
// configured store.
func DefaultDependencies() Dependencies {
	return Dependencies{
		OpenSensor: func(cfg *config.Config, logger *logger.Logger) (Sensor, error) {
			return sensor.Open(cfg.Sensor.PinName(), logger)
		},
		OpenCamera: func(cfg *config.Config, logger *logger.Logger) (Camera, error) {
			cam, err := camera.Open(cfg.Camera.Device, logger)
			if err != nil {
				return nil, err
			}
			cam.Configure(
				camera.Resolution{Width: cfg.Camera.Width, Height: cfg.Camera.Height},
				camera.Resolution{Width: cfg.Camera.LoresWidth, Height: cfg.Camera.LoresHeight},
				cfg.Camera.JPEGQuality,
				cfg.Camera.Preview,
			)
			if err := cam.Start(); err != nil {
				cam.Close()
				return nil, err
			}
			return cam, nil
		},
		OpenRepository: func(ctx context.Context, cfg *config.Config) (Repository, error) {
			return repository.Open(ctx, cfg.Store)
		},
	}
}

// App owns every handle of the capture service and the loop that uses them.
type App struct {
	config    *config.Config
	logger    *logger.Logger
	collector *metrics.Collector

	sensor        Sensor
	camera        Camera
	repository    Repository
	metricsServer *metrics.Server
	loop          *capture.Loop

	closeOnce sync.Once
	closeErr  error
}

// New acquires all collaborators with the default dependencies.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	return NewWithDependencies(ctx, cfg, logger, DefaultDependencies())
}

// NewWithDependencies acquires the sensor, the store, the camera and the
// metrics endpoint in that order. When a step fails, everything acquired
// before it is released and a *errs.SetupError is returned.
func NewWithDependencies(ctx context.Context, cfg *config.Config, logger *logger.Logger, deps Dependencies) (*App, error) {
	a := &App{
		config:    cfg,
		logger:    logger,
		collector: metrics.NewCollector(nil),
	}

	s, err := deps.OpenSensor(cfg, logger)
	if err != nil {
		return nil, a.abort(errs.NewSetupError("motion sensor", err))
	}
	a.sensor = s

	repo, err := deps.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, a.abort(errs.NewSetupError("store", err))
	}
	a.repository = repo
	logger.Info("🗄️  Connected to %s store", cfg.Store.Driver)

	cam, err := deps.OpenCamera(cfg, logger)
	if err != nil {
		return nil, a.abort(errs.NewSetupError("camera", err))
	}
	a.camera = cam

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, a.collector)
		if err := srv.Start(func(err error) { logger.Error("Metrics server stopped: %v", err) }); err != nil {
			return nil, a.abort(errs.NewSetupError("metrics", err))
		}
		a.metricsServer = srv
		logger.Info("📈 Metrics on http://%s/metrics", srv.Addr())
	}

	a.loop = capture.NewLoop(cfg.Capture, a.camera, a.sensor, a.repository, a.collector, logger, deps.LoopOptions...)
	return a, nil
}

// abort releases what was acquired so far and returns cause.
func (a *App) abort(cause error) error {
	a.logger.Error("Setup failed: %v", cause)
	if err := a.Close(); err != nil {
		a.logger.Error("Cleanup after failed setup: %v", err)
	}
	return cause
}

// Run drives the capture loop until ctx is cancelled or an iteration fails.
// It does not release resources; call Close.
func (a *App) Run(ctx context.Context) capture.Result {
	a.logger.Info("Motion sensor and camera service running...")
	return a.loop.Run(ctx)
}

// Collector returns the metrics collector.
func (a *App) Collector() *metrics.Collector {
	return a.collector
}

// Close releases every acquired handle in reverse order. Each release is
// bounded by the call timeout so a stuck handle cannot keep the later ones
// from being released. It is safe to call more than once; only the first
// call releases anything.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Store.ConnectTimeout)
		defer cancel()

		timeout := a.config.Capture.CallTimeout

		var err error
		if a.metricsServer != nil {
			err = multierr.Append(err, release("metrics server", timeout, func() error {
				return a.metricsServer.Close(ctx)
			}))
		}
		if a.camera != nil {
			err = multierr.Append(err, release("camera", timeout, a.camera.Close))
		}
		if a.repository != nil {
			err = multierr.Append(err, release("store", timeout, func() error {
				return a.repository.Close(ctx)
			}))
		}
		if a.sensor != nil {
			err = multierr.Append(err, release("motion sensor", timeout, a.sensor.Close))
		}

		a.closeErr = err
		if err != nil {
			a.logger.Error("Failed to release resources: %v", err)
			return
		}
		a.logger.Info("All resources released")
	})
	return a.closeErr
}

// release runs closeFn and stops waiting for it after timeout.
func release(name string, timeout time.Duration, closeFn func() error) error {
	done := make(chan error, 1)
	go func() { done <- closeFn() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to close %s: %w", name, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("failed to close %s after %s: %w", name, timeout, errs.ErrCloseTimeout)
	}
}
