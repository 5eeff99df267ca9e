package capture

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"motioncapture/internal/config"
	"motioncapture/internal/errs"
	"motioncapture/internal/logger"
	"motioncapture/internal/metrics"
	"motioncapture/internal/model"
)

// Camera delivers one encoded still per call.
type Camera interface {
	CaptureStill(ctx context.Context) ([]byte, error)
}

// MotionSensor reports whether motion is currently detected.
type MotionSensor interface {
	Motion(ctx context.Context) (bool, error)
}

// Repository is the part of the capture store the loop writes to.
type Repository interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Insert(ctx context.Context, rec *model.CaptureRecord) (string, error)
}

// Loop captures a frame every iteration, prunes records older than the
// retention window, stores the frame and sleeps for the active or idle
// interval depending on the motion signal.
type Loop struct {
	camera  Camera
	sensor  MotionSensor
	repo    Repository
	metrics *metrics.Collector
	logger  *logger.Logger
	clock   Clock

	retention time.Duration
	active    time.Duration
	idle      time.Duration
	timeout   time.Duration

	state atomic.Int32
	last  time.Time
}

// Option customizes a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(l *Loop) {
		l.clock = clock
	}
}

// NewLoop creates a loop in StateInit.
func NewLoop(cfg config.CaptureConfig, camera Camera, sensor MotionSensor, repo Repository,
	collector *metrics.Collector, logger *logger.Logger, opts ...Option) *Loop {
	l := &Loop{
		camera:    camera,
		sensor:    sensor,
		repo:      repo,
		metrics:   collector,
		logger:    logger,
		clock:     wallClock{},
		retention: cfg.RetentionWindow,
		active:    cfg.ActiveInterval,
		idle:      cfg.IdleInterval,
		timeout:   cfg.CallTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run executes iterations until ctx is cancelled or an iteration fails.
// Cancellation is observed before an iteration starts and while sleeping;
// calls already in flight are not interrupted by it.
func (l *Loop) Run(ctx context.Context) Result {
	if !l.state.CompareAndSwap(int32(StateInit), int32(StateRunning)) {
		return Result{State: l.State(), Err: errs.ErrAlreadyRunning}
	}

	l.logger.Info("🎬 Capture loop running (retention %s, active %s, idle %s)", l.retention, l.active, l.idle)

	iteration := 0
	for {
		if ctx.Err() != nil {
			return l.stop(iteration)
		}

		iteration++
		motion, err := l.iterate(ctx, iteration)
		if err != nil {
			return l.fail(iteration-1, err)
		}

		if err := l.clock.Sleep(ctx, l.interval(motion)); err != nil {
			return l.stop(iteration)
		}
	}
}

// interval picks the sleep after an iteration.
func (l *Loop) interval(motion bool) time.Duration {
	if motion {
		return l.active
	}
	return l.idle
}

func (l *Loop) iterate(ctx context.Context, n int) (bool, error) {
	start := l.clock.Now()

	image, err := bounded(ctx, l.timeout, l.camera.CaptureStill)
	if err != nil {
		return false, errs.NewIterationError(n, errs.StepCapture, err)
	}

	now := l.timestamp()
	cutoff := now.Add(-l.retention)

	pruned, err := bounded(ctx, l.timeout, func(c context.Context) (int64, error) {
		return l.repo.DeleteOlderThan(c, cutoff)
	})
	if err != nil {
		return false, errs.NewIterationError(n, errs.StepPrune, err)
	}

	rec := &model.CaptureRecord{Timestamp: now, ImageData: image}
	id, err := bounded(ctx, l.timeout, func(c context.Context) (string, error) {
		return l.repo.Insert(c, rec)
	})
	if err != nil {
		return false, errs.NewIterationError(n, errs.StepInsert, err)
	}

	motion, err := bounded(ctx, l.timeout, l.sensor.Motion)
	if err != nil {
		return false, errs.NewIterationError(n, errs.StepMotion, err)
	}

	l.metrics.RecordIteration(pruned, len(image), motion, l.clock.Now().Sub(start))
	l.logger.Info("Image %s captured and inserted (%d bytes, pruned %d, motion %t)", id, len(image), pruned, motion)

	return motion, nil
}

// timestamp returns the capture time at store precision, never earlier
// than the previous one.
func (l *Loop) timestamp() time.Time {
	now := l.clock.Now().Truncate(time.Millisecond)
	if now.Before(l.last) {
		l.logger.Warning("Clock went backwards by %s, reusing previous timestamp", l.last.Sub(now))
		now = l.last
	}
	l.last = now
	return now
}

func (l *Loop) stop(iterations int) Result {
	l.state.Store(int32(StateStopped))
	l.logger.Info("🛑 Capture loop stopped after %d iteration(s)", iterations)
	return Result{State: StateStopped, Iterations: iterations}
}

func (l *Loop) fail(iterations int, err error) Result {
	l.state.Store(int32(StateFailed))
	var ie *errs.IterationError
	if errors.As(err, &ie) {
		l.metrics.RecordFailure(ie.Step)
	}
	l.logger.Error("Capture loop failed after %d completed iteration(s): %v", iterations, err)
	return Result{State: StateFailed, Iterations: iterations, Err: err}
}

// bounded runs fn under its own timeout. The deadline context is detached
// from ctx cancellation so a stop request lets the call finish.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-callCtx.Done():
		var zero T
		return zero, fmt.Errorf("call did not finish within %s: %w", timeout, callCtx.Err())
	}
}
