package capture

import (
	"context"
	"time"
)

// State is the lifecycle state of a Loop.
type State int32

const (
	StateInit State = iota
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Result reports how Run ended. Err is set only for StateFailed.
type Result struct {
	State      State
	Iterations int
	Err        error
}

// Clock supplies capture timestamps and the inter-iteration sleep.
type Clock interface {
	Now() time.Time
	// Sleep waits for d and returns ctx.Err() if ctx ends first.
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
