package errs

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFrame     = errors.New("camera returned an empty frame")
	ErrCameraClosed   = errors.New("camera is closed")
	ErrCameraNotReady = errors.New("camera is not started")
	ErrPinNotFound    = errors.New("gpio pin not found")
	ErrAlreadyRunning = errors.New("capture loop already started")
	ErrUnknownDriver  = errors.New("unknown store driver")
	ErrCloseTimeout   = errors.New("release did not finish in time")
)

// SetupError reports a collaborator that could not be initialized before
// the capture loop started.
type SetupError struct {
	Component string
	Cause     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Component, e.Cause)
}

func (e *SetupError) Unwrap() error {
	return e.Cause
}

// NewSetupError wraps cause as a setup failure of component.
func NewSetupError(component string, cause error) *SetupError {
	return &SetupError{Component: component, Cause: cause}
}

// Iteration steps reported by IterationError.
const (
	StepCapture = "capture"
	StepPrune   = "prune"
	StepInsert  = "insert"
	StepMotion  = "motion"
)

// IterationError reports a failed collaborator call inside the capture loop.
type IterationError struct {
	Iteration int
	Step      string
	Cause     error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("iteration %d: %s: %v", e.Iteration, e.Step, e.Cause)
}

func (e *IterationError) Unwrap() error {
	return e.Cause
}

// NewIterationError wraps cause as a failure of step in the given iteration.
func NewIterationError(iteration int, step string, cause error) *IterationError {
	return &IterationError{Iteration: iteration, Step: step, Cause: cause}
}
