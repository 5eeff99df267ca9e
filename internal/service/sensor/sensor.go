package sensor

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"motioncapture/internal/errs"
	"motioncapture/internal/logger"
)

// MotionSensor reads a PIR style digital motion input. A high level means
// motion. No debouncing is performed.
type MotionSensor struct {
	pin    gpio.PinIO
	logger *logger.Logger
}

// Open initializes the host drivers and configures pinName (for example
// "GPIO12") as an input without pull resistor; the sensor drives the line.
func Open(pinName string, logger *logger.Logger) (*MotionSensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize gpio host: %w", err)
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrPinNotFound, pinName)
	}

	return NewMotionSensor(pin, logger)
}

// NewMotionSensor configures an already resolved pin as the motion input.
func NewMotionSensor(pin gpio.PinIO, logger *logger.Logger) (*MotionSensor, error) {
	if err := pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure %s as input: %w", pin.Name(), err)
	}

	logger.Info("🔌 Motion sensor ready on %s", pin.Name())
	return &MotionSensor{pin: pin, logger: logger}, nil
}

// Motion samples the input once.
func (s *MotionSensor) Motion(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.pin.Read() == gpio.High, nil
}

// Close stops any activity on the pin and releases it.
func (s *MotionSensor) Close() error {
	if err := s.pin.Halt(); err != nil {
		return fmt.Errorf("failed to release %s: %w", s.pin.Name(), err)
	}
	s.logger.Info("🔌 Motion sensor on %s released", s.pin.Name())
	return nil
}
