package sensor

import (
	"context"
	"io"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"motioncapture/internal/logger"
)

func TestMotionSensor_ReadsLevel(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO12", Num: 12}
	s, err := NewMotionSensor(pin, logger.NewWriter(io.Discard, io.Discard))
	if err != nil {
		t.Fatalf("NewMotionSensor failed: %v", err)
	}

	if pin.P != gpio.Float {
		t.Errorf("Expected floating input, got %s", pin.P)
	}

	tests := []struct {
		level    gpio.Level
		expected bool
	}{
		{gpio.Low, false},
		{gpio.High, true},
		{gpio.Low, false},
	}

	for _, tt := range tests {
		pin.L = tt.level
		motion, err := s.Motion(context.Background())
		if err != nil {
			t.Fatalf("Motion failed: %v", err)
		}
		if motion != tt.expected {
			t.Errorf("Level %s: expected motion %t, got %t", tt.level, tt.expected, motion)
		}
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestMotionSensor_CancelledContext(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO12", Num: 12}
	s, err := NewMotionSensor(pin, logger.NewWriter(io.Discard, io.Discard))
	if err != nil {
		t.Fatalf("NewMotionSensor failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Motion(ctx); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
