package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"motioncapture/internal/app"
	"motioncapture/internal/config"
	"motioncapture/internal/logger"
	"motioncapture/internal/service/capture"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.MustLoad()

	lg, err := logger.NewLogger(cfg)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}
	defer lg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, lg)
	if err != nil {
		code := startupExitCode(ctx, err)
		if code == 0 {
			lg.Info("Interrupted during startup: exiting program.")
		} else {
			lg.Error("Failed to start: %v", err)
		}
		return code
	}
	defer application.Close()

	result := application.Run(ctx)
	if result.State == capture.StateFailed {
		lg.Error("Error: %v", result.Err)
		return 1
	}

	lg.Info("Interrupted: exiting program.")
	return 0
}

// startupExitCode maps a setup error to the exit code. A setup step aborted
// by an interrupt is a clean exit.
func startupExitCode(ctx context.Context, err error) int {
	if err == nil || ctx.Err() != nil {
		return 0
	}
	return 1
}
