package main

import (
	"fmt"
	"os"

	"fabla-transcriber/internal/bootstrap"
	"fabla-transcriber/internal/config"
	"fabla-transcriber/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	level, err := logging.ParseLevel(os.Getenv(config.EnvLogLevel))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: level})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Close()

	app, err := bootstrap.New(logger.Logger)
	if err != nil {
		return fmt.Errorf("bootstrap app: %w", err)
	}
	if err := app.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}
