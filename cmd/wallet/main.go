package main

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"

	"wallet/internal/cli"
	"wallet/internal/console"
	"wallet/internal/log"
	"wallet/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	// the config file may set a different level
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	be := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	auth := services.NewAuthService(be.Store, logger, services.WithBcryptCost(cfg.BcryptCost))
	finance := services.NewFinanceService(auth, be.Store, be.Publisher, logger)

	color := isatty.IsTerminal(os.Stdout.Fd())
	console.PrintBanner(os.Stdout, color, [][2]string{
		{"Backend", cfg.DataBackend},
		{"Events", eventsLabel(be.Publisher != nil)},
		{"Charts", cfg.ChartDir},
	})

	c := console.New(os.Stdin, os.Stdout, auth, finance, console.Options{
		ChartDir: cfg.ChartDir,
		Color:    color,
	}, logger)

	if err := c.Run(ctx); err != nil {
		logger.Error("Session ended with unsaved data", log.FieldError, err, log.FieldOperation, log.OpShutdown)
		return 1
	}
	return 0
}

func eventsLabel(enabled bool) string {
	if enabled {
		return "amqp"
	}
	return "off"
}
