package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/aura/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(defaultConfigPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	if level, err := shared.ParseLogLevel(config.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(runner).Run(ctx, os.Args)
	stop()

	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close database", "error", cerr)
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "aura",
		Usage:    "Keep lists, tasks and notes with duplicate-aware resolution",
		Version:  "0.1.0",
		Flags:    r.globalFlags(),
		Before:   r.Before,
		Commands: r.register(),
	}
}
