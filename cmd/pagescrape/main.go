package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/config"
	"github.com/JakeFAU/pagescrape/internal/logging"
	"github.com/JakeFAU/pagescrape/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pagescrape: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("pagescrape", pflag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to config file")
	fs.Int("port", 3000, "HTTP listen port (overrides PORT)")
	fs.Bool("development", false, "Enable development logging")
	fs.String("prefix", "", "Route prefix, e.g. /api")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*cfgPath, fs)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	logger, restore, err := logging.Install(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer restore()
	defer func() {
		if syncErr := logging.Sync(logger); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()

	undo, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof))
	if err != nil {
		logger.Warn("GOMAXPROCS not adjusted", zap.Error(err))
	}
	defer undo()

	app, err := server.NewApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("app init failed: %w", err)
	}
	return app.Run(context.Background())
}
