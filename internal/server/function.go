package server

import (
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/api"
	"github.com/JakeFAU/pagescrape/internal/clock/system"
	"github.com/JakeFAU/pagescrape/internal/config"
	"github.com/JakeFAU/pagescrape/internal/logging"
)

var (
	functionOnce    sync.Once
	functionHandler http.Handler
)

// FunctionHandler returns the handler shared by the serverless entrypoints.
// It is built on first use and reused for the life of the process; every
// scrape still launches its own browser.
func FunctionHandler() http.Handler {
	functionOnce.Do(func() {
		functionHandler = buildFunction(config.LoadFunction)
	})
	return functionHandler
}

func buildFunction(load func() (config.Config, error)) http.Handler {
	cfg, err := load()
	if err != nil {
		zap.L().Error("function config failed", zap.Error(err))
		return api.InternalErrorHandler(system.New())
	}
	logger, _, err := logging.Install(cfg.Logging.Development)
	if err != nil {
		zap.L().Error("function logger init failed", zap.Error(err))
		logger = zap.L()
	}
	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Error("function app init failed", zap.Error(err))
		return api.InternalErrorHandler(system.New())
	}
	return app.Handler()
}
