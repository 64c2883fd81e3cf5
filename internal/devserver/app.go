// Package devserver wires and runs the in-memory development backend used
// for local runs of the propscan client.
package devserver

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/propscan/internal/devserver/accounts"
	"github.com/dmitrijs2005/propscan/internal/devserver/api"
	"github.com/dmitrijs2005/propscan/internal/devserver/config"
	"github.com/dmitrijs2005/propscan/internal/logging"
	"github.com/dmitrijs2005/propscan/internal/metrics"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *api.Server
}

func NewApp(c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout, c.Debug)
	if err != nil {
		return nil, err
	}

	svc := accounts.NewService(accounts.NewMemoryRepository(), accounts.Config{
		SecretKey:         []byte(c.SecretKey),
		TokenTTL:          c.TokenTTL,
		ScanLimit:         c.ScanLimit,
		StaleProfileReads: c.StaleProfileReads,
	})
	srv := api.NewServer(c.Address, svc, logger, metrics.NewHTTPCollector("propscan_dev"), api.WithLatency(c.Latency))

	return &App{config: c, logger: logger, server: srv}, nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "scan_limit", app.config.ScanLimit)
	return app.server.Run(ctx)
}
