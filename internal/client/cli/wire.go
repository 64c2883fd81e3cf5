package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/propscan/internal/client/balance"
	"github.com/dmitrijs2005/propscan/internal/client/client"
	"github.com/dmitrijs2005/propscan/internal/client/config"
	"github.com/dmitrijs2005/propscan/internal/client/repositories/kv"
	"github.com/dmitrijs2005/propscan/internal/client/services"
	"github.com/dmitrijs2005/propscan/internal/client/session"
	"github.com/dmitrijs2005/propscan/internal/client/transport"
	"github.com/dmitrijs2005/propscan/internal/filex"
	"github.com/dmitrijs2005/propscan/internal/logging"
	"github.com/dmitrijs2005/propscan/internal/metrics"
)

// Build opens the local database and wires the client core behind an App.
// Logs go to stderr so they do not mix with REPL output.
func Build(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stderr, c.Debug)
	if err != nil {
		return nil, err
	}

	path, err := filex.EnsureParentDir(c.DatabasePath)
	if err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, path)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", path, "error", err)
		return nil, err
	}

	m := metrics.NewCollector("propscan")
	store := kv.NewSQLiteStore(db)
	sess := session.NewManager(store, logger.With("module", "session"))
	rec := balance.New(store, logger.With("module", "balance"),
		balance.WithMetrics(m), balance.WithDefaultLimit(c.DefaultScanLimit))
	engine := transport.NewEngine(c.Transport(), sess, logger.With("module", "transport"),
		transport.WithMetrics(m))
	api := client.NewHTTPClient(engine)

	app := NewApp(Deps{
		Auth:         services.NewAuthService(api, sess, rec, logger.With("module", "auth")),
		Usage:        services.NewUsageService(api, sess, rec, logger.With("module", "usage")),
		Balance:      services.NewBalanceService(api, sess, rec, logger.With("module", "balance_sync")),
		Stats:        m,
		SyncInterval: c.BalanceSyncInterval,
		PingInterval: c.OnlineCheckInterval,
	})
	app.closers = append(app.closers, db.Close)
	return app, nil
}
