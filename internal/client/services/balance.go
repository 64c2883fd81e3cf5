package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/propscan/internal/client/balance"
	"github.com/dmitrijs2005/propscan/internal/client/client"
	"github.com/dmitrijs2005/propscan/internal/client/models"
	"github.com/dmitrijs2005/propscan/internal/client/session"
	"github.com/dmitrijs2005/propscan/internal/logging"
	"github.com/robfig/cron/v3"
)

// BalanceService exposes the cached balance and keeps it reconciled.
type BalanceService struct {
	client     client.Client
	session    *session.Manager
	reconciler *balance.Reconciler
	log        logging.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewBalanceService(c client.Client, s *session.Manager, r *balance.Reconciler, log logging.Logger) *BalanceService {
	return &BalanceService{client: c, session: s, reconciler: r, log: log}
}

// Balance returns the cached balance of the logged-in user. A user with no
// cached balance yet gets it fetched.
func (b *BalanceService) Balance(ctx context.Context) (balance.Balance, error) {
	uid, err := currentUser(ctx, b.session)
	if err != nil {
		return balance.Balance{}, err
	}
	if cur, ok := b.reconciler.Current(ctx, uid); ok {
		return cur, nil
	}
	return b.reconciler.Refresh(ctx, uid, b.fetch, balance.ModeAdopt)
}

// Refresh is the explicit "refresh balance" action. It bypasses the
// new-account guard for snapshots showing usage.
func (b *BalanceService) Refresh(ctx context.Context) (balance.Balance, error) {
	uid, err := currentUser(ctx, b.session)
	if err != nil {
		return balance.Balance{}, err
	}
	return b.reconciler.Refresh(ctx, uid, b.fetch, balance.ModeAdopt)
}

// Sync is the periodic reconciliation. It honours the new-account guard.
func (b *BalanceService) Sync(ctx context.Context) (balance.Balance, error) {
	uid, err := currentUser(ctx, b.session)
	if err != nil {
		return balance.Balance{}, err
	}
	return b.reconciler.Refresh(ctx, uid, b.fetch, balance.ModeSync)
}

// StartAutoSync runs Sync every interval until ctx ends or Stop is called.
// A run still in progress when the next one is due is skipped.
func (b *BalanceService) StartAutoSync(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid sync interval %s", interval)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cron != nil {
		return errors.New("auto sync already running")
	}

	l := cronLogger{log: b.log}
	c := cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if _, err := b.Sync(ctx); err != nil && !errors.Is(err, ErrNotLoggedIn) {
			b.log.Warn(ctx, "balance: scheduled sync failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	c.Start()
	b.cron = c
	b.log.Info(ctx, "balance: auto sync started", "interval", interval.String())

	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	return nil
}

// Stop halts auto sync and waits for a running sync to finish.
func (b *BalanceService) Stop() {
	b.mu.Lock()
	c := b.cron
	b.cron = nil
	b.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (b *BalanceService) fetch(ctx context.Context) (balance.Snapshot, error) {
	u, err := b.client.Profile(ctx)
	if err != nil {
		return balance.Snapshot{}, err
	}
	return snapshotOf(u), nil
}

func snapshotOf(u *models.User) balance.Snapshot {
	if u == nil {
		return balance.Snapshot{}
	}
	return balance.Snapshot{
		Used:       u.ScansUsed,
		Remaining:  u.ScansRemaining,
		TotalLimit: u.ScanLimit,
		Plan:       balance.ParsePlan(u.Plan),
	}
}

// cronLogger routes cron's own diagnostics to the application logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(context.Background(), "cron: "+msg, append(keysAndValues, "error", err)...)
}
