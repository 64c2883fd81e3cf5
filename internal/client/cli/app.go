package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/propscan/internal/client/balance"
	"github.com/dmitrijs2005/propscan/internal/client/models"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// AuthService is the subset of services.AuthService the UI needs.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

type UsageService interface {
	Scan(ctx context.Context, url string) (*models.ScanResult, error)
	Compare(ctx context.Context, propertyIDs []string) (*models.Comparison, error)
	Ask(ctx context.Context, propertyID, question string) (*models.Answer, error)
	History(ctx context.Context) ([]models.HistoryItem, error)
}

type BalanceService interface {
	Balance(ctx context.Context) (balance.Balance, error)
	Refresh(ctx context.Context) (balance.Balance, error)
	StartAutoSync(ctx context.Context, interval time.Duration) error
	Stop()
}

// StatsSource reports request and reconciliation counters.
type StatsSource interface {
	Summary() ([]string, error)
}

// Deps carries everything App needs. In and Out default to the terminal.
type Deps struct {
	Auth    AuthService
	Usage   UsageService
	Balance BalanceService
	Stats   StatsSource

	SyncInterval time.Duration
	PingInterval time.Duration

	In  io.Reader
	Out io.Writer
}

type App struct {
	auth    AuthService
	usage   UsageService
	balance BalanceService
	stats   StatsSource

	syncInterval time.Duration
	pingInterval time.Duration

	reader *bufio.Reader
	out    io.Writer

	closers []func() error

	mu    sync.Mutex
	email string
	Mode  Mode
}

func NewApp(d Deps) *App {
	in, out := d.In, d.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &App{
		auth:         d.Auth,
		usage:        d.Usage,
		balance:      d.Balance,
		stats:        d.Stats,
		syncInterval: d.SyncInterval,
		pingInterval: d.PingInterval,
		reader:       bufio.NewReader(in),
		out:          out,
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed {
		a.printf("Switched to %s mode\n", mode)
	}
}

// Run starts background sync and the connectivity watcher, then blocks in
// the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	if a.syncInterval > 0 {
		if err := a.balance.StartAutoSync(ctx, a.syncInterval); err != nil {
			return err
		}
		defer a.balance.Stop()
	}
	if a.pingInterval > 0 {
		go a.StartOnlineStatusWatcher(ctx, a.pingInterval)
	}

	a.println("Welcome to propscan (type 'help' for commands)")
	if a.isLoggedIn(ctx) {
		a.println("Restored previous session.")
	}

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
	return nil
}

func (a *App) close() {
	_ = a.auth.Close()
	for _, c := range a.closers {
		_ = c()
	}
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	_, err := a.auth.CurrentUser(ctx)
	return err == nil
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var parts []string
	if a.email != "" {
		parts = append(parts, a.email)
	}
	if a.Mode != "" {
		parts = append(parts, string(a.Mode))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// StartOnlineStatusWatcher pings the backend every interval and flips Mode
// between online and offline. It returns when ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.auth.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
