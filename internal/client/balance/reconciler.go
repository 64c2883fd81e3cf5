// Package balance keeps the per-user scan balance consistent with the
// backend.
//
// Billable actions deduct locally right away; the backend's numbers replace
// the local ones on every profile fetch, clamped into [0, limit]. An account
// the backend still reports as all zeros is bootstrapped to a full default
// quota and marked with a new-account guard so that later zero snapshots,
// which only mean the backend has not caught up, do not wipe local usage.
package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/propscan/internal/client/repositories/kv"
	"github.com/dmitrijs2005/propscan/internal/common"
	"github.com/dmitrijs2005/propscan/internal/logging"
	"github.com/dmitrijs2005/propscan/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const guardValue = "true"

const defaultFetchTimeout = 2 * time.Minute

// FetchFunc loads the authoritative snapshot from the backend.
type FetchFunc func(ctx context.Context) (Snapshot, error)

type guardOp int

const (
	guardKeep guardOp = iota
	guardSet
	guardClear
)

type Option func(*Reconciler)

func WithMetrics(m *metrics.Collector) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithFetchTimeout bounds a shared refresh fetch. The fetch outlives the
// caller that started it, so it carries its own deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.fetchTimeout = d
		}
	}
}

// WithDefaultLimit sets the quota used when the backend omits one.
func WithDefaultLimit(limit int) Option {
	return func(r *Reconciler) {
		if limit > 0 {
			r.defaultLimit = limit
		}
	}
}

// Reconciler never returns store errors to its callers. Failures are logged
// and the last in-memory value is served until a write succeeds.
type Reconciler struct {
	store        kv.Store
	log          logging.Logger
	metrics      *metrics.Collector
	defaultLimit int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	mem   map[string]Balance
	// dirty marks users whose last write never reached the store; their
	// in-memory balance is newer than the persisted one.
	dirty map[string]bool

	fetchTimeout time.Duration

	group singleflight.Group
}

func New(store kv.Store, log logging.Logger, opts ...Option) *Reconciler {
	if log == nil {
		log = logging.Discard()
	}
	r := &Reconciler{
		store:        store,
		log:          log,
		defaultLimit: common.DefaultScanLimit,
		locks:        make(map[string]*sync.Mutex),
		mem:          make(map[string]Balance),
		dirty:        make(map[string]bool),
		fetchTimeout: defaultFetchTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Current returns the cached balance, if any.
func (r *Reconciler) Current(ctx context.Context, userID string) (Balance, bool) {
	unlock := r.lock(userID)
	defer unlock()

	return r.load(ctx, userID)
}

func (r *Reconciler) State(ctx context.Context, userID string) State {
	unlock := r.lock(userID)
	defer unlock()

	if r.guardActive(ctx, userID) {
		return StateBootstrapped
	}
	if _, ok := r.load(ctx, userID); ok {
		return StateSynced
	}
	return StateUninitialized
}

// Sync applies a snapshot on the periodic path. While the new-account guard
// is active a snapshot without usage is ignored; one showing usage clears
// the guard and is adopted.
func (r *Reconciler) Sync(ctx context.Context, userID string, snap Snapshot) Balance {
	unlock := r.lock(userID)
	defer unlock()

	if r.guardActive(ctx, userID) {
		if snap.Used <= 0 {
			r.metrics.Reconcile("ignored")
			r.log.Debug(ctx, "balance: snapshot ignored, new-account guard active",
				"user_id", userID, "used", snap.Used, "remaining", snap.Remaining)
			if cur, ok := r.load(ctx, userID); ok {
				return cur
			}
			return r.bootstrap(ctx, userID, snap)
		}
		r.log.Info(ctx, "balance: backend reports usage, clearing new-account guard", "user_id", userID)
		return r.adopt(ctx, userID, snap)
	}

	if snap.uninitialized() {
		return r.bootstrap(ctx, userID, snap)
	}
	return r.adopt(ctx, userID, snap)
}

// Adopt applies a snapshot on the explicit path. Any initialised snapshot
// replaces the local balance and clears the guard. An all-zero snapshot
// bootstraps the account unless it is already bootstrapped.
func (r *Reconciler) Adopt(ctx context.Context, userID string, snap Snapshot) Balance {
	unlock := r.lock(userID)
	defer unlock()

	if snap.uninitialized() {
		if r.guardActive(ctx, userID) {
			if cur, ok := r.load(ctx, userID); ok {
				r.metrics.Reconcile("ignored")
				return cur
			}
		}
		return r.bootstrap(ctx, userID, snap)
	}
	return r.adopt(ctx, userID, snap)
}

// Refresh fetches a snapshot and applies it in the given mode. Concurrent
// refreshes of the same user and mode share one fetch. When the fetch fails
// the cached balance is returned unchanged together with the error.
//
// The shared fetch is detached from any single caller's cancellation and
// bounded by the fetch timeout instead; a caller whose ctx ends stops
// waiting and gets the cached balance with ctx's error.
func (r *Reconciler) Refresh(ctx context.Context, userID string, fetch FetchFunc, mode Mode) (Balance, error) {
	key := mode.String() + ":" + userID
	ch := r.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		snap, err := fetch(fctx)
		if err != nil {
			r.metrics.Reconcile("fetch_failed")
			r.log.Warn(fctx, "balance: refresh fetch failed", "user_id", userID, "error", err)
			cur, _ := r.Current(fctx, userID)
			return cur, err
		}
		if mode == ModeAdopt {
			return r.Adopt(fctx, userID, snap), nil
		}
		return r.Sync(fctx, userID, snap), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.log.Debug(ctx, "balance: refresh shared with concurrent caller", "user_id", userID)
		}
		b, _ := res.Val.(Balance)
		if res.Err != nil {
			return b, fmt.Errorf("refresh balance: %w", res.Err)
		}
		return b, nil
	case <-ctx.Done():
		cur, _ := r.Current(context.WithoutCancel(ctx), userID)
		return cur, fmt.Errorf("refresh balance: %w", ctx.Err())
	}
}

// Deduct subtracts amount optimistically after a successful billable call.
// The result never goes below zero remaining or above the limit used.
func (r *Reconciler) Deduct(ctx context.Context, userID string, amount float64) Balance {
	unlock := r.lock(userID)
	defer unlock()

	cur, ok := r.load(ctx, userID)
	if amount <= 0 || finite(amount) != amount {
		if !ok {
			cur = r.fresh(0, "")
		}
		return cur
	}

	// First usage before any snapshot: the account is new as far as we know.
	guard := guardKeep
	if !ok {
		cur = r.fresh(0, "")
		cur.IsNewAccount = true
		guard = guardSet
	}

	limit := float64(cur.TotalLimit)
	used := clamp(cur.Used+amount, 0, limit)
	next := cur
	next.Used = used
	next.Remaining = limit - used

	r.metrics.Reconcile("deducted")
	r.log.Debug(ctx, "balance: deducted", "user_id", userID, "amount", amount, "used", next.Used, "remaining", next.Remaining)
	r.persist(ctx, userID, next, guard)
	return next
}

// Forget drops everything cached for userID.
func (r *Reconciler) Forget(ctx context.Context, userID string) {
	unlock := r.lock(userID)
	defer unlock()

	r.mu.Lock()
	delete(r.mem, userID)
	delete(r.dirty, userID)
	r.mu.Unlock()

	err := r.store.WithinTx(ctx, func(ctx context.Context, s kv.Store) error {
		if err := s.Delete(ctx, balanceKey(userID)); err != nil {
			return err
		}
		return s.Delete(ctx, guardKey(userID))
	})
	if err != nil {
		r.log.Error(ctx, "balance: forget failed", "user_id", userID, "error", err)
	}
}

func (r *Reconciler) adopt(ctx context.Context, userID string, snap Snapshot) Balance {
	b := r.fresh(snap.TotalLimit, snap.Plan)
	limit := float64(b.TotalLimit)
	b.Used = clamp(snap.Used, 0, limit)
	b.Remaining = limit - b.Used

	if want := clamp(snap.Remaining, 0, limit); want != b.Remaining {
		r.log.Warn(ctx, "balance: backend used and remaining disagree, trusting used",
			"user_id", userID, "used", snap.Used, "remaining", snap.Remaining, "limit", b.TotalLimit)
	}

	r.metrics.Reconcile("adopted")
	r.persist(ctx, userID, b, guardClear)
	return b
}

func (r *Reconciler) bootstrap(ctx context.Context, userID string, snap Snapshot) Balance {
	b := r.fresh(snap.TotalLimit, snap.Plan)
	b.IsNewAccount = true

	r.metrics.Reconcile("bootstrapped")
	r.log.Info(ctx, "balance: bootstrapped new account", "user_id", userID, "limit", b.TotalLimit)
	r.persist(ctx, userID, b, guardSet)
	return b
}

func (r *Reconciler) fresh(limit int, plan Plan) Balance {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if plan == "" {
		plan = PlanFree
	}
	return Balance{Remaining: float64(limit), Plan: plan, TotalLimit: limit}
}

func (r *Reconciler) persist(ctx context.Context, userID string, b Balance, g guardOp) {
	r.mu.Lock()
	r.mem[userID] = b
	r.mu.Unlock()

	data, err := json.Marshal(b)
	if err != nil {
		r.markDirty(userID, true)
		r.log.Error(ctx, "balance: encode failed", "user_id", userID, "error", err)
		return
	}

	err = r.store.WithinTx(ctx, func(ctx context.Context, s kv.Store) error {
		if err := s.Set(ctx, balanceKey(userID), data); err != nil {
			return err
		}
		switch g {
		case guardSet:
			return s.Set(ctx, guardKey(userID), []byte(guardValue))
		case guardClear:
			return s.Delete(ctx, guardKey(userID))
		}
		return nil
	})
	if err != nil {
		r.markDirty(userID, true)
		r.metrics.Reconcile("persist_failed")
		r.log.Error(ctx, "balance: persist failed, serving in-memory value", "user_id", userID, "error", err)
		return
	}
	r.markDirty(userID, false)
}

func (r *Reconciler) markDirty(userID string, dirty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dirty {
		r.dirty[userID] = true
		return
	}
	delete(r.dirty, userID)
}

func (r *Reconciler) isDirty(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty[userID]
}

// load reads the persisted balance, falling back to the in-memory copy.
// While a user's last write is unpersisted the in-memory copy wins.
func (r *Reconciler) load(ctx context.Context, userID string) (Balance, bool) {
	if r.isDirty(userID) {
		return r.memory(userID)
	}
	raw, err := r.store.Get(ctx, balanceKey(userID))
	if err != nil {
		r.log.Warn(ctx, "balance: read failed, using in-memory value", "user_id", userID, "error", err)
		return r.memory(userID)
	}
	if len(raw) == 0 {
		return r.memory(userID)
	}

	var b Balance
	if err := json.Unmarshal(raw, &b); err != nil {
		r.log.Warn(ctx, "balance: stored value unreadable", "user_id", userID, "error", err)
		return r.memory(userID)
	}
	if b.TotalLimit <= 0 {
		b.TotalLimit = r.defaultLimit
	}
	return b, true
}

func (r *Reconciler) memory(userID string) (Balance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.mem[userID]
	return b, ok
}

func (r *Reconciler) guardActive(ctx context.Context, userID string) bool {
	if r.isDirty(userID) {
		b, _ := r.memory(userID)
		return b.IsNewAccount
	}
	raw, err := r.store.Get(ctx, guardKey(userID))
	if err != nil {
		r.log.Warn(ctx, "balance: guard read failed, using in-memory value", "user_id", userID, "error", err)
		b, _ := r.memory(userID)
		return b.IsNewAccount
	}
	return string(raw) == guardValue
}

func (r *Reconciler) lock(userID string) func() {
	r.mu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func balanceKey(userID string) string {
	return kv.Scoped(common.KeyScanBalance, userID)
}

func guardKey(userID string) string {
	return kv.Scoped(common.KeyNewAccount, userID)
}
