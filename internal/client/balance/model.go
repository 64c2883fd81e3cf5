package balance

import (
	"math"
	"strings"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// ParsePlan maps a backend plan name onto Plan; anything unknown is free.
func ParsePlan(s string) Plan {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PlanPremium), "pro", "paid":
		return PlanPremium
	default:
		return PlanFree
	}
}

// Balance is the locally cached scan quota. Remaining + Used == TotalLimit
// and both stay within [0, TotalLimit].
type Balance struct {
	Remaining    float64 `json:"remaining"`
	Used         float64 `json:"used"`
	Plan         Plan    `json:"plan"`
	TotalLimit   int     `json:"totalLimit"`
	IsNewAccount bool    `json:"isNewAccount"`
}

// CanAfford reports whether cost fits in the remaining quota.
func (b Balance) CanAfford(cost float64) bool {
	return b.Remaining >= cost
}

// Snapshot is what the backend reported on a profile fetch.
type Snapshot struct {
	Used       float64
	Remaining  float64
	TotalLimit int
	Plan       Plan
}

// uninitialized is the backend's way of saying the account has no balance
// record yet.
func (s Snapshot) uninitialized() bool {
	return s.Used == 0 && s.Remaining == 0
}

type State int

const (
	StateUninitialized State = iota
	StateBootstrapped
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateBootstrapped:
		return "bootstrapped"
	case StateSynced:
		return "synced"
	default:
		return "uninitialized"
	}
}

// Mode selects how a fetched snapshot is applied.
type Mode int

const (
	// ModeSync is the periodic path and honours the new-account guard.
	ModeSync Mode = iota
	// ModeAdopt is the explicit path (login, user-requested refresh).
	ModeAdopt
)

func (m Mode) String() string {
	if m == ModeAdopt {
		return "adopt"
	}
	return "sync"
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, finite(v)))
}
