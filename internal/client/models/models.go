// Package models defines the payloads exchanged with the propscan backend.
package models

import "time"

// User is the authenticated account as returned by GET /users/me.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	Plan           string    `json:"plan"`
	ScansUsed      float64   `json:"scans_used"`
	ScansRemaining float64   `json:"scans_remaining"`
	ScanLimit      int       `json:"scan_limit"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// Property is a scanned listing.
type Property struct {
	ID        string  `json:"id"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Address   string  `json:"address,omitempty"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency,omitempty"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms float64 `json:"bathrooms"`
	AreaSqm   float64 `json:"area_sqm"`
	Summary   string  `json:"summary,omitempty"`
}

type ScanResult struct {
	Property  Property  `json:"property"`
	ScannedAt time.Time `json:"scanned_at"`
}

type HistoryItem struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	ScannedAt  time.Time `json:"scanned_at"`
}

type Comparison struct {
	Properties []Property `json:"properties"`
	WinnerID   string     `json:"winner_id,omitempty"`
	Summary    string     `json:"summary"`
}

type Answer struct {
	PropertyID string `json:"property_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// UsageKind names a billable action.
type UsageKind string

const (
	UsageScan     UsageKind = "scan"
	UsageCompare  UsageKind = "compare"
	UsageQuestion UsageKind = "question"
)

// Cost is the number of scan units the action consumes.
func (k UsageKind) Cost() float64 {
	switch k {
	case UsageScan, UsageCompare:
		return 1
	case UsageQuestion:
		return 0.5
	default:
		return 0
	}
}

type UsageReceipt struct {
	Kind           UsageKind `json:"kind"`
	Amount         float64   `json:"amount"`
	ScansUsed      float64   `json:"scans_used"`
	ScansRemaining float64   `json:"scans_remaining"`
}
