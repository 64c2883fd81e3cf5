// Package accounts is the account and quota logic of the development
// backend.
package accounts

import (
	"time"

	"github.com/dmitrijs2005/propscan/internal/client/models"
)

type Account struct {
	ID           string
	Email        string
	Name         string
	Salt         []byte
	PasswordHash []byte
	Plan         string
	Limit        int
	Used         float64
	// Initialized is false until the first billable action; until then the
	// profile reports zero used and zero remaining.
	Initialized bool
	// StaleReads counts profile reads still to be answered with zeros after
	// initialization.
	StaleReads int
	CreatedAt  time.Time
	Scans      []Scan
}

type Scan struct {
	ID        string
	Property  models.Property
	ScannedAt time.Time
}

func (a *Account) Remaining() float64 {
	r := float64(a.Limit) - a.Used
	if r < 0 {
		return 0
	}
	return r
}

func (a *Account) clone() *Account {
	c := *a
	c.Scans = append([]Scan(nil), a.Scans...)
	return &c
}
