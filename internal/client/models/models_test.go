package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageKind_Cost(t *testing.T) {
	assert.Equal(t, 1.0, UsageScan.Cost())
	assert.Equal(t, 1.0, UsageCompare.Cost())
	assert.Equal(t, 0.5, UsageQuestion.Cost())
	assert.Equal(t, 0.0, UsageKind("refund").Cost())
}

func TestUser_DecodesBackendShape(t *testing.T) {
	raw := `{"id":"u1","email":"a@b.c","plan":"premium","scans_used":2.5,"scans_remaining":97.5,"scan_limit":100,"created_at":"2025-01-02T03:04:05Z"}`

	var u User
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, 2.5, u.ScansUsed)
	assert.Equal(t, 97.5, u.ScansRemaining)
	assert.Equal(t, 100, u.ScanLimit)
	assert.Equal(t, 2025, u.CreatedAt.Year())
}
