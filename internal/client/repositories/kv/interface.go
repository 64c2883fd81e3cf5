package kv

import "context"

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// Scoped returns base_userID, or base itself when userID is empty.
func Scoped(base, userID string) string {
	if userID == "" {
		return base
	}
	return base + "_" + userID
}
