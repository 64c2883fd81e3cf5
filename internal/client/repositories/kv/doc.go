// Package kv is the client's persistent key-value store.
//
// Values are opaque bytes keyed by string and survive process restarts. Keys
// that belong to one logical user are built with Scoped, which appends
// "_<userID>" to a base key, so several accounts can share one database file.
//
// Get reports a missing key as (nil, nil). Driver errors are wrapped with the
// key name and the operation that failed.
//
// WithinTx runs several writes atomically; the Store handed to the callback
// must be used for every operation inside it.
package kv
