// Package client contains client-side building blocks for propscan.
//
// # Overview
//
// The package provides:
//  1. The API contract (see the Client interface) for the backend: Register,
//     Login, Profile, Scan, History, Compare, AskQuestion, RecordUsage and
//     Ping.
//  2. HTTPClient, which maps each operation to a REST call executed by a
//     transport.Engine (timeouts, retry, 401 handling).
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database with embedded goose migrations.
//
// # Error Handling
//
// Every error returned by HTTPClient is a *transport.Error whose Error()
// is safe to show to the user. ErrUnauthorized and ErrUnavailable can be
// matched with errors.Is.
package client
