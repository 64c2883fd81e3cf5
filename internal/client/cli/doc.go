// Package cli provides the interactive propscan terminal client.
//
// The REPL drives the client core the way the mobile screens would: log in,
// scan listings, compare them, ask questions and watch the scan balance.
// While it runs, a background watcher pings the backend to show whether the
// client is online, and the balance service keeps the cached balance in sync.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
