// Package cli provides shelfctl, the interactive shelfkeeper client.
//
// It keeps one session per tenant in a local SQLite file, refreshes access
// tokens on demand and runs a REPL over the tenant-scoped book API. A
// background watcher pings the server and flips the prompt between online
// and offline.
package cli
