// Package sessionstore defines the storage capability behind session-scoped
// state such as job progress.
//
// # Why Session Store Exists
//
// Progress tracking must survive reloads within one session while never
// leaking into another session. Callers should not care whether the bytes
// live in memory or in a file, so the medium is hidden behind a narrow
// key/value interface:
//   - **inmemorystore:** ephemeral, per-instance; used in tests and development
//   - **sqlitestore:** persisted in a SQLite file, scoped by a session id
//
// # Contract
//
// Values are opaque byte slices. A missing key is not an error: Get reports
// found=false. Implementations must copy values on the way in and out so
// callers can reuse their buffers.
package sessionstore

import "context"

//go:generate mockgen -package mock -destination mock/store.go . Store

// Store is a session-scoped key/value storage medium.
type Store interface {
	// Get returns the value stored under key. found is false if nothing is stored.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
