// Package inmemorystore provides a thread-safe, in-memory implementation
// of the sessionstore.Store interface.
//
// # Characteristics
//
//   - **Ephemeral:** Created fresh for each session, gone when the process exits
//   - **Isolated:** Each Store instance is its own session
//   - **Thread-Safe:** Backed by sync.Map
//
// It is suitable for development, testing, or any scenario where session
// state does not need to outlive the process. Use sqlitestore otherwise.
package inmemorystore
