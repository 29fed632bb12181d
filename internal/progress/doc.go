// Package progress tracks the status of running synchronization jobs, one
// record per pipeline connection.
//
// # Storage Layout
//
// The full state, a map from pipeline connection id to Record, lives as one
// JSON document under a single key of a sessionstore.Store. Every mutating
// operation is a complete read-modify-write of that document.
//
// # Expiry
//
// A record older than TTL is treated as absent by every read and is deleted
// from storage by the first read that observes it. There is no background
// timer; expiry is enforced lazily.
//
// # Faults
//
// Storage and serialization faults never reach the caller. Reads degrade to
// an empty state, writes leave the previous state in place, and both are
// logged.
package progress
