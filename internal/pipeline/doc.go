// Package pipeline is the logical model of a data-synchronization pipeline:
// a directed graph connecting sources, optional transformers and entity
// placeholders, and destinations.
//
// # Invariants
//
// Every definition accepted by the mutation functions in this package holds
// the following structural invariants:
//   - every edge references nodes present in the same definition
//   - no two edges share the same ordered (from, to) pair
//   - no edge connects a node to itself
//   - the edge set contains no directed cycle
//
// Completeness (at least one source and one destination) is only checked by
// Validate, never enforced while a definition is being edited.
//
// # Mutation Model
//
// All mutations are pure functions. They compute the complete next state
// from a copy and return it; the input Definition is never modified. On
// error the input is returned unchanged, so callers can write
//
//	def, err = pipeline.AddEdge(def, edge)
//
// and keep the prior graph when the edit is rejected. Multi-step edits such
// as InsertNodeOnEdge are exposed as a single operation so intermediate
// states are never observable.
package pipeline
