package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind tags a structural graph error or validation violation.
type ErrorKind string

// The structural error kinds are listed below.
const (
	DanglingReference          ErrorKind = "DanglingReference"
	DuplicateEdge              ErrorKind = "DuplicateEdge"
	SelfLoop                   ErrorKind = "SelfLoop"
	CycleDetected              ErrorKind = "CycleDetected"
	MissingSourceOrDestination ErrorKind = "MissingSourceOrDestination"
	DuplicateID                ErrorKind = "DuplicateId"
	EdgeNotFound               ErrorKind = "EdgeNotFound"
	InvalidNode                ErrorKind = "InvalidNode"
)

var (
	// ErrDanglingReference occurs when an edge endpoint names a node that is not in the definition.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrDuplicateEdge occurs when an edge repeats an existing ordered (from, to) pair.
	ErrDuplicateEdge = errors.New("duplicate edge")
	// ErrSelfLoop occurs when an edge starts and ends at the same node.
	ErrSelfLoop = errors.New("self loop")
	// ErrCycleDetected occurs when the edge set contains, or would contain, a directed cycle.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrMissingSourceOrDestination occurs when a definition has no source or no destination node.
	ErrMissingSourceOrDestination = errors.New("missing source or destination")
	// ErrDuplicateID occurs when a node or edge id is already taken.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrEdgeNotFound occurs when an operation targets an edge that does not exist.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrInvalidNode occurs when a node cannot take the role an operation gives it.
	ErrInvalidNode = errors.New("invalid node")
	// ErrInternalConsistency signals that an operation produced a graph breaking
	// its own post-condition. It is a programming error, not a user error.
	ErrInternalConsistency = errors.New("internal consistency fault")
)

var sentinels = map[ErrorKind]error{
	DanglingReference:          ErrDanglingReference,
	DuplicateEdge:              ErrDuplicateEdge,
	SelfLoop:                   ErrSelfLoop,
	CycleDetected:              ErrCycleDetected,
	MissingSourceOrDestination: ErrMissingSourceOrDestination,
	DuplicateID:                ErrDuplicateID,
	EdgeNotFound:               ErrEdgeNotFound,
	InvalidNode:                ErrInvalidNode,
}

// GraphError is a structural graph error together with the ids that caused it.
// It matches the sentinel for its Kind under errors.Is.
type GraphError struct {
	Kind    ErrorKind
	NodeIDs []string
	EdgeIDs []string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if len(e.NodeIDs) > 0 {
		fmt.Fprintf(&sb, " nodes=[%s]", strings.Join(e.NodeIDs, ","))
	}
	if len(e.EdgeIDs) > 0 {
		fmt.Fprintf(&sb, " edges=[%s]", strings.Join(e.EdgeIDs, ","))
	}
	return sb.String()
}

// Is makes errors.Is(err, ErrCycleDetected) and friends work.
func (e *GraphError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// ConsistencyError is returned when a multi-step operation breaks its own
// post-condition. The input definition is left untouched.
type ConsistencyError struct {
	Op         string
	Violations []*GraphError
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrInternalConsistency, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInternalConsistency.
func (e *ConsistencyError) Unwrap() error {
	return ErrInternalConsistency
}
