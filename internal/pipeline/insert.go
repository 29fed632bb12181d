package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/vk/syncgraph/internal/ctxlog"
)

// IDGenerator produces ids for edges created by the inserter.
type IDGenerator func() string

// Inserter splices nodes into existing edges.
type Inserter struct {
	newID IDGenerator
}

// NewInserter creates an Inserter. A nil generator falls back to random UUIDs.
func NewInserter(gen IDGenerator) *Inserter {
	if gen == nil {
		gen = uuid.NewString
	}
	return &Inserter{newID: gen}
}

var defaultInserter = NewInserter(nil)

// InsertNodeOnEdge splices newNode into the edge edgeID using UUID edge ids.
// See Inserter.InsertNodeOnEdge.
func InsertNodeOnEdge(ctx context.Context, def Definition, edgeID string, newNode Node) (Definition, error) {
	return defaultInserter.InsertNodeOnEdge(ctx, def, edgeID, newNode)
}

// InsertNodeOnEdge replaces the edge (u, v) identified by edgeID with the two
// edges (u, newNode) and (newNode, v), adding newNode in the same step. The
// result has one more node and one more edge than def.
//
// Only transformers can be spliced in; an empty kind means transformer.
// Structural problems with the request are reported as *GraphError
// (ErrEdgeNotFound, ErrInvalidNode, ErrDuplicateID). If the computed result
// fails structural validation the operation is aborted with a
// *ConsistencyError. In every error case def is returned unchanged.
func (in *Inserter) InsertNodeOnEdge(ctx context.Context, def Definition, edgeID string, newNode Node) (Definition, error) {
	logger := ctxlog.FromContext(ctx)

	idx := -1
	for i, e := range def.Edges {
		if e.ID == edgeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return def, &GraphError{Kind: EdgeNotFound, EdgeIDs: []string{edgeID}}
	}
	if newNode.ID == "" {
		return def, &GraphError{Kind: InvalidNode}
	}
	switch newNode.Kind {
	case "":
		newNode.Kind = KindTransformer
	case KindTransformer:
	default:
		return def, &GraphError{Kind: InvalidNode, NodeIDs: []string{newNode.ID}}
	}
	if _, exists := def.Node(newNode.ID); exists {
		return def, &GraphError{Kind: DuplicateID, NodeIDs: []string{newNode.ID}}
	}

	target := def.Edges[idx]
	upstream := Edge{ID: in.newID(), FromNodeID: target.FromNodeID, ToNodeID: newNode.ID}
	downstream := Edge{ID: in.newID(), FromNodeID: newNode.ID, ToNodeID: target.ToNodeID}

	next := def.Clone()
	next.Nodes = append(next.Nodes, newNode.Clone())
	edges := make([]Edge, 0, len(def.Edges)+1)
	edges = append(edges, next.Edges[:idx]...)
	edges = append(edges, upstream, downstream)
	edges = append(edges, next.Edges[idx+1:]...)
	next.Edges = edges

	if res := ValidateStructure(next); !res.OK() {
		err := &ConsistencyError{Op: "insert node on edge", Violations: res.Violations}
		logger.Error("Edge insertion broke graph invariants, edit aborted.",
			"pipeline", def.ID, "edge", edgeID, "node", newNode.ID, "error", err)
		return def, err
	}

	logger.Debug("Node inserted on edge.",
		"pipeline", def.ID, "edge", edgeID, "node", newNode.ID,
		"upstream", upstream.ID, "downstream", downstream.ID)
	return next, nil
}
