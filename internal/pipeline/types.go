package pipeline

import (
	"fmt"
	"strings"
)

// Kind is the role of a node within a pipeline.
type Kind string

// The available node kinds are listed below.
const (
	KindSource      Kind = "source"
	KindDestination Kind = "destination"
	KindEntity      Kind = "entity"
	KindTransformer Kind = "transformer"
)

// Kinds returns every supported node kind.
func Kinds() []Kind {
	return []Kind{KindSource, KindDestination, KindEntity, KindTransformer}
}

// ParseKind normalizes a kind tag. Matching is case-insensitive so visual
// type tags ("source") and upper-case API tags ("SOURCE") both resolve.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown node kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSource, KindDestination, KindEntity, KindTransformer:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Node is one step of a pipeline.
type Node struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	// Identifies the connector or transformer implementation behind the node.
	ShortName string `json:"shortName,omitempty"`
	// Opaque to the graph; validated by the implementation ShortName names.
	Config map[string]any `json:"config,omitempty"`
	// References an authenticated connection the pipeline does not own.
	ConnectionRef       string `json:"connectionRef,omitempty"`
	EntityDefinitionRef string `json:"entityDefinitionRef,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Config = CloneConfig(n.Config)
	return n
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID         string `json:"id"`
	FromNodeID string `json:"fromNodeId"`
	ToNodeID   string `json:"toNodeId"`
}

// Definition is the pipeline aggregate: nodes and the edges between them.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// The synchronization this definition belongs to.
	PipelineID string `json:"pipelineId"`
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
}

// Clone returns a deep copy of the definition. Nil slices stay nil.
func (d Definition) Clone() Definition {
	if d.Nodes != nil {
		nodes := make([]Node, len(d.Nodes))
		for i, n := range d.Nodes {
			nodes[i] = n.Clone()
		}
		d.Nodes = nodes
	}
	if d.Edges != nil {
		d.Edges = append([]Edge(nil), d.Edges...)
	}
	return d
}

// Node looks a node up by id.
func (d Definition) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge looks an edge up by id.
func (d Definition) Edge(id string) (Edge, bool) {
	for _, e := range d.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// Incoming returns the edges ending at nodeID, in definition order.
func (d Definition) Incoming(nodeID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.ToNodeID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the edges starting at nodeID, in definition order.
func (d Definition) Outgoing(nodeID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.FromNodeID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// TopologicalOrder returns node ids in data-flow order. Ties keep definition
// order. Edges with unknown endpoints are ignored; a cycle yields an error
// wrapping ErrCycleDetected.
func (d Definition) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(d.Nodes))
	for _, n := range d.Nodes {
		indegree[n.ID] = 0
	}
	adj := make(map[string][]string, len(d.Nodes))
	for _, e := range d.Edges {
		_, fromOK := indegree[e.FromNodeID]
		_, toOK := indegree[e.ToNodeID]
		if !fromOK || !toOK {
			continue
		}
		adj[e.FromNodeID] = append(adj[e.FromNodeID], e.ToNodeID)
		indegree[e.ToNodeID]++
	}

	queue := make([]string, 0, len(d.Nodes))
	queued := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if indegree[n.ID] == 0 && !queued[n.ID] {
			queued[n.ID] = true
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(d.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range adj[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(indegree) {
		var stuck []string
		for _, n := range d.Nodes {
			if indegree[n.ID] > 0 {
				stuck = append(stuck, n.ID)
			}
		}
		return nil, &GraphError{Kind: CycleDetected, NodeIDs: stuck}
	}
	return order, nil
}

// CloneConfig deep-copies a config bag made of JSON-like values. Nil stays nil.
func CloneConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneConfig(val)
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
