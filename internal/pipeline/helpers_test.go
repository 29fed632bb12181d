package pipeline

import "fmt"

// chain builds a linear definition ids[0] -> ids[1] -> ... where the first
// node is a source, the last a destination and the rest transformers.
func chain(ids ...string) Definition {
	def := Definition{ID: "def-1", Name: "chain", PipelineID: "p-1"}
	for i, id := range ids {
		kind := KindTransformer
		switch i {
		case 0:
			kind = KindSource
		case len(ids) - 1:
			kind = KindDestination
		}
		def.Nodes = append(def.Nodes, Node{ID: id, Kind: kind, Name: "node " + id})
	}
	for i := 1; i < len(ids); i++ {
		def.Edges = append(def.Edges, Edge{
			ID:         fmt.Sprintf("%s-%s", ids[i-1], ids[i]),
			FromNodeID: ids[i-1],
			ToNodeID:   ids[i],
		})
	}
	return def
}

// sequentialIDs returns a generator yielding e1, e2, ...
func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("e%d", n)
	}
}
