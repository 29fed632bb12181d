package pipeline

// AddNode appends a node. It fails with ErrDuplicateID if the id is taken.
func AddNode(def Definition, n Node) (Definition, error) {
	if _, exists := def.Node(n.ID); exists {
		return def, &GraphError{Kind: DuplicateID, NodeIDs: []string{n.ID}}
	}
	next := def.Clone()
	next.Nodes = append(next.Nodes, n.Clone())
	return next, nil
}

// RemoveNode removes a node and every edge referencing it, so no dangling
// edge is ever left behind. Removing an unknown node is a no-op.
func RemoveNode(def Definition, nodeID string) Definition {
	next := def.Clone()
	if _, exists := def.Node(nodeID); !exists {
		return next
	}

	nodes := make([]Node, 0, len(next.Nodes))
	for _, n := range next.Nodes {
		if n.ID != nodeID {
			nodes = append(nodes, n)
		}
	}
	next.Nodes = nodes

	edges := make([]Edge, 0, len(next.Edges))
	for _, e := range next.Edges {
		if e.FromNodeID != nodeID && e.ToNodeID != nodeID {
			edges = append(edges, e)
		}
	}
	next.Edges = edges
	return next
}

// AddEdge appends an edge after checking it against every structural
// invariant, including whether it would close a cycle.
func AddEdge(def Definition, e Edge) (Definition, error) {
	var missing []string
	if _, ok := def.Node(e.FromNodeID); !ok {
		missing = append(missing, e.FromNodeID)
	}
	if _, ok := def.Node(e.ToNodeID); !ok && e.ToNodeID != e.FromNodeID {
		missing = append(missing, e.ToNodeID)
	}
	if len(missing) > 0 {
		return def, &GraphError{Kind: DanglingReference, NodeIDs: missing, EdgeIDs: []string{e.ID}}
	}

	if e.FromNodeID == e.ToNodeID {
		return def, &GraphError{Kind: SelfLoop, NodeIDs: []string{e.FromNodeID}, EdgeIDs: []string{e.ID}}
	}

	for _, existing := range def.Edges {
		if existing.ID == e.ID {
			return def, &GraphError{Kind: DuplicateID, EdgeIDs: []string{e.ID}}
		}
		if existing.FromNodeID == e.FromNodeID && existing.ToNodeID == e.ToNodeID {
			return def, &GraphError{
				Kind:    DuplicateEdge,
				NodeIDs: []string{e.FromNodeID, e.ToNodeID},
				EdgeIDs: []string{existing.ID, e.ID},
			}
		}
	}

	// from -> to closes a cycle exactly when from is already reachable from to.
	if reachable(def, e.ToNodeID, e.FromNodeID) {
		return def, &GraphError{Kind: CycleDetected, NodeIDs: []string{e.FromNodeID, e.ToNodeID}, EdgeIDs: []string{e.ID}}
	}

	next := def.Clone()
	next.Edges = append(next.Edges, e)
	return next, nil
}

// RemoveEdge removes an edge by id. Removing an unknown edge is a no-op.
func RemoveEdge(def Definition, edgeID string) Definition {
	next := def.Clone()
	if _, exists := def.Edge(edgeID); !exists {
		return next
	}
	edges := make([]Edge, 0, len(next.Edges))
	for _, e := range next.Edges {
		if e.ID != edgeID {
			edges = append(edges, e)
		}
	}
	next.Edges = edges
	return next
}
