package pipeline

import "errors"

// ValidationResult is the outcome of Validate. An empty result means success.
type ValidationResult struct {
	Violations []*GraphError
}

// OK reports whether no violation was found.
func (r ValidationResult) OK() bool {
	return len(r.Violations) == 0
}

// Has reports whether at least one violation of the given kind was found.
func (r ValidationResult) Has(kind ErrorKind) bool {
	for _, v := range r.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// Err joins all violations into a single error, or returns nil.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// Validate checks every invariant of a complete definition: the structural
// ones plus the presence of at least one source and one destination.
func Validate(def Definition) ValidationResult {
	res := ValidateStructure(def)

	var hasSource, hasDestination bool
	for _, n := range def.Nodes {
		switch n.Kind {
		case KindSource:
			hasSource = true
		case KindDestination:
			hasDestination = true
		}
	}
	if !hasSource || !hasDestination {
		res.Violations = append(res.Violations, &GraphError{Kind: MissingSourceOrDestination})
	}
	return res
}

// ValidateStructure checks the invariants that must hold during incremental
// editing: unique ids, no dangling references, no duplicate or self-loop
// edges, and no cycles.
func ValidateStructure(def Definition) ValidationResult {
	var res ValidationResult
	report := func(kind ErrorKind, nodeIDs, edgeIDs []string) {
		res.Violations = append(res.Violations, &GraphError{Kind: kind, NodeIDs: nodeIDs, EdgeIDs: edgeIDs})
	}

	nodes := make(map[string]struct{}, len(def.Nodes))
	for _, n := range def.Nodes {
		if _, dup := nodes[n.ID]; dup {
			report(DuplicateID, []string{n.ID}, nil)
			continue
		}
		nodes[n.ID] = struct{}{}
	}

	type pair struct{ from, to string }
	edgeIDs := make(map[string]struct{}, len(def.Edges))
	pairs := make(map[pair]string, len(def.Edges))
	adj := make(map[string][]Edge, len(def.Nodes))

	for _, e := range def.Edges {
		if _, dup := edgeIDs[e.ID]; dup {
			report(DuplicateID, nil, []string{e.ID})
		}
		edgeIDs[e.ID] = struct{}{}

		var missing []string
		if _, ok := nodes[e.FromNodeID]; !ok {
			missing = append(missing, e.FromNodeID)
		}
		if _, ok := nodes[e.ToNodeID]; !ok && e.ToNodeID != e.FromNodeID {
			missing = append(missing, e.ToNodeID)
		}
		if len(missing) > 0 {
			report(DanglingReference, missing, []string{e.ID})
			continue
		}
		if e.FromNodeID == e.ToNodeID {
			report(SelfLoop, []string{e.FromNodeID}, []string{e.ID})
			continue
		}
		p := pair{e.FromNodeID, e.ToNodeID}
		if first, dup := pairs[p]; dup {
			report(DuplicateEdge, []string{e.FromNodeID, e.ToNodeID}, []string{first, e.ID})
			continue
		}
		pairs[p] = e.ID
		adj[e.FromNodeID] = append(adj[e.FromNodeID], e)
	}

	for _, back := range findBackEdges(def.Nodes, adj) {
		report(CycleDetected, []string{back.FromNodeID, back.ToNodeID}, []string{back.ID})
	}
	return res
}

// findBackEdges runs a depth-first traversal over the adjacency list and
// returns every edge that points at a node still on the current path. Each
// such edge closes a cycle. The traversal keeps its own stack, so graph depth
// is not bounded by call depth. Runs in O(nodes + edges).
func findBackEdges(nodes []Node, adj map[string][]Edge) []Edge {
	const (
		unvisited = iota
		onPath
		done
	)
	type frame struct {
		id   string
		next int // index of the next outgoing edge to follow
	}

	state := make(map[string]int, len(nodes))
	var back []Edge

	for _, n := range nodes {
		if state[n.ID] != unvisited {
			continue
		}
		state[n.ID] = onPath
		stack := []frame{{id: n.ID}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := adj[top.id]
			if top.next == len(edges) {
				state[top.id] = done
				stack = stack[:len(stack)-1]
				continue
			}
			e := edges[top.next]
			top.next++

			switch state[e.ToNodeID] {
			case onPath:
				back = append(back, e)
			case unvisited:
				state[e.ToNodeID] = onPath
				stack = append(stack, frame{id: e.ToNodeID})
			}
		}
	}
	return back
}

// reachable reports whether to can be reached from from by following edges.
func reachable(def Definition, from, to string) bool {
	adj := make(map[string][]string, len(def.Nodes))
	for _, e := range def.Edges {
		adj[e.FromNodeID] = append(adj[e.FromNodeID], e.ToNodeID)
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		for _, next := range adj[id] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
