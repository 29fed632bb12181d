package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vk/syncgraph/internal/flowgraph"
	"github.com/vk/syncgraph/internal/pipeline"
)

// report writes every definition to the app's output and returns how many
// of them failed validation.
func (a *App) report(defs []pipeline.Definition) (int, error) {
	invalid := 0
	for _, def := range defs {
		if !pipeline.Validate(def).OK() {
			invalid++
		}
	}

	if a.config.Visual {
		graphs := make([]flowgraph.Graph, len(defs))
		for i, def := range defs {
			graphs[i] = flowgraph.ToVisual(def)
		}
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return invalid, enc.Encode(graphs)
	}

	for _, def := range defs {
		if err := writeSummary(a.outW, def); err != nil {
			return invalid, err
		}
	}
	return invalid, nil
}

// writeSummary prints one definition in a human readable form.
func writeSummary(w io.Writer, def pipeline.Definition) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pipeline %s (%s)", def.ID, def.Name)
	if def.PipelineID != "" {
		fmt.Fprintf(&sb, " pipelineId=%s", def.PipelineID)
	}
	fmt.Fprintf(&sb, "\n  nodes: %d  edges: %d\n", len(def.Nodes), len(def.Edges))

	if order, err := def.TopologicalOrder(); err == nil && len(order) > 0 {
		labels := make([]string, len(order))
		for i, id := range order {
			n, _ := def.Node(id)
			labels[i] = fmt.Sprintf("%s[%s]", id, n.Kind)
		}
		fmt.Fprintf(&sb, "  flow: %s\n", strings.Join(labels, " -> "))
	}

	result := pipeline.Validate(def)
	if result.OK() {
		sb.WriteString("  status: valid\n")
	} else {
		sb.WriteString("  status: invalid\n")
		for _, v := range result.Violations {
			fmt.Fprintf(&sb, "  violation: %s\n", v)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
