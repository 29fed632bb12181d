package flowgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/syncgraph/internal/pipeline"
)

// ErrPreviewEdge occurs when a preview edge reaches ToLogical.
var ErrPreviewEdge = errors.New("preview edge cannot be persisted")

// ToVisual converts a logical definition into its renderable form.
func ToVisual(def pipeline.Definition) Graph {
	g := Graph{
		Meta: Meta{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			PipelineID:  def.PipelineID,
		},
	}

	if def.Nodes != nil {
		g.Nodes = make([]Node, len(def.Nodes))
		for i, n := range def.Nodes {
			g.Nodes[i] = Node{
				ID:   n.ID,
				Type: strings.ToLower(string(n.Kind)),
				Data: NodeData{
					Name:                n.Name,
					ShortName:           n.ShortName,
					Config:              pipeline.CloneConfig(n.Config),
					ConnectionRef:       n.ConnectionRef,
					EntityDefinitionRef: n.EntityDefinitionRef,
				},
			}
		}
	}

	if def.Edges != nil {
		g.Edges = make([]Edge, len(def.Edges))
		for i, e := range def.Edges {
			g.Edges[i] = Edge{ID: e.ID, Source: e.FromNodeID, Target: e.ToNodeID, Type: EdgeTypeButton}
		}
	}
	return g
}

// ToLogical converts a renderable graph back into a logical definition.
// Unknown node type tags and preview edges are rejected.
func ToLogical(g Graph) (pipeline.Definition, error) {
	def := pipeline.Definition{
		ID:          g.Meta.ID,
		Name:        g.Meta.Name,
		Description: g.Meta.Description,
		PipelineID:  g.Meta.PipelineID,
	}

	if g.Nodes != nil {
		def.Nodes = make([]pipeline.Node, len(g.Nodes))
		for i, n := range g.Nodes {
			kind, err := pipeline.ParseKind(n.Type)
			if err != nil {
				return pipeline.Definition{}, fmt.Errorf("node %q: %w", n.ID, err)
			}
			def.Nodes[i] = pipeline.Node{
				ID:                  n.ID,
				Kind:                kind,
				Name:                n.Data.Name,
				ShortName:           n.Data.ShortName,
				Config:              pipeline.CloneConfig(n.Data.Config),
				ConnectionRef:       n.Data.ConnectionRef,
				EntityDefinitionRef: n.Data.EntityDefinitionRef,
			}
		}
	}

	if g.Edges != nil {
		def.Edges = make([]pipeline.Edge, len(g.Edges))
		for i, e := range g.Edges {
			if e.Type == EdgeTypeBlank {
				return pipeline.Definition{}, fmt.Errorf("edge %q: %w", e.ID, ErrPreviewEdge)
			}
			def.Edges[i] = pipeline.Edge{ID: e.ID, FromNodeID: e.Source, ToNodeID: e.Target}
		}
	}
	return def, nil
}

// PreviewEdge builds the non-interactive edge drawn while a user drags a new
// connection from source to target.
func PreviewEdge(source, target string) Edge {
	return Edge{
		ID:     fmt.Sprintf("preview-%s-%s", source, target),
		Source: source,
		Target: target,
		Type:   EdgeTypeBlank,
	}
}
