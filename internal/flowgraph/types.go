package flowgraph

// Edge interaction types.
const (
	// EdgeTypeButton marks a persisted connection that supports in-place
	// transformer insertion.
	EdgeTypeButton = "button"
	// EdgeTypeBlank marks an in-flight preview connection. It never supports
	// insertion and is never persisted.
	EdgeTypeBlank = "blank"
)

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the payload a renderer shows for a node.
type NodeData struct {
	Name                string         `json:"name"`
	ShortName           string         `json:"shortName,omitempty"`
	Config              map[string]any `json:"config,omitempty"`
	ConnectionRef       string         `json:"connectionRef,omitempty"`
	EntityDefinitionRef string         `json:"entityDefinitionRef,omitempty"`
}

// Node is a visual node.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Edge is a visual edge.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Insertable reports whether a transformer may be spliced into this edge.
func (e Edge) Insertable() bool {
	return e.Type == EdgeTypeButton
}

// Meta carries the definition attributes that are not part of the drawing.
type Meta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PipelineID  string `json:"pipelineId"`
}

// Graph is the renderable form of a pipeline definition.
type Graph struct {
	Meta  Meta   `json:"meta"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
