package loader

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vk/syncgraph/internal/pipeline"
)

// ParseJSON decodes one definition in the remote service's JSON shape.
// Unknown fields are rejected so typos do not silently drop data.
func ParseJSON(src []byte) (pipeline.Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.DisallowUnknownFields()

	var def pipeline.Definition
	if err := dec.Decode(&def); err != nil {
		return pipeline.Definition{}, fmt.Errorf("decode definition: %w", err)
	}
	return def, nil
}
