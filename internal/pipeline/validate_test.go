package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDefinition(t *testing.T) {
	def := chain("src", "map", "dst")

	res := Validate(def)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
}

func TestValidate_ReportsEachViolation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *Definition)
		wantKind ErrorKind
		wantErr  error
	}{
		{
			name: "dangling reference",
			mutate: func(d *Definition) {
				d.Edges = append(d.Edges, Edge{ID: "x", FromNodeID: "src", ToNodeID: "ghost"})
			},
			wantKind: DanglingReference,
			wantErr:  ErrDanglingReference,
		},
		{
			name: "duplicate edge",
			mutate: func(d *Definition) {
				d.Edges = append(d.Edges, Edge{ID: "again", FromNodeID: "src", ToNodeID: "map"})
			},
			wantKind: DuplicateEdge,
			wantErr:  ErrDuplicateEdge,
		},
		{
			name: "self loop",
			mutate: func(d *Definition) {
				d.Edges = append(d.Edges, Edge{ID: "loop", FromNodeID: "map", ToNodeID: "map"})
			},
			wantKind: SelfLoop,
			wantErr:  ErrSelfLoop,
		},
		{
			name: "cycle",
			mutate: func(d *Definition) {
				d.Edges = append(d.Edges, Edge{ID: "back", FromNodeID: "dst", ToNodeID: "src"})
			},
			wantKind: CycleDetected,
			wantErr:  ErrCycleDetected,
		},
		{
			name: "duplicate node id",
			mutate: func(d *Definition) {
				d.Nodes = append(d.Nodes, Node{ID: "map", Kind: KindTransformer})
			},
			wantKind: DuplicateID,
			wantErr:  ErrDuplicateID,
		},
		{
			name: "missing destination",
			mutate: func(d *Definition) {
				d.Nodes[2].Kind = KindEntity
			},
			wantKind: MissingSourceOrDestination,
			wantErr:  ErrMissingSourceOrDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := chain("src", "map", "dst")
			tt.mutate(&def)

			res := Validate(def)
			require.False(t, res.OK())
			assert.True(t, res.Has(tt.wantKind), "violations: %v", res.Violations)
			assert.True(t, errors.Is(res.Err(), tt.wantErr))
		})
	}
}

func TestValidate_CycleNamesClosingEdge(t *testing.T) {
	def := chain("a", "b", "c")
	def.Edges = append(def.Edges, Edge{ID: "c-a", FromNodeID: "c", ToNodeID: "a"})

	res := ValidateStructure(def)
	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, CycleDetected, v.Kind)
	assert.Equal(t, []string{"c", "a"}, v.NodeIDs)
	assert.Equal(t, []string{"c-a"}, v.EdgeIDs)
}

func TestValidate_DiamondIsNotACycle(t *testing.T) {
	def := Definition{
		Nodes: []Node{
			{ID: "s", Kind: KindSource},
			{ID: "l", Kind: KindTransformer},
			{ID: "r", Kind: KindTransformer},
			{ID: "d", Kind: KindDestination},
		},
		Edges: []Edge{
			{ID: "1", FromNodeID: "s", ToNodeID: "l"},
			{ID: "2", FromNodeID: "s", ToNodeID: "r"},
			{ID: "3", FromNodeID: "l", ToNodeID: "d"},
			{ID: "4", FromNodeID: "r", ToNodeID: "d"},
		},
	}
	assert.True(t, Validate(def).OK())
}

func TestValidate_CompletenessOnlyInFullValidation(t *testing.T) {
	def := Definition{Nodes: []Node{{ID: "t", Kind: KindTransformer}}}

	assert.True(t, ValidateStructure(def).OK())
	assert.True(t, Validate(def).Has(MissingSourceOrDestination))
}

func TestValidate_LongChainIsLinear(t *testing.T) {
	ids := make([]string, 5000)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
	}
	def := chain(ids...)
	assert.True(t, Validate(def).OK())
}

func TestValidate_CycleAtTheEndOfADeepChain(t *testing.T) {
	ids := make([]string, 200000)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
	}
	def := chain(ids...)
	last := ids[len(ids)-1]
	def.Edges = append(def.Edges, Edge{ID: "back", FromNodeID: last, ToNodeID: ids[1]})

	res := ValidateStructure(def)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, CycleDetected, res.Violations[0].Kind)
	assert.Equal(t, []string{last, ids[1]}, res.Violations[0].NodeIDs)
	assert.Equal(t, []string{"back"}, res.Violations[0].EdgeIDs)
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("follows data flow", func(t *testing.T) {
		def := chain("a", "b", "c")
		// Shuffle node order; edges still define the flow.
		def.Nodes[0], def.Nodes[2] = def.Nodes[2], def.Nodes[0]

		order, err := def.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, order)
	})

	t.Run("cycle is reported", func(t *testing.T) {
		def := chain("a", "b")
		def.Edges = append(def.Edges, Edge{ID: "back", FromNodeID: "b", ToNodeID: "a"})

		_, err := def.TopologicalOrder()
		assert.ErrorIs(t, err, ErrCycleDetected)
	})
}

func TestParseKind(t *testing.T) {
	for _, in := range []string{"source", "SOURCE", " Source "} {
		k, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, KindSource, k)
	}

	_, err := ParseKind("sink")
	assert.ErrorContains(t, err, "unknown node kind")
}
