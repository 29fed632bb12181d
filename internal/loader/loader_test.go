package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/syncgraph/internal/pipeline"
)

const ordersHCL = `
pipeline "orders" {
  name        = "Orders"
  description = "orders to the warehouse"
  pipeline_id = "p-1"

  node "src" {
    kind           = "source"
    name           = "Postgres"
    short_name     = "postgres"
    connection_ref = "conn-pg"
    config = {
      table      = "orders"
      batch_size = 500
      columns    = ["id", "total"]
      ssl        = true
      password   = env.SYNCGRAPH_TEST_PASSWORD
    }
  }

  node "map" {
    kind = "TRANSFORMER"
    name = "Mapper"
  }

  node "dst" {
    kind                  = "destination"
    name                  = "Warehouse"
    entity_definition_ref = "order-v1"
  }

  edge "e1" {
    from = "src"
    to   = "map"
  }

  edge "e2" {
    from = "map"
    to   = "dst"
  }
}
`

const ordersJSON = `{
  "id": "orders-json",
  "name": "Orders JSON",
  "pipelineId": "p-2",
  "nodes": [
    {"id": "src", "kind": "source", "name": "API", "config": {"url": "https://example.test"}},
    {"id": "dst", "kind": "destination", "name": "Lake"}
  ],
  "edges": [{"id": "e1", "fromNodeId": "src", "toNodeId": "dst"}]
}`

func TestParseHCL(t *testing.T) {
	t.Setenv("SYNCGRAPH_TEST_PASSWORD", "s3cret")

	defs, err := ParseHCL(context.Background(), "orders.hcl", []byte(ordersHCL))
	require.NoError(t, err)
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "orders", def.ID)
	assert.Equal(t, "Orders", def.Name)
	assert.Equal(t, "p-1", def.PipelineID)
	require.Len(t, def.Nodes, 3)
	require.Len(t, def.Edges, 2)

	src := def.Nodes[0]
	assert.Equal(t, pipeline.KindSource, src.Kind)
	assert.Equal(t, "postgres", src.ShortName)
	assert.Equal(t, "conn-pg", src.ConnectionRef)
	assert.Equal(t, map[string]any{
		"table":      "orders",
		"batch_size": 500.0,
		"columns":    []any{"id", "total"},
		"ssl":        true,
		"password":   "s3cret",
	}, src.Config)

	assert.Equal(t, pipeline.KindTransformer, def.Nodes[1].Kind)
	assert.Nil(t, def.Nodes[1].Config)
	assert.Equal(t, "order-v1", def.Nodes[2].EntityDefinitionRef)
	assert.Equal(t, pipeline.Edge{ID: "e2", FromNodeID: "map", ToNodeID: "dst"}, def.Edges[1])

	assert.True(t, pipeline.Validate(def).OK())
}

func TestParseHCL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"syntax error", `pipeline "x" {`, "failed to parse HCL file"},
		{"misspelled top-level block", `
pipelin "x" {
  name = "typo"
}`, "Unsupported block type"},
		{"unknown top-level attribute", `
version = 2
pipeline "x" {}`, "Unsupported argument"},
		{"unknown kind", `
pipeline "x" {
  node "a" {
    kind = "sink"
  }
}`, "Invalid node kind"},
		{"config not an object", `
pipeline "x" {
  node "a" {
    kind   = "source"
    config = "nope"
  }
}`, "config must be an object"},
		{"missing edge endpoint attribute", `
pipeline "x" {
  edge "e" {
    from = "a"
  }
}`, "failed to decode HCL file"},
		{"unset env variable", `
pipeline "x" {
  node "a" {
    kind   = "source"
    config = { token = env.SYNCGRAPH_TEST_UNSET_VARIABLE }
  }
}`, "Unsupported attribute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHCL(context.Background(), "bad.hcl", []byte(tt.src))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseJSON(t *testing.T) {
	def, err := ParseJSON([]byte(ordersJSON))
	require.NoError(t, err)

	assert.Equal(t, "orders-json", def.ID)
	assert.Equal(t, pipeline.KindSource, def.Nodes[0].Kind)
	assert.Equal(t, "https://example.test", def.Nodes[0].Config["url"])
	assert.Equal(t, pipeline.Edge{ID: "e1", FromNodeID: "src", ToNodeID: "dst"}, def.Edges[0])

	_, err = ParseJSON([]byte(`{"id": "x", "nodes": [{"id": "a", "kind": "sink"}]}`))
	assert.ErrorContains(t, err, "unknown node kind")

	_, err = ParseJSON([]byte(`{"id": "x", "colour": "blue"}`))
	assert.Error(t, err)
}

func TestLoad_Directory(t *testing.T) {
	t.Setenv("SYNCGRAPH_TEST_PASSWORD", "s3cret")
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(ordersHCL), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.json"), []byte(ordersJSON), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	defs, err := New().Load(context.Background(), dir, filepath.Join(dir, "a.hcl"), filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Len(t, defs, 2, "a.hcl is only loaded once")
	assert.Equal(t, "orders", defs[0].ID)
	assert.Equal(t, "orders-json", defs[1].ID)
}

func TestLoad_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))

	_, err := New().Load(context.Background(), dir)
	assert.ErrorContains(t, err, bad)
}
