package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/pipeline"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// fileRoot is the schema of a definition file's top level. Anything else at
// the top level is rejected by the decoder.
type fileRoot struct {
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
}

type pipelineBlock struct {
	ID          string       `hcl:"id,label"`
	Name        string       `hcl:"name,optional"`
	Description string       `hcl:"description,optional"`
	PipelineID  string       `hcl:"pipeline_id,optional"`
	Nodes       []*nodeBlock `hcl:"node,block"`
	Edges       []*edgeBlock `hcl:"edge,block"`
}

type nodeBlock struct {
	ID                  string         `hcl:"id,label"`
	Kind                string         `hcl:"kind"`
	Name                string         `hcl:"name,optional"`
	ShortName           string         `hcl:"short_name,optional"`
	ConnectionRef       string         `hcl:"connection_ref,optional"`
	EntityDefinitionRef string         `hcl:"entity_definition_ref,optional"`
	Config              hcl.Expression `hcl:"config,optional"`
}

type edgeBlock struct {
	ID   string `hcl:"id,label"`
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// ParseHCL parses every pipeline block in src. filename is used in diagnostics.
//
// Config attributes may reference environment variables through the env
// object, e.g. password = env.WAREHOUSE_PASSWORD.
func ParseHCL(ctx context.Context, filename string, src []byte) ([]pipeline.Definition, error) {
	logger := ctxlog.FromContext(ctx).With("file", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envObject()},
	}

	defs := make([]pipeline.Definition, 0, len(root.Pipelines))
	for _, pb := range root.Pipelines {
		def, diags := translatePipeline(pb, evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid pipeline %q in %s: %w", pb.ID, filename, diags)
		}
		logger.Debug("Translated HCL pipeline block.", "pipeline", def.ID, "nodes", len(def.Nodes), "edges", len(def.Edges))
		defs = append(defs, def)
	}
	return defs, nil
}

// translatePipeline converts the HCL schema into the logical model.
func translatePipeline(pb *pipelineBlock, evalCtx *hcl.EvalContext) (pipeline.Definition, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	def := pipeline.Definition{
		ID:          pb.ID,
		Name:        pb.Name,
		Description: pb.Description,
		PipelineID:  pb.PipelineID,
	}
	if def.Name == "" {
		def.Name = pb.ID
	}

	for _, nb := range pb.Nodes {
		kind, err := pipeline.ParseKind(nb.Kind)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid node kind",
				Detail:   fmt.Sprintf("Node %q: %s. Expected one of %s.", nb.ID, err, kindList()),
			})
			continue
		}

		cfg, cfgDiags := decodeConfig(nb.Config, evalCtx)
		diags = append(diags, cfgDiags...)

		def.Nodes = append(def.Nodes, pipeline.Node{
			ID:                  nb.ID,
			Kind:                kind,
			Name:                nb.Name,
			ShortName:           nb.ShortName,
			Config:              cfg,
			ConnectionRef:       nb.ConnectionRef,
			EntityDefinitionRef: nb.EntityDefinitionRef,
		})
	}

	for _, eb := range pb.Edges {
		def.Edges = append(def.Edges, pipeline.Edge{ID: eb.ID, FromNodeID: eb.From, ToNodeID: eb.To})
	}
	return def, diags
}

// decodeConfig evaluates a config expression and normalizes the resulting
// cty value into plain Go values (string, float64, bool, []any, map[string]any).
func decodeConfig(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]any, hcl.Diagnostics) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid config",
			Detail:   fmt.Sprintf("config must be an object, got %s.", ty.FriendlyName()),
			Subject:  expr.Range().Ptr(),
		}}
	}
	if !val.IsWhollyKnown() {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid config",
			Detail:   "config must be fully known when the definition is loaded.",
			Subject:  expr.Range().Ptr(),
		}}
	}

	raw, err := ctyjson.Marshal(val, ty)
	if err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid config",
			Detail:   err.Error(),
			Subject:  expr.Range().Ptr(),
		}}
	}
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid config",
			Detail:   err.Error(),
			Subject:  expr.Range().Ptr(),
		}}
	}
	return cfg, nil
}

func kindList() string {
	kinds := pipeline.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// envObject exposes the process environment to config expressions.
func envObject() cty.Value {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
