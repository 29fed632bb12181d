package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/lifecycle"
	"github.com/vk/syncgraph/internal/pipeline"
)

// ErrInvalidDefinitions is returned by Run when at least one loaded
// definition fails validation.
var ErrInvalidDefinitions = errors.New("invalid pipeline definitions")

// Run loads, edits and reports the configured definitions. When the config
// asks for serving, it then keeps the health server and the feed running
// until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	defs, err := a.loader.Load(ctx, a.config.DefinitionPath)
	if err != nil {
		return fmt.Errorf("failed to load definitions: %w", err)
	}
	if len(defs) == 0 {
		a.logger.Warn("No pipeline definitions found.", "path", a.config.DefinitionPath)
	}
	a.logger.Info("Definitions loaded.", "count", len(defs))

	if a.config.InsertEdge != "" {
		defs, err = a.insertOnEdge(ctx, defs)
		if err != nil {
			return err
		}
	}

	invalid, err := a.report(defs)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if !a.config.Serving() {
		if invalid > 0 {
			return fmt.Errorf("%w: %d of %d", ErrInvalidDefinitions, invalid, len(defs))
		}
		a.logger.Debug("App.Run method finished.")
		return nil
	}
	if invalid > 0 {
		a.logger.Warn("Serving with invalid definitions.", "invalid", invalid)
	}
	return a.serve(ctx)
}

// serve runs the long-lived surfaces until ctx is done.
func (a *App) serve(ctx context.Context) error {
	if err := a.healthCheckServer(); err != nil {
		return err
	}
	if a.config.FeedURL != "" {
		if err := a.attachFeed(ctx); err != nil {
			return err
		}
	}

	a.logger.Info("🚀 Tracking sync progress. Waiting for shutdown signal...")
	<-ctx.Done()
	a.logger.Info("🏁 Shutdown signal received.")
	return nil
}

// insertOnEdge splices the configured transformer into every definition
// holding the configured edge and announces each edited definition.
func (a *App) insertOnEdge(ctx context.Context, defs []pipeline.Definition) ([]pipeline.Definition, error) {
	logger := ctxlog.FromContext(ctx).With("edge_id", a.config.InsertEdge)

	out := make([]pipeline.Definition, len(defs))
	edited := 0
	for i, def := range defs {
		out[i] = def
		if _, ok := def.Edge(a.config.InsertEdge); !ok {
			continue
		}

		node := pipeline.Node{
			ID:        uuid.NewString(),
			Kind:      pipeline.KindTransformer,
			Name:      a.config.InsertName,
			ShortName: a.config.InsertShortName,
		}
		updated, err := a.inserter.InsertNodeOnEdge(ctx, def, a.config.InsertEdge, node)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %q into pipeline %s: %w", a.config.InsertName, def.ID, err)
		}
		out[i] = updated
		edited++
		logger.Info("Inserted transformer.", "pipeline", def.ID, "node_id", node.ID)

		if _, err := a.bus.Publish(ctx, lifecycle.TopicPipelineUpdated, map[string]any{"pipelineId": def.ID}); err != nil {
			return nil, err
		}
	}

	if edited == 0 {
		return nil, fmt.Errorf("edge %q: %w", a.config.InsertEdge, pipeline.ErrEdgeNotFound)
	}
	return out, nil
}
