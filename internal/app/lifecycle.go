package app

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/lifecycle"
)

// pipelineRef is the part of a lifecycle payload the app cares about.
type pipelineRef struct {
	PipelineID           string `mapstructure:"pipelineId"`
	PipelineConnectionID string `mapstructure:"pipelineConnectionId"`
}

func decodePipelineRef(payload any) (pipelineRef, error) {
	var ref pipelineRef
	switch v := payload.(type) {
	case nil:
		return ref, fmt.Errorf("empty lifecycle payload")
	case string:
		ref.PipelineID = v
		return ref, nil
	}
	if err := mapstructure.WeakDecode(payload, &ref); err != nil {
		return ref, fmt.Errorf("failed to decode lifecycle payload: %w", err)
	}
	return ref, nil
}

// subscribeLifecycle registers the app's own reactions to lifecycle events.
func (a *App) subscribeLifecycle() error {
	for _, topic := range []lifecycle.Topic{lifecycle.TopicPipelineCreated, lifecycle.TopicPipelineUpdated} {
		if _, err := a.bus.Subscribe(topic, a.logPipelineChange); err != nil {
			return err
		}
	}
	_, err := a.bus.Subscribe(lifecycle.TopicPipelineDeleted, a.forgetDeletedPipeline)
	return err
}

func (a *App) logPipelineChange(ctx context.Context, ev lifecycle.Event) error {
	ref, err := decodePipelineRef(ev.Payload)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Pipeline changed.", "topic", ev.Topic, "pipeline_id", ref.PipelineID)
	return nil
}

// forgetDeletedPipeline drops progress tracked for a deleted pipeline's
// connection. A payload naming only the pipeline uses that id as the
// connection id.
func (a *App) forgetDeletedPipeline(ctx context.Context, ev lifecycle.Event) error {
	ref, err := decodePipelineRef(ev.Payload)
	if err != nil {
		return err
	}
	id := ref.PipelineConnectionID
	if id == "" {
		id = ref.PipelineID
	}
	if id == "" {
		return fmt.Errorf("lifecycle payload names no pipeline")
	}
	a.progress.RemoveProgress(ctx, id)
	ctxlog.FromContext(ctx).Info("Forgot progress of deleted pipeline.", "id", id)
	return nil
}
