package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/lifecycle"
	"github.com/vk/syncgraph/internal/progress"
)

// EventProgress is the event carrying job progress for a pipeline connection.
const EventProgress = "progress"

// ErrInvalidMessage occurs when an event payload cannot be interpreted.
var ErrInvalidMessage = errors.New("invalid feed message")

// Source delivers named events. Payload arguments are decoded JSON values.
type Source interface {
	On(event string, fn func(args ...any))
}

// ProgressMessage is the payload of a progress event.
type ProgressMessage struct {
	PipelineConnectionID string          `mapstructure:"pipelineConnectionId"`
	JobID                string          `mapstructure:"jobId"`
	Update               progress.Update `mapstructure:"update"`
}

// Feed routes incoming events into a progress store and a lifecycle bus.
type Feed struct {
	store *progress.Store
	bus   *lifecycle.Bus
}

// New creates a feed. Either collaborator may be nil, in which case the
// matching events are ignored.
func New(store *progress.Store, bus *lifecycle.Bus) *Feed {
	return &Feed{store: store, bus: bus}
}

// Attach registers the feed's handlers on src. ctx is handed to every
// handler invocation, so it should live as long as the source does.
func (f *Feed) Attach(ctx context.Context, src Source) {
	logger := ctxlog.FromContext(ctx)

	if f.store != nil {
		src.On(EventProgress, func(args ...any) {
			if err := f.HandleProgress(ctx, firstArg(args)); err != nil {
				logger.Warn("Dropped progress event.", "error", err)
			}
		})
	}
	if f.bus != nil {
		for _, topic := range lifecycle.Topics() {
			src.On(string(topic), func(args ...any) {
				if err := f.HandleLifecycle(ctx, topic, firstArg(args)); err != nil {
					logger.Warn("Dropped lifecycle event.", "topic", topic, "error", err)
				}
			})
		}
	}
	logger.Debug("Feed handlers attached.", "progress", f.store != nil, "lifecycle", f.bus != nil)
}

// HandleProgress decodes a progress payload and records it.
func (f *Feed) HandleProgress(ctx context.Context, payload any) error {
	msg, err := DecodeProgress(payload)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Progress event received.",
		"pipeline_connection_id", msg.PipelineConnectionID, "job_id", msg.JobID)
	f.store.SaveProgress(ctx, msg.PipelineConnectionID, msg.JobID, msg.Update)
	return nil
}

// HandleLifecycle re-publishes a lifecycle event on the bus. Handler
// failures are logged by the bus and counted here; they are not an error of
// the feed.
func (f *Feed) HandleLifecycle(ctx context.Context, topic lifecycle.Topic, payload any) error {
	failed, err := f.bus.Publish(ctx, topic, payload)
	if err != nil {
		return err
	}
	if failed > 0 {
		ctxlog.FromContext(ctx).Warn("Lifecycle subscribers failed.", "topic", topic, "failed", failed)
	}
	return nil
}

// DecodeProgress interprets a progress payload. It accepts an already decoded
// object or its raw JSON text.
func DecodeProgress(payload any) (ProgressMessage, error) {
	var msg ProgressMessage

	switch raw := payload.(type) {
	case nil:
		return msg, fmt.Errorf("%w: empty progress payload", ErrInvalidMessage)
	case string:
		payload = nil
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
	case []byte:
		payload = nil
		if err := json.Unmarshal(raw, &payload); err != nil {
			return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &msg,
	})
	if err != nil {
		return msg, err
	}
	if err := dec.Decode(payload); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.PipelineConnectionID == "" {
		return msg, fmt.Errorf("%w: missing pipelineConnectionId", ErrInvalidMessage)
	}
	return msg, nil
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
