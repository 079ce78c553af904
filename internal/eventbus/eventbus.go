// Package eventbus fans already-committed node state out over NATS using
// the teacher's natsutil publish/subscribe helpers. It is strictly
// additive: nothing here carries a request that must succeed for the
// pipeline or cluster to make progress, so a dropped NATS connection never
// affects the at-least-once storage invariant those subsystems provide.
package eventbus

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/wessley-ai/querent-node/internal/model"
	"github.com/wessley-ai/querent-node/internal/pipeline"
	"github.com/wessley-ai/querent-node/pkg/natsutil"
)

const (
	// SubjectClusterChange carries model.ClusterChange events.
	SubjectClusterChange = "querent.cluster.change"
	// SubjectIndexingStats carries pipeline.Snapshot events.
	SubjectIndexingStats = "querent.pipeline.stats"
)

// Bus publishes best-effort notifications to NATS. A nil *nats.Conn makes
// every Publish call a no-op, so a node can run with eventbus disabled.
type Bus struct {
	nc  *nats.Conn
	log *slog.Logger
}

// New wraps nc. nc may be nil.
func New(nc *nats.Conn, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{nc: nc, log: log}
}

// PublishClusterChange best-effort publishes a membership change.
func (b *Bus) PublishClusterChange(ctx context.Context, change model.ClusterChange) {
	b.publish(ctx, SubjectClusterChange, change)
}

// PublishIndexingStats best-effort publishes a pipeline progress snapshot.
func (b *Bus) PublishIndexingStats(ctx context.Context, pipelineID string, snap pipeline.Snapshot) {
	b.publish(ctx, SubjectIndexingStats, statsEvent{PipelineID: pipelineID, Snapshot: snap})
}

type statsEvent struct {
	PipelineID string
	Snapshot   pipeline.Snapshot
}

func (b *Bus) publish(ctx context.Context, subject string, v any) {
	if b.nc == nil {
		return
	}
	if err := natsutil.Publish(ctx, b.nc, subject, v); err != nil {
		b.log.Warn("eventbus: publish failed", "subject", subject, "error", err)
	}
}

// WatchClusterChanges drains src and publishes every change until ctx is
// cancelled or src closes.
func (b *Bus) WatchClusterChanges(ctx context.Context, src <-chan model.ClusterChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-src:
			if !ok {
				return
			}
			b.PublishClusterChange(ctx, change)
		}
	}
}
