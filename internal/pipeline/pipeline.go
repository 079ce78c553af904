package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wessley-ai/querent-node/internal/actor"
	"github.com/wessley-ai/querent-node/internal/engine"
	"github.com/wessley-ai/querent-node/internal/eventstate"
	"github.com/wessley-ai/querent-node/internal/ingestpipe"
	"github.com/wessley-ai/querent-node/internal/storage"
)

// ObservableState is the pure snapshot a Pipeline actor returns from
// ObservableState() and exposes to observers.
type ObservableState struct {
	PipelineID string
	Running    bool
	Stats      Snapshot
}

// Pipeline is the SemanticPipeline actor: it owns the source-reader,
// ingestor router, engine, and storage mapper "children" as one
// internally-supervised run loop (rather than four separate actors), bound
// to a child KillSwitch so StopPipeline/Kill both terminate it cleanly.
type Pipeline struct {
	settings Settings
	source   EventSource
	router   *ingestpipe.Router
	engine   engine.Engine
	mapper   *storage.Mapper
	log      *slog.Logger

	stats      *IndexingStatistics
	stopping   bool
	runCtx     context.Context
	runCancel  context.CancelFunc
	runDone    chan struct{}

	self *actor.Handle[Msg]
}

// New constructs a Pipeline ready to Spawn. source must already be
// configured against settings.SourceConfigs by the caller (concrete
// EventSource adaptors live outside this module).
func New(settings Settings, source EventSource, eng engine.Engine, processors ...ingestpipe.Processor) *Pipeline {
	if settings.MaxRestarts <= 0 {
		settings.MaxRestarts = DefaultMaxRestarts
	}
	mapper := storage.NewMapper(settings.EventStorages, settings.IndexStorages, nil)
	return &Pipeline{
		settings: settings,
		source:   source,
		router:   ingestpipe.NewRouter(processors...),
		engine:   eng,
		mapper:   mapper,
		log:      slog.Default().With("pipeline_id", settings.PipelineID),
		stats:    &IndexingStatistics{mapperCounters: mapper.Counters()},
	}
}

// Start spawns p on rt and binds its own Handle back onto itself, so
// StopPipeline can call Kill() from inside Process instead of returning a
// Failure from the handler.
func Start(rt *actor.Runtimes, p *Pipeline, parent *actor.KillSwitch) *actor.Handle[Msg] {
	h := actor.Spawn[Msg](rt, p, parent)
	p.self = h
	return h
}

var _ actor.Actor[Msg] = (*Pipeline)(nil)

func (p *Pipeline) Name() string                     { return "pipeline/" + p.settings.PipelineID }
func (p *Pipeline) Pool() actor.Pool                  { return actor.NonBlocking }
func (p *Pipeline) QueueCapacity() actor.QueueCapacity { return actor.Bounded(64) }

func (p *Pipeline) Initialize(ctx context.Context) error {
	p.startRun(0)
	return nil
}

func (p *Pipeline) ObservableState() any {
	return ObservableState{
		PipelineID: p.settings.PipelineID,
		Running:    p.runDone != nil && !p.stopping,
		Stats:      p.stats.Snapshot(),
	}
}

func (p *Pipeline) Finalize(status actor.ExitStatus, ctx context.Context) error {
	if p.runCancel != nil {
		p.runCancel()
	}
	if p.runDone != nil {
		<-p.runDone
	}
	p.log.Info("pipeline: finalized", "status", status.String())
	return nil
}

// Process handles one pipeline control message. Reply is used for
// Healthz's bool round-trip.
func (p *Pipeline) Process(ctx context.Context, msg Msg) error {
	switch {
	case msg.Trigger != nil:
		return p.handleTrigger(*msg.Trigger)
	case msg.ControlLoop != nil:
		return nil // self-tick: ObservableState() is already fresh on every Process call
	case msg.Healthz != nil:
		actor.Reply(ctx, p.isHealthy())
		return nil
	case msg.StopPipeline != nil:
		p.stopping = true
		if p.runCancel != nil {
			p.runCancel()
		}
		if p.runDone != nil {
			<-p.runDone
		}
		if p.self != nil {
			p.self.Kill()
		}
		return nil
	}
	return nil
}

func (p *Pipeline) isHealthy() bool {
	return p.runDone != nil && !p.stopping
}

// handleTrigger restarts the run loop, applying bounded exponential
// backoff keyed by RetryCount; once RetryCount exceeds MaxRestarts the
// pipeline gives up and returns Failure so the actor runtime finalizes it.
func (p *Pipeline) handleTrigger(t TriggerMsg) error {
	if t.RetryCount > p.settings.MaxRestarts {
		return fmt.Errorf("pipeline: %w after %d restarts", errMaxRestartsExceeded, t.RetryCount)
	}
	if t.RetryCount > 0 {
		backoff := time.Duration(1<<uint(t.RetryCount-1)) * time.Second
		time.Sleep(backoff)
		p.stats.RestartCount.Add(1)
	}
	p.startRun(t.RetryCount)
	return nil
}

func (p *Pipeline) startRun(retryCount int) {
	ctx, cancel := context.WithCancel(context.Background())
	p.runCtx = ctx
	p.runCancel = cancel
	done := make(chan struct{})
	p.runDone = done

	go func() {
		defer close(done)
		if err := p.runOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Error("pipeline: run failed", "error", err, "retry_count", retryCount)
		}
	}()
}

// runOnce drives one pass of source -> router -> engine -> mapper until the
// source closes or ctx is cancelled.
func (p *Pipeline) runOnce(ctx context.Context) error {
	raw := make(chan ingestpipe.CollectedBytes, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.source.Stream(ctx, raw)
		close(raw)
	}()

	var batch []ingestpipe.CollectedBytes
	for cb := range raw {
		batch = append(batch, cb)
		if !cb.EOF {
			continue
		}
		tokensList, err := p.router.Route(ctx, cb.Extension, batch)
		batch = nil
		if err != nil {
			return err
		}
		for _, tokens := range tokensList {
			p.stats.TokensIngested.Add(uint64(len(tokens.Data)))
			events, err := p.engine.Process(ctx, tokens)
			if err != nil {
				return err
			}
			for _, ev := range events {
				switch ev.Kind {
				case eventstate.KindGraph:
					p.stats.EventsGraph.Add(1)
				case eventstate.KindVector:
					p.stats.EventsVector.Add(1)
				}
				if err := p.mapper.Dispatch(ctx, ev); err != nil {
					p.log.Error("pipeline: dispatch failed", "error", err)
				}
			}
		}
	}
	return <-errCh
}

var errMaxRestartsExceeded = errors.New("max restart attempts exceeded")
