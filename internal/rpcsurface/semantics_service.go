package rpcsurface

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"

	"github.com/wessley-ai/querent-node/internal/actor"
	"github.com/wessley-ai/querent-node/internal/errtax"
	"github.com/wessley-ai/querent-node/internal/pipeline"
)

// SemanticsServiceName names the hand-registered pipeline control service.
const SemanticsServiceName = "querent.semantics.v1.SemanticsService"

// PipelineRegistry maps a running pipeline's id to its actor handle, so the
// RPC surface can address StartPipeline/StopPipeline/PipelineStats calls
// to a specific in-process pipeline actor without a global lookup table
// living inside the pipeline package itself.
type PipelineRegistry struct {
	mu      sync.RWMutex
	handles map[string]*actor.Handle[pipeline.Msg]
}

// NewPipelineRegistry returns an empty registry.
func NewPipelineRegistry() *PipelineRegistry {
	return &PipelineRegistry{handles: make(map[string]*actor.Handle[pipeline.Msg])}
}

// Register makes h reachable under id.
func (r *PipelineRegistry) Register(id string, h *actor.Handle[pipeline.Msg]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[id] = h
}

// Unregister removes id, typically once its actor has fully exited.
func (r *PipelineRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

func (r *PipelineRegistry) get(id string) (*actor.Handle[pipeline.Msg], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

type semanticsServer struct {
	registry *PipelineRegistry
}

var errPipelineNotFound = fmt.Errorf("rpcsurface: pipeline not registered")

func (s *semanticsServer) startPipeline(ctx context.Context, req *StartPipelineRequest) (*StartPipelineResponse, error) {
	h, ok := s.registry.get(req.PipelineID)
	if !ok {
		return nil, errtax.New(errtax.NotFound, errPipelineNotFound)
	}
	if err := h.Send(ctx, pipeline.Msg{Trigger: &pipeline.TriggerMsg{}}); err != nil {
		return nil, errtax.New(errtax.Internal, err)
	}
	return &StartPipelineResponse{Accepted: true}, nil
}

func (s *semanticsServer) stopPipeline(ctx context.Context, req *StopPipelineRequest) (*StopPipelineResponse, error) {
	h, ok := s.registry.get(req.PipelineID)
	if !ok {
		return nil, errtax.New(errtax.NotFound, errPipelineNotFound)
	}
	if err := h.Send(ctx, pipeline.Msg{StopPipeline: &pipeline.StopPipelineMsg{PipelineID: req.PipelineID}}); err != nil {
		return nil, errtax.New(errtax.Internal, err)
	}
	return &StopPipelineResponse{Accepted: true}, nil
}

func (s *semanticsServer) pipelineStats(ctx context.Context, req *PipelineStatsRequest) (*PipelineStatsResponse, error) {
	h, ok := s.registry.get(req.PipelineID)
	if !ok {
		return nil, errtax.New(errtax.NotFound, errPipelineNotFound)
	}
	obs := actor.ObserveTimeout(h, actor.HEARTBEAT)
	state, _ := obs.State.(pipeline.ObservableState)
	snap := state.Stats
	return &PipelineStatsResponse{
		TokensIngested: snap.TokensIngested,
		EventsGraph:    snap.EventsGraph,
		EventsVector:   snap.EventsVector,
		RestartCount:   snap.RestartCount,
		BackendOK:      snap.BackendOK,
		BackendErr:     snap.BackendErr,
	}, nil
}

func newSemanticsServiceDesc(s *semanticsServer) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: SemanticsServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod("StartPipeline", func(ctx context.Context, dec func(any) error) (any, error) {
				req := new(StartPipelineRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return s.startPipeline(ctx, req)
			}),
			unaryMethod("StopPipeline", func(ctx context.Context, dec func(any) error) (any, error) {
				req := new(StopPipelineRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return s.stopPipeline(ctx, req)
			}),
			unaryMethod("PipelineStats", func(ctx context.Context, dec func(any) error) (any, error) {
				req := new(PipelineStatsRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return s.pipelineStats(ctx, req)
			}),
		},
		Metadata: "rpcsurface/semantics.go",
	}
}
