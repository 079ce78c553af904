package rpcsurface

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wessley-ai/querent-node/internal/discovery"
	"github.com/wessley-ai/querent-node/internal/errtax"
	"github.com/wessley-ai/querent-node/internal/storage"
)

// DiscoveryServiceName names the hand-registered discovery service.
const DiscoveryServiceName = "querent.discovery.v1.DiscoveryService"

type discoveryServer struct {
	runner discovery.Runner
}

func (s *discoveryServer) discover(ctx context.Context, req *DiscoverRequest) (*DiscoverResponse, error) {
	docs, err := s.runner.Run(ctx, discovery.Request{
		SessionID:    req.SessionID,
		CollectionID: req.CollectionID,
		Query:        req.Query,
		QueryText:    req.QueryText,
		Offset:       req.Offset,
		Limit:        req.Limit,
	})
	if err != nil {
		return nil, errtax.New(errtax.BadRequest, err)
	}
	return &DiscoverResponse{Documents: toWireDocuments(docs)}, nil
}

func (s *discoveryServer) discoverStream(req *DiscoverRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	out := make(chan storage.DocumentPayload)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.runner.RunStream(ctx, discovery.Request{
			SessionID:    req.SessionID,
			CollectionID: req.CollectionID,
			Query:        req.Query,
			QueryText:    req.QueryText,
			Offset:       req.Offset,
			Limit:        req.Limit,
		}, out)
		close(out)
	}()
	for doc := range out {
		wire := toWireDocument(doc)
		if err := stream.SendMsg(&wire); err != nil {
			return err
		}
	}
	return <-errCh
}

func toWireDocuments(docs []storage.DocumentPayload) []DocumentPayload {
	out := make([]DocumentPayload, len(docs))
	for i, d := range docs {
		out[i] = toWireDocument(d)
	}
	return out
}

func toWireDocument(d storage.DocumentPayload) DocumentPayload {
	var dist float32
	if d.CosineDistance != nil {
		dist = *d.CosineDistance
	}
	return DocumentPayload{
		DocID:          d.DocID,
		DocSource:      d.DocSource,
		Sentence:       d.Sentence,
		Subject:        d.Subject,
		Object:         d.Object,
		Knowledge:      d.Knowledge,
		CosineDistance: dist,
		QueryEmbedding: d.QueryEmbedding,
		SessionID:      d.SessionID,
		Score:          d.Score,
		CollectionID:   d.CollectionID,
	}
}

func newDiscoveryServiceDesc(s *discoveryServer) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: DiscoveryServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod("Discover", func(ctx context.Context, dec func(any) error) (any, error) {
				req := new(DiscoverRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return s.discover(ctx, req)
			}),
		},
		Streams: []grpc.StreamDesc{
			{
				StreamName:    "DiscoverStream",
				ServerStreams: true,
				Handler: func(_ any, stream grpc.ServerStream) error {
					req := new(DiscoverRequest)
					if err := stream.RecvMsg(req); err != nil {
						return err
					}
					return s.discoverStream(req, stream)
				},
			},
		},
		Metadata: "rpcsurface/discovery.go",
	}
}
