package rpcsurface

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wessley-ai/querent-node/internal/errtax"
	"github.com/wessley-ai/querent-node/internal/insight"
)

// InsightServiceName names the hand-registered insights service.
const InsightServiceName = "querent.insight.v1.InsightService"

type insightServer struct {
	registry *insight.Registry
}

func (s *insightServer) listInsights(context.Context, *ListInsightsRequest) (*ListInsightsResponse, error) {
	metas := s.registry.List()
	out := make([]InsightMetadata, len(metas))
	for i, m := range metas {
		out[i] = InsightMetadata{Kind: string(m.Kind), Name: m.Name, Description: m.Description}
	}
	return &ListInsightsResponse{Insights: out}, nil
}

func (s *insightServer) runInsight(ctx context.Context, req *RunInsightRequest) (*RunInsightResponse, error) {
	res, err := s.registry.Run(ctx, insight.Request{
		Kind:         insight.Kind(req.Kind),
		CollectionID: req.CollectionID,
		Params:       req.Params,
	})
	if err != nil {
		return nil, errtax.New(errtax.NotSupportedYet, err)
	}
	return &RunInsightResponse{Kind: string(res.Kind), Data: res.Data}, nil
}

func newInsightServiceDesc(s *insightServer) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: InsightServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod("ListInsights", func(ctx context.Context, dec func(any) error) (any, error) {
				req := new(ListInsightsRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return s.listInsights(ctx, req)
			}),
			unaryMethod("RunInsight", func(ctx context.Context, dec func(any) error) (any, error) {
				req := new(RunInsightRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return s.runInsight(ctx, req)
			}),
		},
		Metadata: "rpcsurface/insight.go",
	}
}
