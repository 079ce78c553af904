package rpcsurface

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wessley-ai/querent-node/internal/cluster"
	"github.com/wessley-ai/querent-node/internal/errtax"
	"github.com/wessley-ai/querent-node/internal/model"
)

// ClusterServiceName is the hand-registered service name, mirroring what
// protoc would have generated from a "cluster.v1.ClusterService".
const ClusterServiceName = "querent.cluster.v1.ClusterService"

type clusterServer struct {
	c *cluster.Cluster
}

func (s *clusterServer) fetchClusterState(ctx context.Context, req *FetchClusterStateRequest) (*FetchClusterStateResponse, error) {
	states, err := s.c.FetchClusterState(req.ClusterID)
	if err != nil {
		return nil, errtax.New(errtax.BadRequest, err)
	}
	nodes := make([]NodeState, len(states))
	for i, st := range states {
		nodes[i] = NodeState{
			ChitchatID:    st.ChitchatID,
			KV:            st.KV,
			MaxVersion:    st.MaxVersion,
			LastGCVersion: st.LastGCVersion,
		}
	}
	return &FetchClusterStateResponse{Nodes: nodes}, nil
}

func (s *clusterServer) streamClusterChanges(_ *StreamClusterChangesRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	changes := s.c.ChangeStream()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(toWireChange(change)); err != nil {
				return err
			}
		}
	}
}

func toWireChange(c model.ClusterChange) *ClusterChangeEvent {
	return &ClusterChangeEvent{
		Kind:     c.Kind.String(),
		NodeID:   string(c.Node.ChitchatID.NodeId),
		GRPCAddr: c.Node.GRPCAddr,
		Ready:    c.Node.IsReady,
		IsSelf:   c.Node.IsSelf,
	}
}

func newClusterServiceDesc(s *clusterServer) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: ClusterServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod("FetchClusterState", func(ctx context.Context, dec func(any) error) (any, error) {
				req := new(FetchClusterStateRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return s.fetchClusterState(ctx, req)
			}),
		},
		Streams: []grpc.StreamDesc{
			{
				StreamName:    "StreamClusterChanges",
				ServerStreams: true,
				Handler: func(_ any, stream grpc.ServerStream) error {
					req := new(StreamClusterChangesRequest)
					if err := stream.RecvMsg(req); err != nil {
						return err
					}
					return s.streamClusterChanges(req, stream)
				},
			},
		},
		Metadata: "rpcsurface/cluster.go",
	}
}
