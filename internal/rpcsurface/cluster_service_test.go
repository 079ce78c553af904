package rpcsurface

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/wessley-ai/querent-node/internal/cluster"
	"github.com/wessley-ai/querent-node/internal/errtax"
	"github.com/wessley-ai/querent-node/internal/model"
)

func testCluster(t *testing.T) *cluster.Cluster {
	t.Helper()
	c, cancel := cluster.Join(context.Background(), cluster.Config{
		ClusterID: "test-cluster",
		Self: model.ClusterMember{
			NodeId:             model.NodeId("n1"),
			GossipAdvertiseAddr: "addr1",
			CPUCapacityMillis:  model.CpuCapacityFromMillis(1000),
		},
		GossipAddr: "addr1",
		Transport:  cluster.NewMemoryTransport(),
	}, nil)
	t.Cleanup(cancel)
	return c
}

func TestFetchClusterStateReturnsWireNodes(t *testing.T) {
	c := testCluster(t)
	s := &clusterServer{c: c}

	resp, err := s.fetchClusterState(context.Background(), &FetchClusterStateRequest{ClusterID: "test-cluster"})
	require.NoError(t, err)
	require.Len(t, resp.Nodes, 1)
	assert.Equal(t, "n1", resp.Nodes[0].ChitchatID)
}

func TestFetchClusterStateWrapsMismatchAsBadRequest(t *testing.T) {
	c := testCluster(t)
	s := &clusterServer{c: c}

	_, err := s.fetchClusterState(context.Background(), &FetchClusterStateRequest{ClusterID: "wrong"})
	require.Error(t, err)
	assert.Equal(t, errtax.BadRequest, errtax.KindOf(err))
}

type fakeServerStream struct {
	ctx     context.Context
	sent    []any
	recvMsg any
}

func (f *fakeServerStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeServerStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeServerStream) SetTrailer(metadata.MD)       {}
func (f *fakeServerStream) Context() context.Context     { return f.ctx }
func (f *fakeServerStream) SendMsg(m any) error {
	f.sent = append(f.sent, m)
	return nil
}
func (f *fakeServerStream) RecvMsg(m any) error { return nil }

func TestStreamClusterChangesForwardsUntilContextCancelled(t *testing.T) {
	c := testCluster(t)
	s := &clusterServer{c: c}

	ctx, cancel := context.WithCancel(context.Background())
	stream := &fakeServerStream{ctx: ctx}

	done := make(chan error, 1)
	go func() { done <- s.streamClusterChanges(&StreamClusterChangesRequest{}, stream) }()

	c.SetSelfNodeReadiness(true)

	require.Eventually(t, func() bool { return len(stream.sent) >= 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("streamClusterChanges did not return after context cancellation")
	}
}
