package rpcsurface

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wessley-ai/querent-node/internal/discovery"
	"github.com/wessley-ai/querent-node/internal/storage"
)

type stubDiscoveryRunner struct {
	docs     []storage.DocumentPayload
	err      error
	lastReq  discovery.Request
	streamErr error
}

func (s *stubDiscoveryRunner) Run(ctx context.Context, req discovery.Request) ([]storage.DocumentPayload, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

func (s *stubDiscoveryRunner) RunStream(ctx context.Context, req discovery.Request, out chan<- storage.DocumentPayload) error {
	s.lastReq = req
	for _, d := range s.docs {
		out <- d
	}
	return s.streamErr
}

func TestDiscoverReturnsWireDocuments(t *testing.T) {
	runner := &stubDiscoveryRunner{docs: []storage.DocumentPayload{
		{DocID: "d1", Subject: "alice", Object: "bob"},
		{DocID: "d2", Subject: "carol", Object: "dave"},
	}}
	s := &discoveryServer{runner: runner}

	resp, err := s.discover(context.Background(), &DiscoverRequest{
		SessionID: "sess1", CollectionID: "col1", QueryText: "alice knows bob", Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, "d1", resp.Documents[0].DocID)
	assert.Equal(t, "sess1", runner.lastReq.SessionID)
	assert.Equal(t, "col1", runner.lastReq.CollectionID)
	assert.Equal(t, 10, runner.lastReq.Limit)
}

func TestDiscoverPropagatesRunnerError(t *testing.T) {
	runner := &stubDiscoveryRunner{err: errors.New("boom")}
	s := &discoveryServer{runner: runner}

	_, err := s.discover(context.Background(), &DiscoverRequest{CollectionID: "col1"})
	require.Error(t, err)
}

func TestDiscoverStreamSendsEveryDocumentThenReturnsRunnerError(t *testing.T) {
	runner := &stubDiscoveryRunner{
		docs:      []storage.DocumentPayload{{DocID: "d1"}, {DocID: "d2"}},
		streamErr: errors.New("stream broke"),
	}
	s := &discoveryServer{runner: runner}
	stream := &fakeServerStream{ctx: context.Background()}

	err := s.discoverStream(&DiscoverRequest{CollectionID: "col1"}, stream)
	require.Error(t, err)
	assert.EqualError(t, err, "stream broke")
	require.Len(t, stream.sent, 2)
	wire, ok := stream.sent[0].(*DocumentPayload)
	require.True(t, ok)
	assert.Equal(t, "d1", wire.DocID)
}

func TestDiscoverStreamSucceedsWithNoError(t *testing.T) {
	runner := &stubDiscoveryRunner{docs: []storage.DocumentPayload{{DocID: "only"}}}
	s := &discoveryServer{runner: runner}
	stream := &fakeServerStream{ctx: context.Background()}

	err := s.discoverStream(&DiscoverRequest{CollectionID: "col1"}, stream)
	require.NoError(t, err)
	require.Len(t, stream.sent, 1)
}

func TestNewClusterServiceDescWiresMethodsAndStreams(t *testing.T) {
	desc := newClusterServiceDesc(&clusterServer{})
	assert.Equal(t, ClusterServiceName, desc.ServiceName)
	require.Len(t, desc.Methods, 1)
	assert.Equal(t, "FetchClusterState", desc.Methods[0].MethodName)
	require.Len(t, desc.Streams, 1)
	assert.Equal(t, "StreamClusterChanges", desc.Streams[0].StreamName)
	assert.True(t, desc.Streams[0].ServerStreams)
}

func TestNewDiscoveryServiceDescWiresMethodsAndStreams(t *testing.T) {
	desc := newDiscoveryServiceDesc(&discoveryServer{})
	assert.Equal(t, DiscoveryServiceName, desc.ServiceName)
	require.Len(t, desc.Methods, 1)
	assert.Equal(t, "Discover", desc.Methods[0].MethodName)
	require.Len(t, desc.Streams, 1)
	assert.Equal(t, "DiscoverStream", desc.Streams[0].StreamName)
	assert.True(t, desc.Streams[0].ServerStreams)
}

func TestNewInsightServiceDescWiresBothMethods(t *testing.T) {
	desc := newInsightServiceDesc(&insightServer{})
	assert.Equal(t, InsightServiceName, desc.ServiceName)
	require.Len(t, desc.Methods, 2)
	names := []string{desc.Methods[0].MethodName, desc.Methods[1].MethodName}
	assert.Contains(t, names, "ListInsights")
	assert.Contains(t, names, "RunInsight")
}

func TestNewSemanticsServiceDescWiresAllThreeMethods(t *testing.T) {
	desc := newSemanticsServiceDesc(&semanticsServer{})
	assert.Equal(t, SemanticsServiceName, desc.ServiceName)
	require.Len(t, desc.Methods, 3)
	names := []string{desc.Methods[0].MethodName, desc.Methods[1].MethodName, desc.Methods[2].MethodName}
	assert.Contains(t, names, "StartPipeline")
	assert.Contains(t, names, "StopPipeline")
	assert.Contains(t, names, "PipelineStats")
}
