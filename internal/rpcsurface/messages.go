package rpcsurface

// Messages are plain Go structs, JSON-tagged, carried by jsonCodec. There
// is no .proto source; this file is the wire contract.

// FetchClusterStateRequest requests a snapshot of every known peer.
type FetchClusterStateRequest struct {
	ClusterID string `json:"cluster_id"`
}

// NodeState is one peer's versioned KV snapshot.
type NodeState struct {
	ChitchatID    string            `json:"chitchat_id"`
	KV            map[string]string `json:"kv"`
	MaxVersion    uint64            `json:"max_version"`
	LastGCVersion uint64            `json:"last_gc_version"`
}

// FetchClusterStateResponse is the reply to FetchClusterStateRequest.
type FetchClusterStateResponse struct {
	Nodes []NodeState `json:"nodes"`
}

// ClusterChangeEvent mirrors model.ClusterChange over the wire.
type ClusterChangeEvent struct {
	Kind     string `json:"kind"`
	NodeID   string `json:"node_id"`
	GRPCAddr string `json:"grpc_addr"`
	Ready    bool   `json:"ready"`
	IsSelf   bool   `json:"is_self"`
}

// StreamClusterChangesRequest has no parameters; present for wire symmetry
// and future filtering.
type StreamClusterChangesRequest struct{}

// StartPipelineRequest triggers a registered pipeline to (re)start its run,
// used by the Semantics service for operator-driven control; a pipeline
// does not restart a failed run on its own.
type StartPipelineRequest struct {
	PipelineID string `json:"pipeline_id"`
}

// StartPipelineResponse acknowledges a start request.
type StartPipelineResponse struct {
	Accepted bool `json:"accepted"`
}

// StopPipelineRequest stops a running pipeline.
type StopPipelineRequest struct {
	PipelineID string `json:"pipeline_id"`
}

// StopPipelineResponse acknowledges a stop request.
type StopPipelineResponse struct {
	Accepted bool `json:"accepted"`
}

// PipelineStatsRequest asks for a pipeline's current indexing statistics.
type PipelineStatsRequest struct {
	PipelineID string `json:"pipeline_id"`
}

// PipelineStatsResponse carries a pipeline.Snapshot over the wire.
type PipelineStatsResponse struct {
	TokensIngested uint64            `json:"tokens_ingested"`
	EventsGraph    uint64            `json:"events_graph"`
	EventsVector   uint64            `json:"events_vector"`
	RestartCount   uint64            `json:"restart_count"`
	BackendOK      map[string]uint64 `json:"backend_ok"`
	BackendErr     map[string]uint64 `json:"backend_err"`
}

// DiscoverRequest is one discovery query.
type DiscoverRequest struct {
	SessionID    string    `json:"session_id"`
	CollectionID string    `json:"collection_id"`
	QueryText    string    `json:"query_text"`
	Query        []float32 `json:"query"`
	Offset       int       `json:"offset"`
	Limit        int       `json:"limit"`
}

// DocumentPayload mirrors storage.DocumentPayload over the wire.
type DocumentPayload struct {
	DocID          string    `json:"doc_id"`
	DocSource      string    `json:"doc_source"`
	Sentence       string    `json:"sentence"`
	Subject        string    `json:"subject"`
	Object         string    `json:"object"`
	Knowledge      string    `json:"knowledge"`
	CosineDistance float32   `json:"cosine_distance"`
	QueryEmbedding []float32 `json:"query_embedding"`
	SessionID      string    `json:"session_id"`
	Score          float32   `json:"score"`
	CollectionID   string    `json:"collection_id"`
}

// DiscoverResponse wraps a batch of results for the unary Discover call.
type DiscoverResponse struct {
	Documents []DocumentPayload `json:"documents"`
}

// ListInsightsRequest has no parameters.
type ListInsightsRequest struct{}

// InsightMetadata mirrors insight.Metadata over the wire.
type InsightMetadata struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListInsightsResponse lists every registered insight kind.
type ListInsightsResponse struct {
	Insights []InsightMetadata `json:"insights"`
}

// RunInsightRequest runs one insight kind.
type RunInsightRequest struct {
	Kind         string            `json:"kind"`
	CollectionID string            `json:"collection_id"`
	Params       map[string]string `json:"params"`
}

// RunInsightResponse carries the insight's JSON result blob.
type RunInsightResponse struct {
	Kind string `json:"kind"`
	Data string `json:"data"`
}
