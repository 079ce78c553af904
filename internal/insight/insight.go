// Package insight registers the node's insight kinds: metadata describing
// a post-hoc analysis that can run over already-indexed data. Each kind
// corresponds to one analysis family from the original insights service
// (anomaly detection, cross-document summarization, graph building, report
// generation, transfer learning); this node ships the metadata registry
// and a narrow Runner contract, not the analyses themselves, which depend
// on the external model capability the spec scopes out.
package insight

import (
	"context"
	"fmt"
	"sync"
)

// Kind identifies one family of insight.
type Kind string

const (
	KindAnomalyDetection          Kind = "anomaly_detection"
	KindCrossDocumentSummarization Kind = "cross_document_summarization"
	KindGraphBuilder              Kind = "graph_builder"
	KindReportGeneration          Kind = "report_generation"
	KindTransferLearning          Kind = "transfer_learning"
)

// Metadata describes one registered insight kind.
type Metadata struct {
	Kind        Kind
	Name        string
	Description string
	// Additional is free-form per-kind configuration schema, surfaced
	// verbatim to callers describing the insight (e.g. the report
	// generation insight's expected sections).
	Additional map[string]string
}

// Request carries the parameters for one insight run.
type Request struct {
	Kind         Kind
	CollectionID string
	Params       map[string]string
}

// Result is one insight run's output, opaque beyond its kind and a JSON
// blob the caller is expected to already know how to parse for that kind.
type Result struct {
	Kind Kind
	Data string // JSON
}

// Runner executes one insight kind against already-indexed storage.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Registry holds Metadata and an optional Runner per Kind.
type Registry struct {
	mu       sync.RWMutex
	metadata map[Kind]Metadata
	runners  map[Kind]Runner
}

// NewRegistry returns a Registry pre-seeded with metadata for all five
// built-in insight kinds; no runners are registered until Register is
// called, so listing is always possible but running requires explicit
// wiring (an unwired kind returns ErrNoRunner).
func NewRegistry() *Registry {
	r := &Registry{
		metadata: make(map[Kind]Metadata),
		runners:  make(map[Kind]Runner),
	}
	for _, m := range defaultMetadata {
		r.metadata[m.Kind] = m
	}
	return r
}

var defaultMetadata = []Metadata{
	{
		Kind:        KindAnomalyDetection,
		Name:        "Anomaly Detection",
		Description: "Flags graph triples or embeddings that deviate from the collection's learned baseline.",
	},
	{
		Kind:        KindCrossDocumentSummarization,
		Name:        "Cross-Document Summarization",
		Description: "Summarizes the union of knowledge extracted across every document in a collection.",
	},
	{
		Kind:        KindGraphBuilder,
		Name:        "Graph Builder",
		Description: "Builds an exportable subgraph view from indexed semantic triples matching a query.",
	},
	{
		Kind:        KindReportGeneration,
		Name:        "Report Generation",
		Description: "Produces a structured report from accumulated insight runs over a collection.",
	},
	{
		Kind:        KindTransferLearning,
		Name:        "Transfer Learning",
		Description: "Applies patterns learned in one collection's embeddings to seed another.",
	},
}

// List returns the metadata for every registered kind.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.metadata))
	for _, m := range r.metadata {
		out = append(out, m)
	}
	return out
}

// Register wires a Runner for kind. kind must already have Metadata
// (typically one of the five built-ins).
func (r *Registry) Register(kind Kind, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[kind] = runner
}

// ErrNoRunner is returned by Run when kind has no registered Runner.
var ErrNoRunner = fmt.Errorf("insight: no runner registered for this kind")

// Run dispatches req to the runner registered for req.Kind.
func (r *Registry) Run(ctx context.Context, req Request) (Result, error) {
	r.mu.RLock()
	runner, ok := r.runners[req.Kind]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoRunner, req.Kind)
	}
	return runner.Run(ctx, req)
}
