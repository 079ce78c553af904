// Package storage routes typed semantic events to graph, vector, index, and
// secret backends and implements the discovery read path against them.
// Adapted from the teacher's engine/graph and engine/semantic clients,
// generalized from one fixed Neo4j+Qdrant pair behind concrete types into
// a registry of named backends behind one narrow Storage interface.
package storage

import (
	"context"

	"github.com/wessley-ai/querent-node/internal/eventstate"
)

// Storage is the one capability interface every backend (graph, vector,
// index, secret) implements. Narrow on purpose: callers discriminate
// behavior by EventKind, not by backend type.
type Storage interface {
	Name() string
	CheckConnectivity(ctx context.Context) error
	InsertVector(ctx context.Context, collectionID string, items []VectorItem) error
	InsertGraph(ctx context.Context, items []GraphItem) error
	IndexKnowledge(ctx context.Context, items []GraphItem) error
	StoreKV(ctx context.Context, key, value string) error
	GetKV(ctx context.Context, key string) (string, bool, error)
}

// GraphItem pairs an id with the triple it carries, for batched graph and
// index writes.
type GraphItem struct {
	ID      string
	Payload eventstate.SemanticKnowledgePayload
}

// VectorItem pairs an id with the embedding it carries, for batched vector
// writes.
type VectorItem struct {
	ID      string
	Payload eventstate.VectorPayload
}
