package storage

import (
	"context"
	"fmt"
	"sort"
)

// DocumentPayload is the read-side composition of a vector hit joined back
// to its structured index record.
type DocumentPayload struct {
	DocID          string
	DocSource      string
	Sentence       string
	Subject        string
	Object         string
	Knowledge      string
	CosineDistance *float32
	QueryEmbedding []float32
	Query          string
	SessionID      string
	Score          float32
	CollectionID   string
}

// VectorSearcher is the subset of Storage the discovery read path needs
// from a vector backend.
type VectorSearcher interface {
	SearchTopK(ctx context.Context, collectionID string, query []float32, topK int) ([]ScoredVector, error)
}

// ScoredVector is one vector backend hit.
type ScoredVector struct {
	EventID    string
	Similarity float32
}

// IndexLookup is the subset of Storage the discovery read path needs from
// an index backend to resolve an event id back to its triple.
type IndexLookup interface {
	LookupByEventID(ctx context.Context, eventID string) (GraphItem, bool, error)
}

// Discover implements the three-step discovery read path: top-K cosine
// search against vec, index lookup against idx for each hit above the
// similarity threshold, then composition into DocumentPayload with
// cosine_distance = 1 - similarity.
func Discover(ctx context.Context, vec VectorSearcher, idx IndexLookup, sessionID, collectionID string, query []float32, offset, limit int) ([]DocumentPayload, error) {
	const similarityThreshold = 0.5

	hits, err := vec.SearchTopK(ctx, collectionID, query, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("storage: discover: vector search: %w", err)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })

	var out []DocumentPayload
	for i, h := range hits {
		if i < offset {
			continue
		}
		if len(out) >= limit {
			break
		}
		if h.Similarity <= similarityThreshold {
			continue
		}
		rec, ok, err := idx.LookupByEventID(ctx, h.EventID)
		if err != nil {
			return out, fmt.Errorf("storage: discover: index lookup %s: %w", h.EventID, err)
		}
		if !ok {
			continue
		}
		dist := 1 - h.Similarity
		out = append(out, DocumentPayload{
			DocID:          rec.ID,
			DocSource:      rec.Payload.SourceID,
			Sentence:       rec.Payload.Sentence,
			Subject:        rec.Payload.Subject,
			Object:         rec.Payload.Object,
			Knowledge:      rec.Payload.Predicate,
			CosineDistance: &dist,
			QueryEmbedding: query,
			SessionID:      sessionID,
			Score:          h.Similarity,
			CollectionID:   collectionID,
		})
	}
	return out, nil
}
