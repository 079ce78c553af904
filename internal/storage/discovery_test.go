package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wessley-ai/querent-node/internal/eventstate"
)

type stubVectorSearcher struct {
	hits []ScoredVector
	err  error
}

func (s stubVectorSearcher) SearchTopK(context.Context, string, []float32, int) ([]ScoredVector, error) {
	return s.hits, s.err
}

type stubIndexLookup struct {
	items map[string]GraphItem
	err   error
}

func (s stubIndexLookup) LookupByEventID(_ context.Context, eventID string) (GraphItem, bool, error) {
	if s.err != nil {
		return GraphItem{}, false, s.err
	}
	item, ok := s.items[eventID]
	return item, ok, nil
}

func TestDiscoverFiltersBySimilarityThreshold(t *testing.T) {
	vec := stubVectorSearcher{hits: []ScoredVector{
		{EventID: "below", Similarity: 0.5},
		{EventID: "above", Similarity: 0.51},
	}}
	idx := stubIndexLookup{items: map[string]GraphItem{
		"above": {ID: "above", Payload: eventstate.SemanticKnowledgePayload{Subject: "a"}},
		"below": {ID: "below", Payload: eventstate.SemanticKnowledgePayload{Subject: "b"}},
	}}

	docs, err := Discover(context.Background(), vec, idx, "sess", "coll", nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "above", docs[0].DocID)
	assert.InDelta(t, 0.49, *docs[0].CosineDistance, 1e-6)
}

func TestDiscoverSortsBySimilarityDescending(t *testing.T) {
	vec := stubVectorSearcher{hits: []ScoredVector{
		{EventID: "lower", Similarity: 0.6},
		{EventID: "higher", Similarity: 0.9},
	}}
	idx := stubIndexLookup{items: map[string]GraphItem{
		"lower":  {ID: "lower"},
		"higher": {ID: "higher"},
	}}

	docs, err := Discover(context.Background(), vec, idx, "sess", "coll", nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "higher", docs[0].DocID)
	assert.Equal(t, "lower", docs[1].DocID)
}

func TestDiscoverAppliesOffsetAndLimit(t *testing.T) {
	vec := stubVectorSearcher{hits: []ScoredVector{
		{EventID: "a", Similarity: 0.9},
		{EventID: "b", Similarity: 0.8},
		{EventID: "c", Similarity: 0.7},
	}}
	idx := stubIndexLookup{items: map[string]GraphItem{
		"a": {ID: "a"}, "b": {ID: "b"}, "c": {ID: "c"},
	}}

	docs, err := Discover(context.Background(), vec, idx, "sess", "coll", nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].DocID)
}

func TestDiscoverSkipsHitsMissingFromIndex(t *testing.T) {
	vec := stubVectorSearcher{hits: []ScoredVector{{EventID: "ghost", Similarity: 0.9}}}
	idx := stubIndexLookup{items: map[string]GraphItem{}}

	docs, err := Discover(context.Background(), vec, idx, "sess", "coll", nil, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDiscoverPropagatesVectorSearchError(t *testing.T) {
	vec := stubVectorSearcher{err: errors.New("backend down")}
	idx := stubIndexLookup{}

	_, err := Discover(context.Background(), vec, idx, "sess", "coll", nil, 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector search")
}

func TestDiscoverPropagatesIndexLookupError(t *testing.T) {
	vec := stubVectorSearcher{hits: []ScoredVector{{EventID: "a", Similarity: 0.9}}}
	idx := stubIndexLookup{err: errors.New("index down")}

	_, err := Discover(context.Background(), vec, idx, "sess", "coll", nil, 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index lookup")
}
