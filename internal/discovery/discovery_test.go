package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wessley-ai/querent-node/internal/eventstate"
	"github.com/wessley-ai/querent-node/internal/storage"
)

type fakeVectorSearcher struct {
	hits []storage.ScoredVector
}

func (f fakeVectorSearcher) SearchTopK(context.Context, string, []float32, int) ([]storage.ScoredVector, error) {
	return f.hits, nil
}

type fakeIndexLookup struct {
	items map[string]storage.GraphItem
}

func (f fakeIndexLookup) LookupByEventID(_ context.Context, eventID string) (storage.GraphItem, bool, error) {
	item, ok := f.items[eventID]
	return item, ok, nil
}

func newFixture() (fakeVectorSearcher, fakeIndexLookup) {
	vec := fakeVectorSearcher{hits: []storage.ScoredVector{
		{EventID: "e1", Similarity: 0.9},
		{EventID: "e2", Similarity: 0.4}, // below threshold, excluded
	}}
	idx := fakeIndexLookup{items: map[string]storage.GraphItem{
		"e1": {ID: "e1", Payload: eventstate.SemanticKnowledgePayload{Subject: "alice", Object: "bob", Sentence: "alice knows bob"}},
	}}
	return vec, idx
}

func TestRunValidatesCollectionID(t *testing.T) {
	vec, idx := newFixture()
	runner := NewRunner(vec, idx, NewStore())

	_, err := runner.Run(context.Background(), Request{QueryText: "a valid query"})
	require.Error(t, err)
}

func TestRunReturnsComposedDocuments(t *testing.T) {
	vec, idx := newFixture()
	runner := NewRunner(vec, idx, NewStore())

	docs, err := runner.Run(context.Background(), Request{CollectionID: "docs", QueryText: "a valid query"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "e1", docs[0].DocID)
	assert.Equal(t, "alice", docs[0].Subject)
}

func TestRunRecordsSessionTurn(t *testing.T) {
	vec, idx := newFixture()
	store := NewStore()
	runner := NewRunner(vec, idx, store)

	_, err := runner.Run(context.Background(), Request{SessionID: "s1", CollectionID: "docs", QueryText: "a valid query"})
	require.NoError(t, err)

	history := store.Get("s1").History()
	require.Len(t, history, 1)
	assert.Equal(t, []string{"e1"}, history[0].Results)
}

func TestRunStreamDeliversEveryDocument(t *testing.T) {
	vec, idx := newFixture()
	runner := NewRunner(vec, idx, NewStore())

	out := make(chan storage.DocumentPayload, 4)
	err := runner.RunStream(context.Background(), Request{CollectionID: "docs", QueryText: "a valid query"}, out)
	require.NoError(t, err)
	close(out)

	var got []storage.DocumentPayload
	for d := range out {
		got = append(got, d)
	}
	assert.Len(t, got, 1)
}

func TestSessionWindowEvictsOldestTurn(t *testing.T) {
	s := NewSession("s1")
	for i := 0; i < defaultWindowSize+5; i++ {
		s.Record(Turn{Query: "q"})
	}
	assert.Len(t, s.History(), defaultWindowSize)
}
