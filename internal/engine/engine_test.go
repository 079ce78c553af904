package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wessley-ai/querent-node/internal/eventstate"
	"github.com/wessley-ai/querent-node/internal/ingestpipe"
)

func TestProcessExtractsTripleFromMatchingLine(t *testing.T) {
	e := NewReferenceEngine("fallback-source")
	tokens := ingestpipe.IngestedTokens{
		File:      "doc.txt",
		DocSource: "src1",
		Data:      []string{"subject: alice (person) predicate: knows object: bob (person)"},
	}

	events, err := e.Process(context.Background(), tokens)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventstate.KindGraph, events[0].Kind)

	payload, err := events[0].DecodeGraph()
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.Subject)
	assert.Equal(t, "person", payload.SubjectType)
	assert.Equal(t, "knows", payload.Predicate)
	assert.Equal(t, "bob", payload.Object)
	assert.NotEmpty(t, payload.EventID)
}

func TestProcessFallsBackToVectorForNonTripleLines(t *testing.T) {
	e := NewReferenceEngine("fallback-source")
	tokens := ingestpipe.IngestedTokens{
		File: "doc.txt",
		Data: []string{"just a regular sentence with no triple marker"},
	}

	events, err := e.Process(context.Background(), tokens)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventstate.KindVector, events[0].Kind)

	payload, err := events[0].DecodeVector()
	require.NoError(t, err)
	assert.Len(t, payload.Embeddings, 8)
}

func TestProcessSkipsBlankLines(t *testing.T) {
	e := NewReferenceEngine("fallback-source")
	tokens := ingestpipe.IngestedTokens{File: "doc.txt", Data: []string{"", "   "}}

	events, err := e.Process(context.Background(), tokens)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestProcessOnSentinelReturnsNothing(t *testing.T) {
	e := NewReferenceEngine("fallback-source")
	events, err := e.Process(context.Background(), ingestpipe.IngestedTokens{})
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestProcessUsesFallbackSourceWhenDocSourceBlank(t *testing.T) {
	e := NewReferenceEngine("fallback-source")
	tokens := ingestpipe.IngestedTokens{File: "doc.txt", Data: []string{"plain text"}}

	events, err := e.Process(context.Background(), tokens)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fallback-source", events[0].DocSource)
}

func TestProcessRespectsContextCancellation(t *testing.T) {
	e := NewReferenceEngine("src")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tokens := ingestpipe.IngestedTokens{File: "doc.txt", Data: []string{"line one", "line two"}}
	_, err := e.Process(ctx, tokens)
	require.Error(t, err)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, EventStream, engErr.Kind)
}

func TestBagOfCharsEmbeddingIsDeterministic(t *testing.T) {
	a := bagOfCharsEmbedding("hello world")
	b := bagOfCharsEmbedding("hello world")
	assert.Equal(t, a, b)
}

func TestBagOfCharsEmbeddingHandlesNoLetters(t *testing.T) {
	vec := bagOfCharsEmbedding("1234!!!")
	for _, v := range vec {
		assert.Equal(t, float32(0), v)
	}
}

func TestErrorKindStringCoversEveryKind(t *testing.T) {
	for _, k := range []ErrorKind{EventStream, Io, NotFound, ModelError} {
		assert.NotEqual(t, "unknown", k.String())
	}
	assert.Equal(t, "unknown", ErrorKind(99).String())
}
