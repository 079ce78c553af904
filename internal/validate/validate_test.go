package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRejectsShortInput(t *testing.T) {
	err := Query("ok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestQueryRejectsInjection(t *testing.T) {
	cases := []string{
		"DROP TABLE users",
		"find x; DELETE MATCH (n) RETURN n",
		"lookup ${malicious}",
	}
	for _, c := range cases {
		err := Query(c)
		require.Error(t, err, "expected rejection for %q", c)
		assert.ErrorIs(t, err, ErrQueryInjection)
	}
}

func TestQueryAcceptsOrdinaryText(t *testing.T) {
	assert.NoError(t, Query("what did the report say about latency"))
}

func TestTopKRange(t *testing.T) {
	assert.NoError(t, TopK(1))
	assert.NoError(t, TopK(100))
	assert.ErrorIs(t, TopK(0), ErrInvalidTopK)
	assert.ErrorIs(t, TopK(101), ErrInvalidTopK)
}

func TestSourceKind(t *testing.T) {
	assert.NoError(t, SourceKind("memory"))
	assert.NoError(t, SourceKind("filesystem"))
	assert.ErrorIs(t, SourceKind("s3"), ErrInvalidSourceKind)
}

func TestRequired(t *testing.T) {
	assert.NoError(t, Required("collection_id", "docs"))
	err := Required("collection_id", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "collection_id", ve.Field)
}
