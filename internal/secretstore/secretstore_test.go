package secretstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenOnMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.msgpack")
	s, err := Open(path)
	require.NoError(t, err)

	_, ok := s.Get("anything")
	assert.False(t, ok)
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.msgpack")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("api_key", "sk-123"))

	reopened, err := Open(path)
	require.NoError(t, err)
	v, ok := reopened.Get("api_key")
	require.True(t, ok)
	assert.Equal(t, "sk-123", v)
}

func TestDeleteRemovesKeyAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.msgpack")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Delete("a"))

	_, ok := s.Get("a")
	assert.False(t, ok)

	reopened, err := Open(path)
	require.NoError(t, err)
	_, ok = reopened.Get("a")
	assert.False(t, ok)
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.msgpack")
	s, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, s.Delete("never-set"))
}
