package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeStateSetBumpsVersionEachCall(t *testing.T) {
	n := newNodeState()
	v1 := n.set("k", "a")
	v2 := n.set("k", "a") // same value, still bumps version
	assert.Less(t, v1, v2)
}

func TestNodeStateGetMissingKey(t *testing.T) {
	n := newNodeState()
	_, ok := n.get("missing")
	assert.False(t, ok)
}

func TestNodeStateMergeFromAppliesNewerVersionsOnly(t *testing.T) {
	n := newNodeState()
	n.set("k", "old")

	changed := n.mergeFrom(map[string]versionedValue{"k": {Value: "stale", Version: 0}})
	assert.False(t, changed)
	v, _ := n.get("k")
	assert.Equal(t, "old", v)

	changed = n.mergeFrom(map[string]versionedValue{"k": {Value: "new", Version: 100}})
	assert.True(t, changed)
	v, _ = n.get("k")
	assert.Equal(t, "new", v)
}

func TestNodeStateMergeFromHonorsTombstones(t *testing.T) {
	n := newNodeState()
	n.mergeFrom(map[string]versionedValue{"k": {Value: "v", Version: 1, Tombstone: true}})
	_, ok := n.get("k")
	assert.False(t, ok, "a tombstoned entry must read as absent")
}

func TestNodeStateSnapshotIsIndependentCopy(t *testing.T) {
	n := newNodeState()
	n.set("k", "v")
	snap := n.snapshot()
	n.set("k", "v2")

	assert.Equal(t, "v", snap["k"].Value)
}
