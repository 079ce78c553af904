package cluster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/wessley-ai/querent-node/internal/model"
	"github.com/wessley-ai/querent-node/pkg/metrics"
)

// ErrClusterIDMismatch is returned by FetchClusterState when the caller's
// cluster_id does not match this node's.
var ErrClusterIDMismatch = errors.New("cluster: cluster_id mismatch")

// Config configures a Cluster.Join call.
type Config struct {
	ClusterID      string
	Self           model.ClusterMember
	GossipAddr     string
	PeerSeeds      []string
	Transport      Transport
}

// Cluster maintains a local, eventually-consistent view of cluster peers
// via gossip anti-entropy. The gossip maps, failure detector and readiness
// latches are guarded by mu; the subscriber list by changeMu; each
// nodeState guards its own key-value map.
type Cluster struct {
	clusterID      string
	selfNodeID     string
	selfGossipAddr string
	transport      Transport
	metrics        *registryGauges

	mu        sync.RWMutex
	states    map[string]*nodeState // node_id -> versioned KV
	peerAddrs map[string]string     // node_id -> gossip addr
	detector  *phiDetector

	changeMu   sync.Mutex
	subscribers []chan model.ClusterChange

	rpcReady  bool
	restReady bool
}

type registryGauges struct {
	live, ready, zombie, dead *metrics.Gauge
	stateBytes                *metrics.Gauge
}

// Join starts gossiping with cfg.PeerSeeds and returns a running Cluster.
// Call the returned cancel func (or cancel ctx) to stop gossip goroutines.
func Join(ctx context.Context, cfg Config, reg *metrics.Registry) (*Cluster, context.CancelFunc) {
	c := &Cluster{
		clusterID:      cfg.ClusterID,
		selfNodeID:     string(cfg.Self.NodeId),
		selfGossipAddr: cfg.GossipAddr,
		transport:      cfg.Transport,
		states:         make(map[string]*nodeState),
		peerAddrs:      make(map[string]string),
		detector:       newPhiDetector(),
	}
	if reg != nil {
		c.metrics = &registryGauges{
			live:       reg.Gauge("cluster_nodes_live", "Live cluster node count"),
			ready:      reg.Gauge("cluster_nodes_ready", "Ready cluster node count"),
			zombie:     reg.Gauge("cluster_nodes_zombie", "Suspected cluster node count"),
			dead:       reg.Gauge("cluster_nodes_dead", "Dead cluster node count"),
			stateBytes: reg.Gauge("cluster_state_bytes", "Approximate gossip state size in bytes"),
		}
	}

	self := newNodeState()
	self.set(model.SemanticCPUCapacityKey, strconv.FormatUint(uint64(cfg.Self.CPUCapacityMillis.Millis()), 10))
	c.states[c.selfNodeID] = self
	c.peerAddrs[c.selfNodeID] = cfg.GossipAddr
	c.detector.heartbeat(c.selfNodeID)

	for _, seed := range cfg.PeerSeeds {
		seedID := "seed:" + seed // stays keyed by this placeholder; replies do not add peer addresses
		c.peerAddrs[seedID] = seed
	}

	runCtx, cancel := context.WithCancel(ctx)
	go c.gossipRound(runCtx)
	go c.heartbeatLoop(runCtx)
	return c, cancel
}

func (c *Cluster) beatSelf() {
	c.mu.Lock()
	c.detector.heartbeat(c.selfNodeID)
	c.mu.Unlock()
}

func (c *Cluster) localEnvelope() Envelope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[string]versionedValue, len(c.states))
	for id, st := range c.states {
		out[id] = st.snapshot()
	}
	return Envelope{States: out}
}

func (c *Cluster) mergeEnvelope(env Envelope) {
	c.mu.Lock()
	var newlySeen []string
	for nodeID, kv := range env.States {
		st, ok := c.states[nodeID]
		if !ok {
			st = newNodeState()
			c.states[nodeID] = st
			newlySeen = append(newlySeen, nodeID)
		}
		if st.mergeFrom(kv) {
			c.detector.heartbeat(nodeID)
		}
	}
	c.mu.Unlock()

	for _, nodeID := range newlySeen {
		c.publishChange(model.ChangeAdd, nodeID)
	}
	c.refreshMetrics()
}

// SetSelfNodeReadiness writes the readiness key with an increasing
// version. Per the spec, the node should only call this with true after
// both the gRPC and REST readiness signals have fired; that gating is the
// caller's responsibility (see MarkRPCReady/MarkRESTReady).
func (c *Cluster) SetSelfNodeReadiness(ready bool) {
	c.mu.Lock()
	st := c.states[c.selfNodeID]
	c.mu.Unlock()
	value := "false"
	if ready {
		value = "true"
	}
	st.set(ReadinessKey, value)
	c.publishChange(model.ChangeUpdate, c.selfNodeID)
}

// IsSelfNodeReady reports the most recently set self-readiness value.
func (c *Cluster) IsSelfNodeReady() bool {
	c.mu.RLock()
	st := c.states[c.selfNodeID]
	c.mu.RUnlock()
	v, _ := st.get(ReadinessKey)
	return v == "true"
}

// MarkRPCReady and MarkRESTReady each latch one half of the readiness
// gate; once both have fired, self readiness flips to true.
func (c *Cluster) MarkRPCReady()  { c.markReady(&c.rpcReady) }
func (c *Cluster) MarkRESTReady() { c.markReady(&c.restReady) }

func (c *Cluster) markReady(flag *bool) {
	c.mu.Lock()
	*flag = true
	both := c.rpcReady && c.restReady
	c.mu.Unlock()
	if both {
		c.SetSelfNodeReadiness(true)
	}
}

// NodeStateSnapshot is one peer's state as returned by FetchClusterState.
type NodeStateSnapshot struct {
	ChitchatID    string
	KV            map[string]string
	MaxVersion    uint64
	LastGCVersion uint64
}

// FetchClusterState returns a best-effort snapshot of every known peer's
// versioned KV table, for the caller to reconcile; it is not a globally
// agreed view (gossip is eventually consistent, not linearizable).
func (c *Cluster) FetchClusterState(clusterID string) ([]NodeStateSnapshot, error) {
	if clusterID != c.clusterID {
		return nil, fmt.Errorf("%w: got %q want %q", ErrClusterIDMismatch, clusterID, c.clusterID)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]NodeStateSnapshot, 0, len(c.states))
	for nodeID, st := range c.states {
		snap := st.snapshot()
		kv := make(map[string]string, len(snap))
		for k, v := range snap {
			if !v.Tombstone {
				kv[k] = v.Value
			}
		}
		out = append(out, NodeStateSnapshot{
			ChitchatID:    nodeID,
			KV:            kv,
			MaxVersion:    st.maxVersion,
			LastGCVersion: st.lastGCVersion,
		})
	}
	return out, nil
}

// ChangeStream registers a new subscriber channel that receives every
// ClusterChange from this point forward. The channel is buffered; slow
// consumers drop changes rather than block gossip.
func (c *Cluster) ChangeStream() <-chan model.ClusterChange {
	ch := make(chan model.ClusterChange, 64)
	c.changeMu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.changeMu.Unlock()
	return ch
}

func (c *Cluster) publishChange(kind model.ChangeKind, nodeID string) {
	c.mu.RLock()
	addr := c.peerAddrs[nodeID]
	ready := false
	if st, ok := c.states[nodeID]; ok {
		v, _ := st.get(ReadinessKey)
		ready = v == "true"
	}
	c.mu.RUnlock()

	change := model.ClusterChange{
		Kind: kind,
		Node: model.ClusterNode{
			ChitchatID: model.ChitchatId{NodeId: model.NodeId(nodeID)},
			GRPCAddr:   addr,
			IsReady:    ready,
			IsSelf:     nodeID == c.selfNodeID,
		},
	}
	c.changeMu.Lock()
	defer c.changeMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- change:
		default:
		}
	}
}

func (c *Cluster) refreshMetrics() {
	if c.metrics == nil {
		return
	}
	c.mu.RLock()
	var live, ready, zombie, dead int64
	var stateBytes int64
	for nodeID, st := range c.states {
		phi := c.detector.phi(nodeID)
		switch suspicionFromPhi(phi) {
		case Live:
			live++
		case Zombie:
			zombie++
		case Dead:
			dead++
		}
		snap := st.snapshot()
		for k, v := range snap {
			stateBytes += int64(len(k) + len(v.Value) + 16)
		}
		if v, _ := st.get(ReadinessKey); v == "true" {
			ready++
		}
	}
	c.mu.RUnlock()

	c.metrics.live.Set(live)
	c.metrics.ready.Set(ready)
	c.metrics.zombie.Set(zombie)
	c.metrics.dead.Set(dead)
	c.metrics.stateBytes.Set(stateBytes)
}
