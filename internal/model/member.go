package model

// SemanticCPUCapacityKey is the versioned gossip key a node uses to
// advertise its pipeline CPU budget.
const SemanticCPUCapacityKey = "semantic_cpu_capacity"

// ReadinessKey is the versioned gossip key a node uses to advertise
// readiness. Setters are idempotent.
const ReadinessKey = "is_ready"

// ClusterMember is the self-description a node advertises into the gossip
// key-value store.
type ClusterMember struct {
	NodeId              NodeId
	GenerationId        GenerationId
	IsReady             bool
	GossipAdvertiseAddr string
	GRPCAdvertiseAddr   string
	CPUCapacityMillis   CpuCapacity
}
