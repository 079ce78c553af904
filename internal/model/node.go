package model

import "fmt"

// ClusterNode is the local, owned view of a peer as long as it stays
// visible in gossip. It is immutable; membership updates replace it rather
// than mutate it in place, so a ClusterNode handed to a consumer never
// changes under their feet.
type ClusterNode struct {
	ChitchatID      ChitchatId
	GRPCAddr        string
	CPUCapacity     CpuCapacity
	IsReady         bool
	IsSelf          bool
}

func (n ClusterNode) NodeId() NodeId { return n.ChitchatID.NodeId }

func (n ClusterNode) String() string {
	return fmt.Sprintf("ClusterNode{node_id=%s, ready=%t, self=%t}", n.ChitchatID.NodeId, n.IsReady, n.IsSelf)
}
