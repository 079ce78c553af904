package pipeline

import (
	"sync/atomic"

	"github.com/wessley-ai/querent-node/internal/storage"
)

// IndexingStatistics is the counters surface exposed by a running
// pipeline: ObservePipeline / Healthz read from this.
type IndexingStatistics struct {
	TokensIngested  atomic.Uint64
	EventsGraph     atomic.Uint64
	EventsVector    atomic.Uint64
	RestartCount    atomic.Uint64

	mapperCounters *storage.Counters
}

// Snapshot is the plain-value copy returned over RPC/REST.
type Snapshot struct {
	TokensIngested uint64
	EventsGraph    uint64
	EventsVector   uint64
	RestartCount   uint64
	BackendOK      map[string]uint64
	BackendErr     map[string]uint64
}

func (s *IndexingStatistics) Snapshot() Snapshot {
	snap := Snapshot{
		TokensIngested: s.TokensIngested.Load(),
		EventsGraph:    s.EventsGraph.Load(),
		EventsVector:   s.EventsVector.Load(),
		RestartCount:   s.RestartCount.Load(),
	}
	if s.mapperCounters != nil {
		mc := s.mapperCounters.Snapshot()
		snap.BackendOK = mc.BackendOK
		snap.BackendErr = mc.BackendErr
	}
	return snap
}
