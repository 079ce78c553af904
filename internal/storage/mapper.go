package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wessley-ai/querent-node/internal/eventstate"
	"github.com/wessley-ai/querent-node/pkg/resilience"
)

// Counters tallies per-kind events and per-backend outcomes for one
// pipeline's StorageMapper, read by IndexingStatistics.
type Counters struct {
	mu           sync.Mutex
	EventsGraph  uint64
	EventsVector uint64
	BackendOK    map[string]uint64
	BackendErr   map[string]uint64
}

func newCounters() *Counters {
	return &Counters{BackendOK: make(map[string]uint64), BackendErr: make(map[string]uint64)}
}

func (c *Counters) recordOK(backend string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BackendOK[backend]++
}

func (c *Counters) recordErr(backend string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BackendErr[backend]++
}

// Snapshot returns a point-in-time copy of the counters.
func (c *Counters) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := make(map[string]uint64, len(c.BackendOK))
	for k, v := range c.BackendOK {
		ok[k] = v
	}
	errs := make(map[string]uint64, len(c.BackendErr))
	for k, v := range c.BackendErr {
		errs[k] = v
	}
	return Counters{
		EventsGraph:  c.EventsGraph,
		EventsVector: c.EventsVector,
		BackendOK:    ok,
		BackendErr:   errs,
	}
}

// Mapper holds the per-EventKind backend registrations and fans out each
// EventState concurrently with per-backend error isolation: a failing
// backend never cancels its siblings. Backends are kept in registration
// order, but each write runs in its own goroutine, so the order in which
// backends are called is not defined.
type Mapper struct {
	eventStorages map[eventstate.Kind][]Storage
	indexStorages []Storage
	breakers      map[string]*resilience.Breaker
	counters      *Counters
	log           *slog.Logger
}

// NewMapper builds a Mapper. eventStorages maps each EventKind to its
// registered backends in registration order; indexStorages additionally
// receive every Graph event in structured triple form.
func NewMapper(eventStorages map[eventstate.Kind][]Storage, indexStorages []Storage, log *slog.Logger) *Mapper {
	if log == nil {
		log = slog.Default()
	}
	m := &Mapper{
		eventStorages: eventStorages,
		indexStorages: indexStorages,
		breakers:      make(map[string]*resilience.Breaker),
		counters:      newCounters(),
		log:           log,
	}
	for _, backends := range eventStorages {
		for _, b := range backends {
			m.breakers[b.Name()] = resilience.NewBreaker(resilience.DefaultBreakerOpts)
		}
	}
	for _, b := range indexStorages {
		if _, ok := m.breakers[b.Name()]; !ok {
			m.breakers[b.Name()] = resilience.NewBreaker(resilience.DefaultBreakerOpts)
		}
	}
	return m
}

// Counters returns the mapper's live counters (safe to Snapshot concurrently).
func (m *Mapper) Counters() *Counters { return m.counters }

// Dispatch routes one EventState to every applicable backend concurrently.
// Graph events additionally go to every index backend. Per-backend errors
// are logged and counted; they never short-circuit siblings or the caller.
func (m *Mapper) Dispatch(ctx context.Context, st eventstate.State) error {
	switch st.Kind {
	case eventstate.KindGraph:
		payload, err := st.DecodeGraph()
		if err != nil {
			return err
		}
		m.counters.mu.Lock()
		m.counters.EventsGraph++
		m.counters.mu.Unlock()
		item := GraphItem{ID: payload.EventID, Payload: payload}

		var wg sync.WaitGroup
		for _, b := range m.eventStorages[eventstate.KindGraph] {
			wg.Add(1)
			go func(b Storage) {
				defer wg.Done()
				m.runGraph(ctx, b, item, false)
			}(b)
		}
		for _, b := range m.indexStorages {
			wg.Add(1)
			go func(b Storage) {
				defer wg.Done()
				m.runGraph(ctx, b, item, true)
			}(b)
		}
		wg.Wait()

	case eventstate.KindVector:
		payload, err := st.DecodeVector()
		if err != nil {
			return err
		}
		m.counters.mu.Lock()
		m.counters.EventsVector++
		m.counters.mu.Unlock()
		item := VectorItem{ID: payload.EventID, Payload: payload}
		collectionID := st.DocSource

		var wg sync.WaitGroup
		for _, b := range m.eventStorages[eventstate.KindVector] {
			wg.Add(1)
			go func(b Storage) {
				defer wg.Done()
				m.runVector(ctx, b, collectionID, item)
			}(b)
		}
		wg.Wait()
	}
	return nil
}

func (m *Mapper) runGraph(ctx context.Context, b Storage, item GraphItem, index bool) {
	breaker := m.breakers[b.Name()]
	err := breaker.Call(ctx, func(ctx context.Context) error {
		if index {
			return b.IndexKnowledge(ctx, []GraphItem{item})
		}
		return b.InsertGraph(ctx, []GraphItem{item})
	})
	if err != nil {
		m.counters.recordErr(b.Name())
		m.log.Error("storage: backend write failed", "backend", b.Name(), "error", err, "event_id", item.ID)
		return
	}
	m.counters.recordOK(b.Name())
}

func (m *Mapper) runVector(ctx context.Context, b Storage, collectionID string, item VectorItem) {
	breaker := m.breakers[b.Name()]
	err := breaker.Call(ctx, func(ctx context.Context) error {
		return b.InsertVector(ctx, collectionID, []VectorItem{item})
	})
	if err != nil {
		m.counters.recordErr(b.Name())
		m.log.Error("storage: backend write failed", "backend", b.Name(), "error", err, "event_id", item.ID)
		return
	}
	m.counters.recordOK(b.Name())
}
