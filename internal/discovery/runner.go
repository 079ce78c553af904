package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/wessley-ai/querent-node/internal/storage"
	"github.com/wessley-ai/querent-node/internal/validate"
)

// Request is one discovery call: an embedded query plus pagination and
// session scoping.
type Request struct {
	SessionID    string
	CollectionID string
	Query        []float32
	QueryText    string
	Offset       int
	Limit        int
}

// Runner executes discovery requests against a wired vector/index backend
// pair. Run returns the full result set; RunStream computes the same full
// set and then pushes each result onto a channel, for a streaming RPC
// handler.
type Runner interface {
	Run(ctx context.Context, req Request) ([]storage.DocumentPayload, error)
	RunStream(ctx context.Context, req Request, out chan<- storage.DocumentPayload) error
}

// storageRunner is the concrete Runner backed by one vector backend and
// one index backend, as resolved by the pipeline's storage.Mapper.
type storageRunner struct {
	vec  storage.VectorSearcher
	idx  storage.IndexLookup
	sess *Store
}

// NewRunner builds a Runner over vec/idx, recording a Turn per query in
// sess when sess is non-nil.
func NewRunner(vec storage.VectorSearcher, idx storage.IndexLookup, sess *Store) Runner {
	return &storageRunner{vec: vec, idx: idx, sess: sess}
}

func (r *storageRunner) Run(ctx context.Context, req Request) ([]storage.DocumentPayload, error) {
	if err := r.validate(req); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	results, err := storage.Discover(ctx, r.vec, r.idx, req.SessionID, req.CollectionID, req.Query, req.Offset, limit)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	r.recordTurn(req, results)
	return results, nil
}

func (r *storageRunner) RunStream(ctx context.Context, req Request, out chan<- storage.DocumentPayload) error {
	results, err := r.Run(ctx, req)
	if err != nil {
		return err
	}
	for _, doc := range results {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- doc:
		}
	}
	return nil
}

func (r *storageRunner) validate(req Request) error {
	if req.QueryText != "" {
		if err := validate.Query(req.QueryText); err != nil {
			return err
		}
	}
	if req.Limit > 0 {
		if err := validate.TopK(req.Limit); err != nil {
			return err
		}
	}
	return validate.Required("collection_id", req.CollectionID)
}

func (r *storageRunner) recordTurn(req Request, results []storage.DocumentPayload) {
	if r.sess == nil || req.SessionID == "" {
		return
	}
	ids := make([]string, len(results))
	for i, d := range results {
		ids[i] = d.DocID
	}
	r.sess.Get(req.SessionID).Record(Turn{Query: req.QueryText, Results: ids, Timestamp: time.Now()})
}
