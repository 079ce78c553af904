// Package graphstore is the Neo4j-backed Storage implementation: one
// logical transaction per InsertGraph/IndexKnowledge batch, rolling back
// only that backend on failure. Adapted from the teacher's engine/graph
// GraphStore, replacing its Component/Edge vehicle-wiring model with
// SemanticKnowledgePayload triple upserts driven by ToCypherQuery. The
// read side (LookupByEventID) goes through pkg/repo's generic Neo4jRepo
// rather than a hand-rolled session/Run call, the way the teacher's own
// higher-level stores sit on top of pkg/repo.
package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/wessley-ai/querent-node/internal/eventstate"
	"github.com/wessley-ai/querent-node/internal/storage"
	"github.com/wessley-ai/querent-node/pkg/repo"
)

// indexedLabel is the node label IndexKnowledge tags and LookupByEventID
// reads back through repoLookup.
const indexedLabel = "Indexed"

// Store is a graph/index Storage backend over one Neo4j database.
type Store struct {
	name       string
	driver     neo4j.DriverWithContext
	repoLookup *repo.Neo4jRepo[storage.GraphItem, string]
}

// New wraps an already-configured Neo4j driver under the given backend
// name (used in counters and log lines).
func New(name string, driver neo4j.DriverWithContext) *Store {
	return &Store{
		name:   name,
		driver: driver,
		repoLookup: repo.NewNeo4jRepo[storage.GraphItem, string](
			driver,
			indexedLabel,
			graphItemToMap,
			graphItemFromRecord,
			repo.WithIDKey[storage.GraphItem, string]("event_id"),
		),
	}
}

func graphItemToMap(item storage.GraphItem) map[string]any {
	p := item.Payload
	return map[string]any{
		"event_id":     item.ID,
		"subject":      p.Subject,
		"subject_type": p.SubjectType,
		"object":       p.Object,
		"object_type":  p.ObjectType,
		"predicate":    p.Predicate,
		"sentence":     p.Sentence,
		"source_id":    p.SourceID,
		"image_id":     p.ImageID,
	}
}

func graphItemFromRecord(record *neo4j.Record) (storage.GraphItem, error) {
	raw, found := record.Get("n")
	if !found {
		return storage.GraphItem{}, fmt.Errorf("graphstore: record missing node")
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return storage.GraphItem{}, fmt.Errorf("graphstore: unexpected node type")
	}
	eventID := strProp(node.Props, "event_id")
	return storage.GraphItem{
		ID: eventID,
		Payload: eventstate.SemanticKnowledgePayload{
			Subject:     strProp(node.Props, "subject"),
			SubjectType: strProp(node.Props, "subject_type"),
			Object:      strProp(node.Props, "object"),
			ObjectType:  strProp(node.Props, "object_type"),
			Predicate:   strProp(node.Props, "predicate"),
			Sentence:    strProp(node.Props, "sentence"),
			EventID:     eventID,
			SourceID:    strProp(node.Props, "source_id"),
			ImageID:     strProp(node.Props, "image_id"),
		},
	}, nil
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) CheckConnectivity(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return &storage.Error{Backend: s.name, Kind: storage.Connection, Err: err}
	}
	return nil
}

// InsertGraph upserts every triple in items inside a single managed write
// transaction; a failure rolls back only this backend's batch.
func (s *Store) InsertGraph(ctx context.Context, items []storage.GraphItem) error {
	if len(items) == 0 {
		return nil
	}
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, item := range items {
			p := item.Payload
			_, err := tx.Run(ctx, p.ToCypherQuery(), map[string]any{
				"entity1":         p.Subject,
				"entity2":         p.Object,
				"sentence":        p.Sentence,
				"document_id":     p.EventID,
				"document_source": p.SourceID,
				"predicate_type":  p.PredicateType,
				"image_id":        p.ImageID,
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return &storage.Error{Backend: s.name, Kind: storage.Insertion, Err: err}
	}
	return nil
}

// IndexKnowledge treats the same triples as a searchable row, tagging the
// node with an :Indexed label so LookupByEventID can select on it cheaply.
func (s *Store) IndexKnowledge(ctx context.Context, items []storage.GraphItem) error {
	if len(items) == 0 {
		return nil
	}
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, item := range items {
			p := item.Payload
			cypher := `MERGE (e:Indexed {event_id: $event_id}) SET e += $props`
			_, err := tx.Run(ctx, cypher, map[string]any{
				"event_id": p.EventID,
				"props": map[string]any{
					"subject":        p.Subject,
					"subject_type":   p.SubjectType,
					"object":         p.Object,
					"object_type":    p.ObjectType,
					"predicate":      p.Predicate,
					"sentence":       p.Sentence,
					"source_id":      p.SourceID,
					"image_id":       p.ImageID,
				},
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return &storage.Error{Backend: s.name, Kind: storage.Insertion, Err: err}
	}
	return nil
}

// LookupByEventID resolves an indexed triple by its event id, implementing
// storage.IndexLookup for the discovery read path.
func (s *Store) LookupByEventID(ctx context.Context, eventID string) (storage.GraphItem, bool, error) {
	item, err := s.repoLookup.Get(ctx, eventID)
	if err != nil {
		// Neo4jRepo.Get surfaces a missing node as "<label> not found"
		// rather than a typed sentinel; anything else is a real backend
		// failure (transport, auth, malformed node).
		if err.Error() == fmt.Sprintf("%s not found", indexedLabel) {
			return storage.GraphItem{}, false, nil
		}
		return storage.GraphItem{}, false, &storage.Error{Backend: s.name, Kind: storage.Database, Err: err}
	}
	return item, true, nil
}

// InsertVector is unsupported on a graph backend; callers never route
// Vector events here (see internal/storage.Mapper routing by EventKind).
func (s *Store) InsertVector(context.Context, string, []storage.VectorItem) error {
	return &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("graphstore: vector insertion not supported")}
}

func (s *Store) StoreKV(context.Context, string, string) error {
	return &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("graphstore: kv storage not supported")}
}

func (s *Store) GetKV(context.Context, string) (string, bool, error) {
	return "", false, &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("graphstore: kv storage not supported")}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
