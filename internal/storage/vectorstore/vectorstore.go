// Package vectorstore is the Qdrant-backed Storage implementation, scoping
// every insert and search by collection id. Adapted from the teacher's
// engine/semantic VectorStore, replacing its fixed single-collection chunk
// payload with EventState VectorPayload records keyed by event id so they
// can be joined back to a graph/index triple.
package vectorstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wessley-ai/querent-node/internal/storage"
)

// Store is a vector Storage backend over one Qdrant instance. Collections
// are created on demand per collection id the first time it is seen.
type Store struct {
	name        string
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	dims        int
}

// Dial connects to Qdrant at addr. dims is the embedding width used when a
// collection must be created.
func Dial(name, addr string, dims int) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, &storage.Error{Backend: name, Kind: storage.Connection, Err: err}
	}
	return &Store{
		name:        name,
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		dims:        dims,
	}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

var _ storage.Storage = (*Store)(nil)
var _ storage.VectorSearcher = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) CheckConnectivity(ctx context.Context) error {
	if _, err := s.collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		return &storage.Error{Backend: s.name, Kind: storage.Connection, Err: err}
	}
	return nil
}

func (s *Store) ensureCollection(ctx context.Context, collectionID string) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return &storage.Error{Backend: s.name, Kind: storage.CollectionCreation, Err: err}
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == collectionID {
			return nil
		}
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: collectionID,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: uint64(s.dims), Distance: pb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return &storage.Error{Backend: s.name, Kind: storage.CollectionBuilding, Err: err}
	}
	return nil
}

// InsertVector upserts items into collectionID, creating the collection on
// first use.
func (s *Store) InsertVector(ctx context.Context, collectionID string, items []storage.VectorItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, collectionID); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(items))
	for i, item := range items {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: item.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: item.Payload.Embeddings}}},
			Payload: map[string]*pb.Value{
				"event_id": {Kind: &pb.Value_StringValue{StringValue: item.Payload.EventID}},
				"score":    {Kind: &pb.Value_DoubleValue{DoubleValue: float64(item.Payload.Score)}},
			},
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{CollectionName: collectionID, Wait: &wait, Points: points})
	if err != nil {
		return &storage.Error{Backend: s.name, Kind: storage.Insertion, Err: err}
	}
	return nil
}

// SearchTopK implements storage.VectorSearcher for the discovery read path.
func (s *Store) SearchTopK(ctx context.Context, collectionID string, query []float32, topK int) ([]storage.ScoredVector, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collectionID,
		Vector:         query,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, &storage.Error{Backend: s.name, Kind: storage.Database, Err: err}
	}
	out := make([]storage.ScoredVector, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		eventID := r.GetId().GetUuid()
		if v, ok := r.GetPayload()["event_id"]; ok {
			eventID = v.GetStringValue()
		}
		out = append(out, storage.ScoredVector{EventID: eventID, Similarity: r.GetScore()})
	}
	return out, nil
}

func (s *Store) InsertGraph(context.Context, []storage.GraphItem) error {
	return &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("vectorstore: graph insertion not supported")}
}

func (s *Store) IndexKnowledge(context.Context, []storage.GraphItem) error {
	return &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("vectorstore: index knowledge not supported")}
}

func (s *Store) StoreKV(context.Context, string, string) error {
	return &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("vectorstore: kv storage not supported")}
}

func (s *Store) GetKV(context.Context, string) (string, bool, error) {
	return "", false, &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("vectorstore: kv storage not supported")}
}
