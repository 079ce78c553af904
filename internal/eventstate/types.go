// Package eventstate defines the wire-internal envelope pipeline stages use
// to hand derived semantic events to the storage mapper. Payloads are
// JSON-encoded inside the envelope so schema evolves independently per
// stage; forward-compatible consumers ignore unknown fields.
package eventstate

import "encoding/json"

// Kind tags which payload shape EventState.Payload carries.
type Kind string

const (
	KindGraph  Kind = "graph"
	KindVector Kind = "vector"
)

// State is the envelope emitted by an Engine and consumed by the storage
// mapper. Timestamp is best-effort non-decreasing within one pipeline run;
// clock regressions are tolerated, never fatal; nothing checks or logs them.
type State struct {
	Kind      Kind   `json:"kind"`
	File      string `json:"file"`
	DocSource string `json:"doc_source"`
	Timestamp uint64 `json:"timestamp"`
	ImageID   string `json:"image_id,omitempty"`
	Payload   string `json:"payload"`
}

// SemanticKnowledgePayload is one subject-predicate-object triple derived
// from a document window, optionally anchored to an image.
type SemanticKnowledgePayload struct {
	Subject       string `json:"subject"`
	SubjectType   string `json:"subject_type"`
	Object        string `json:"object"`
	ObjectType    string `json:"object_type"`
	Predicate     string `json:"predicate"`
	PredicateType string `json:"predicate_type"`
	Sentence      string `json:"sentence"`
	EventID       string `json:"event_id"`
	SourceID      string `json:"source_id"`
	ImageID       string `json:"image_id,omitempty"`
	Blob          string `json:"blob,omitempty"`
}

// VectorPayload is an embedding derived from the same document window,
// sharing EventID with the triple it can be joined against.
type VectorPayload struct {
	EventID    string    `json:"event_id"`
	Embeddings []float32 `json:"embeddings"`
	Score      float32   `json:"score"`
}

// DecodeGraph unmarshals s.Payload as a SemanticKnowledgePayload. Callers
// must first check s.Kind == KindGraph.
func (s State) DecodeGraph() (SemanticKnowledgePayload, error) {
	var p SemanticKnowledgePayload
	err := json.Unmarshal([]byte(s.Payload), &p)
	return p, err
}

// DecodeVector unmarshals s.Payload as a VectorPayload. Callers must first
// check s.Kind == KindVector.
func (s State) DecodeVector() (VectorPayload, error) {
	var p VectorPayload
	err := json.Unmarshal([]byte(s.Payload), &p)
	return p, err
}

// NewGraph builds a graph EventState, JSON-encoding p into the payload.
func NewGraph(file, docSource string, timestamp uint64, p SemanticKnowledgePayload) (State, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return State{}, err
	}
	return State{
		Kind:      KindGraph,
		File:      file,
		DocSource: docSource,
		Timestamp: timestamp,
		ImageID:   p.ImageID,
		Payload:   string(data),
	}, nil
}

// NewVector builds a vector EventState, JSON-encoding p into the payload.
func NewVector(file, docSource string, timestamp uint64, p VectorPayload) (State, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return State{}, err
	}
	return State{
		Kind:      KindVector,
		File:      file,
		DocSource: docSource,
		Timestamp: timestamp,
		Payload:   string(data),
	}, nil
}

// ToCypherQuery renders the single-statement MERGE used by the Neo4j graph
// backend to upsert both endpoint nodes and the relationship between them.
// Ported from the original engine's SemanticKnowledgePayload::to_cypher_query.
func (p SemanticKnowledgePayload) ToCypherQuery() string {
	return "MERGE (n1:`" + p.SubjectType + "` {name: $entity1}) " +
		"MERGE (n2:`" + p.ObjectType + "` {name: $entity2}) " +
		"MERGE (n1)-[:`" + p.Predicate + "` {sentence: $sentence, document_id: $document_id, " +
		"document_source: $document_source, predicate_type: $predicate_type, image_id: $image_id}]->(n2)"
}
