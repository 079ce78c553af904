// Package engine consumes IngestedTokens streams and emits EventState
// values. The production engine contract (BERT/RoBERTa/GCN/LLM-backed
// extraction) is external; this package ships one deterministic reference
// engine so the pipeline builds and tests end to end without a model
// dependency, grounded in the rule-based extraction shape the spec
// describes rather than any teacher ML client.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/wessley-ai/querent-node/internal/eventstate"
	"github.com/wessley-ai/querent-node/internal/ingestpipe"
)

// ErrorKind classifies a fatal engine error. A fatal error fails the whole
// pipeline; the supervisor then decides the restart policy.
type ErrorKind int

const (
	EventStream ErrorKind = iota
	Io
	NotFound
	ModelError
)

func (k ErrorKind) String() string {
	switch k {
	case EventStream:
		return "event_stream"
	case Io:
		return "io"
	case NotFound:
		return "not_found"
	case ModelError:
		return "model_error"
	default:
		return "unknown"
	}
}

// Error wraps a fatal engine failure with its Kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("engine: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Engine consumes one IngestedTokens chunk at a time and returns the
// EventState values derived from it. It must be safe to call repeatedly
// with chunks from the same file followed by the terminal sentinel, and
// must be cancellation-safe: Process should check ctx between any
// internal long-running step.
type Engine interface {
	Process(ctx context.Context, tokens ingestpipe.IngestedTokens) ([]eventstate.State, error)
	Name() string
}

// sentencePattern is deliberately simple: it matches one
// "subject: X (Type) predicate: P object: Y (Type)" line, not free text.
var sentencePattern = regexp.MustCompile(`(?:subject|subj):\s*(\S+)\s*\((\w+)\)\s*predicate:\s*(\S+)\s*object:\s*(\S+)\s*\((\w+)\)`)

// ReferenceEngine extracts "subject: X (Type) predicate: P object: Y (Type)"
// triples from tokenized lines via a fixed pattern, and emits a trivial
// bag-of-characters embedding per non-triple line. It stands in for the
// transformer-backed production engine so the rest of the pipeline
// (StorageMapper, discovery read path) has real EventState traffic to
// route and test against.
type ReferenceEngine struct {
	source string // carried into EventState.DocSource when tokens omit it
}

// NewReferenceEngine constructs a ReferenceEngine. source is used only as a
// DocSource fallback when an incoming IngestedTokens leaves it blank.
func NewReferenceEngine(source string) *ReferenceEngine {
	return &ReferenceEngine{source: source}
}

func (e *ReferenceEngine) Name() string { return "reference-engine" }

func (e *ReferenceEngine) Process(ctx context.Context, tokens ingestpipe.IngestedTokens) ([]eventstate.State, error) {
	if tokens.IsSentinel() {
		return nil, nil
	}
	docSource := tokens.DocSource
	if docSource == "" {
		docSource = e.source
	}

	var out []eventstate.State
	for i, line := range tokens.Data {
		select {
		case <-ctx.Done():
			return out, &Error{Kind: EventStream, Err: ctx.Err()}
		default:
		}

		if m := sentencePattern.FindStringSubmatch(line); m != nil {
			payload := eventstate.SemanticKnowledgePayload{
				Subject:     m[1],
				SubjectType: m[2],
				Predicate:   m[3],
				Object:      m[4],
				ObjectType:  m[5],
				Sentence:    line,
				EventID:     uuid.NewString(),
				SourceID:    tokens.SourceID,
			}
			st, err := eventstate.NewGraph(tokens.File, docSource, timestampFor(i), payload)
			if err != nil {
				return out, &Error{Kind: ModelError, Err: err}
			}
			out = append(out, st)
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		vec := eventstate.VectorPayload{
			EventID:    uuid.NewString(),
			Embeddings: bagOfCharsEmbedding(line),
			Score:      1.0,
		}
		st, err := eventstate.NewVector(tokens.File, docSource, timestampFor(i), vec)
		if err != nil {
			return out, &Error{Kind: ModelError, Err: err}
		}
		out = append(out, st)
	}
	return out, nil
}

// bagOfCharsEmbedding produces a tiny, deterministic 8-dimensional vector
// from letter-frequency buckets; a real engine would call an embedding
// model here.
func bagOfCharsEmbedding(s string) []float32 {
	var buckets [8]float32
	total := float32(0)
	for _, r := range strings.ToLower(s) {
		if r < 'a' || r > 'z' {
			continue
		}
		buckets[int(r-'a')%8]++
		total++
	}
	if total == 0 {
		return buckets[:]
	}
	for i := range buckets {
		buckets[i] /= total
	}
	return buckets[:]
}

func timestampFor(ordinal int) uint64 { return uint64(ordinal) }

// ErrNoTriple names the case where a line does not match sentencePattern.
// Nothing in this package returns it: the ReferenceEngine turns
// non-matching lines into vector payloads instead of erroring.
var ErrNoTriple = errors.New("engine: line does not match the reference triple pattern")
