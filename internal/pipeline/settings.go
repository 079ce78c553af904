// Package pipeline wires one source->ingestor->engine->storage-mapper
// topology per SemanticPipelineRequest as a supervised actor tree, with
// bounded exponential-backoff restarts on TriggerMsg (a failed run is
// logged, not restarted on its own) and exposed IndexingStatistics.
// Grounded in the teacher's engine/ingest NATS consumer restart idiom,
// generalized from a fixed retry-then-DLQ policy into the spec's bounded
// backoff-then-Failure policy, and built on internal/actor rather than a
// bare goroutine+channel loop.
package pipeline

import (
	"github.com/wessley-ai/querent-node/internal/eventstate"
	"github.com/wessley-ai/querent-node/internal/storage"
)

// Settings configures one pipeline instance.
type Settings struct {
	PipelineID     string
	EventStorages  map[eventstate.Kind][]storage.Storage
	IndexStorages  []storage.Storage
	SecretStorage  storage.Storage
	SourceConfigs  []SourceConfig
	EngineConfig   EngineConfig
	MaxRestarts    int // bounded exponential backoff attempts; default 3
}

// SourceConfig names one EventSource to read from; the concrete adaptor
// (filesystem, S3, ...) lives outside this module, behind the EventSource
// capability.
type SourceConfig struct {
	Kind string
	URI  string
}

// EngineConfig selects and parameterizes the Engine used by this pipeline.
type EngineConfig struct {
	Name string
}

// DefaultMaxRestarts is used when Settings.MaxRestarts is unset.
const DefaultMaxRestarts = 3
