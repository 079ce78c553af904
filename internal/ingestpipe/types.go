// Package ingestpipe accumulates raw CollectedBytes into IngestedTokens,
// routing by file extension to a format-specific ingestor and applying the
// configured processor chain. Adapted from the scraped-post pipeline shape
// in the teacher's engine/ingest package, generalized from a fixed
// scrape->embed chain to an extension-routed ingestor registry.
package ingestpipe

import "io"

// CollectedBytes is one chunk (or terminal sentinel, when EOF is true) of
// raw source bytes produced by an EventSource.
type CollectedBytes struct {
	Data      io.Reader
	File      string
	Extension string
	EOF       bool
	DocSource string
	Size      int
	SourceID  string
}

// IngestedTokens is a chunk or terminal sentinel of decoded text produced by
// an Ingestor. An IngestedTokens with an empty Data slice marks the end of
// one file; engines use it to flush per-file state.
type IngestedTokens struct {
	Data          []string
	File          string
	DocSource     string
	IsTokenStream bool
	SourceID      string
}

// IsSentinel reports whether t marks the end of a file's token stream.
func (t IngestedTokens) IsSentinel() bool { return len(t.Data) == 0 }
