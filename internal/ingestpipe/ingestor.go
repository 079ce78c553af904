package ingestpipe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/wessley-ai/querent-node/pkg/fn"
)

// Ingestor accumulates CollectedBytes for one file until EOF, decodes them
// into a stream of IngestedTokens, and emits a terminal sentinel.
type Ingestor interface {
	// Format identifies the extension this ingestor handles ("txt", "json", ...).
	Format() string
	// Ingest consumes the accumulated batch and returns the decoded tokens,
	// not including the terminal sentinel (the router appends it).
	Ingest(ctx context.Context, batch []CollectedBytes) ([]IngestedTokens, error)
}

// Processor transforms one IngestedTokens value; errors short-circuit the
// chain and are surfaced to the pipeline supervisor.
type Processor = fn.Stage[IngestedTokens, IngestedTokens]

// Router dispatches accumulated CollectedBytes batches to the Ingestor
// registered for their extension, then runs the result through the
// configured Processor chain.
type Router struct {
	ingestors  map[string]Ingestor
	processors []Processor
}

// NewRouter builds a router with the given processor chain, pre-registering
// the in-scope format decoders and unimplemented stubs for the remaining
// formats named by the storage configuration surface.
func NewRouter(processors ...Processor) *Router {
	r := &Router{
		ingestors:  make(map[string]Ingestor),
		processors: processors,
	}
	for _, ing := range []Ingestor{
		textIngestor{}, jsonIngestor{}, htmlIngestor{}, codeIngestor{},
	} {
		r.Register(ing)
	}
	for _, format := range []string{"pdf", "image", "audio", "email", "pptx", "xlsx", "doc"} {
		r.Register(unimplementedIngestor{format: format})
	}
	return r
}

// Register adds or replaces the ingestor for its Format().
func (r *Router) Register(ing Ingestor) { r.ingestors[ing.Format()] = ing }

// Route accumulates batch (which must all share one extension and File) and
// returns the decoded token chunks followed by the terminal sentinel.
func (r *Router) Route(ctx context.Context, extension string, batch []CollectedBytes) ([]IngestedTokens, error) {
	ing, ok := r.ingestors[extension]
	if !ok {
		return nil, fmt.Errorf("ingestpipe: %w: no ingestor registered for extension %q", ErrUnsupportedFormat, extension)
	}
	tokens, err := ing.Ingest(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("ingestpipe: ingest %s: %w", extension, err)
	}

	out := make([]IngestedTokens, 0, len(tokens)+1)
	for _, t := range tokens {
		processed, err := r.process(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, processed)
	}

	file, docSource, sourceID := "", "", ""
	if len(batch) > 0 {
		file, docSource, sourceID = batch[0].File, batch[0].DocSource, batch[0].SourceID
	}
	out = append(out, IngestedTokens{File: file, DocSource: docSource, SourceID: sourceID})
	return out, nil
}

func (r *Router) process(ctx context.Context, t IngestedTokens) (IngestedTokens, error) {
	result := fn.Ok(t)
	for _, p := range r.processors {
		if result.IsErr() {
			break
		}
		v, _ := result.Unwrap()
		result = p(ctx, v)
	}
	return result.Unwrap()
}

// --- concrete ingestors ---

type textIngestor struct{}

func (textIngestor) Format() string { return "txt" }

func (textIngestor) Ingest(_ context.Context, batch []CollectedBytes) ([]IngestedTokens, error) {
	var buf bytes.Buffer
	var file, docSource, sourceID string
	for _, cb := range batch {
		if cb.Data != nil {
			if _, err := buf.ReadFrom(cb.Data); err != nil {
				return nil, err
			}
		}
		file, docSource, sourceID = cb.File, cb.DocSource, cb.SourceID
	}
	lines := splitNonEmptyLines(buf.String())
	return []IngestedTokens{{Data: lines, File: file, DocSource: docSource, SourceID: sourceID, IsTokenStream: true}}, nil
}

type jsonIngestor struct{}

func (jsonIngestor) Format() string { return "json" }

func (jsonIngestor) Ingest(_ context.Context, batch []CollectedBytes) ([]IngestedTokens, error) {
	var buf bytes.Buffer
	var file, docSource, sourceID string
	for _, cb := range batch {
		if cb.Data != nil {
			if _, err := buf.ReadFrom(cb.Data); err != nil {
				return nil, err
			}
		}
		file, docSource, sourceID = cb.File, cb.DocSource, cb.SourceID
	}
	var doc any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	flat := flattenJSONStrings(doc, nil)
	return []IngestedTokens{{Data: flat, File: file, DocSource: docSource, SourceID: sourceID, IsTokenStream: true}}, nil
}

var htmlTagRE = regexp.MustCompile(`<[^>]*>`)

type htmlIngestor struct{}

func (htmlIngestor) Format() string { return "html" }

func (htmlIngestor) Ingest(_ context.Context, batch []CollectedBytes) ([]IngestedTokens, error) {
	var buf bytes.Buffer
	var file, docSource, sourceID string
	for _, cb := range batch {
		if cb.Data != nil {
			if _, err := buf.ReadFrom(cb.Data); err != nil {
				return nil, err
			}
		}
		file, docSource, sourceID = cb.File, cb.DocSource, cb.SourceID
	}
	stripped := htmlTagRE.ReplaceAllString(buf.String(), " ")
	lines := splitNonEmptyLines(stripped)
	return []IngestedTokens{{Data: lines, File: file, DocSource: docSource, SourceID: sourceID, IsTokenStream: true}}, nil
}

type codeIngestor struct{}

func (codeIngestor) Format() string { return "code" }

func (codeIngestor) Ingest(_ context.Context, batch []CollectedBytes) ([]IngestedTokens, error) {
	var buf bytes.Buffer
	var file, docSource, sourceID string
	for _, cb := range batch {
		if cb.Data != nil {
			if _, err := buf.ReadFrom(cb.Data); err != nil {
				return nil, err
			}
		}
		file, docSource, sourceID = cb.File, cb.DocSource, cb.SourceID
	}
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(buf.String()))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t")
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return []IngestedTokens{{Data: lines, File: file, DocSource: docSource, SourceID: sourceID, IsTokenStream: true}}, nil
}

// unimplementedIngestor stands in for out-of-scope formats named in the
// storage/source configuration surface; routing to one always fails with an
// error wrapping ErrUnsupportedFormat rather than panicking or silently
// dropping data.
type unimplementedIngestor struct{ format string }

func (u unimplementedIngestor) Format() string { return u.format }

func (u unimplementedIngestor) Ingest(context.Context, []CollectedBytes) ([]IngestedTokens, error) {
	return nil, fmt.Errorf("ingestpipe: %w: %s ingestion not implemented in this node", ErrUnsupportedFormat, u.format)
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func flattenJSONStrings(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	case []any:
		for _, e := range t {
			out = flattenJSONStrings(e, out)
		}
	case map[string]any:
		for _, e := range t {
			out = flattenJSONStrings(e, out)
		}
	}
	return out
}
