package ingestpipe

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/wessley-ai/querent-node/pkg/fn"
)

// ErrUnsupportedFormat is returned by the router when no ingestor is
// registered for a requested extension, or when it maps to a stub.
var ErrUnsupportedFormat = errors.New("unsupported ingestion format")

var whitespaceRE = regexp.MustCompile(`\s+`)

// RegexCleanup strips control characters other than tab and newline and
// drops lines left empty; punctuation is left as it is.
var RegexCleanup Processor = func(_ context.Context, t IngestedTokens) fn.Result[IngestedTokens] {
	if t.IsSentinel() {
		return fn.Ok(t)
	}
	cleaned := make([]string, 0, len(t.Data))
	for _, line := range t.Data {
		line = strings.Map(func(r rune) rune {
			if r == '\t' || r == '\n' || r >= 0x20 {
				return r
			}
			return -1
		}, line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	t.Data = cleaned
	return fn.Ok(t)
}

// WhitespaceCollapse collapses runs of whitespace into a single space.
var WhitespaceCollapse Processor = func(_ context.Context, t IngestedTokens) fn.Result[IngestedTokens] {
	if t.IsSentinel() {
		return fn.Ok(t)
	}
	collapsed := make([]string, len(t.Data))
	for i, line := range t.Data {
		collapsed[i] = strings.TrimSpace(whitespaceRE.ReplaceAllString(line, " "))
	}
	t.Data = collapsed
	return fn.Ok(t)
}

// NewLengthFilter drops lines shorter than minLen runes; it exists as a
// constructor (rather than a package-level var) because the threshold is
// configuration-driven per pipeline.
func NewLengthFilter(minLen int) Processor {
	return func(_ context.Context, t IngestedTokens) fn.Result[IngestedTokens] {
		if t.IsSentinel() {
			return fn.Ok(t)
		}
		kept := make([]string, 0, len(t.Data))
		for _, line := range t.Data {
			if len([]rune(line)) >= minLen {
				kept = append(kept, line)
			}
		}
		t.Data = kept
		return fn.Ok(t)
	}
}
