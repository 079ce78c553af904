package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/wessley-ai/querent-node/internal/ingestpipe"
)

// EventSource streams CollectedBytes for a configured input; concrete
// adaptors for S3/GCS/Azure/Jira/Slack/Notion/email/... live outside this
// module. This package ships two reference sources (in-memory and
// filesystem) so a pipeline can be built and driven end to end.
type EventSource interface {
	// Stream sends one CollectedBytes batch per source chunk followed by a
	// final batch with EOF true, then returns; it does not close out, the
	// caller does.
	Stream(ctx context.Context, out chan<- ingestpipe.CollectedBytes) error
}

// MemorySource replays a fixed in-memory document; used in tests and as
// the simplest possible EventSource.
type MemorySource struct {
	File      string
	DocSource string
	SourceID  string
	Content   string
}

func (m MemorySource) Stream(ctx context.Context, out chan<- ingestpipe.CollectedBytes) error {
	cb := ingestpipe.CollectedBytes{
		Data:      bytes.NewReader([]byte(m.Content)),
		File:      m.File,
		Extension: extensionOf(m.File),
		DocSource: m.DocSource,
		Size:      len(m.Content),
		SourceID:  m.SourceID,
	}
	select {
	case out <- cb:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case out <- ingestpipe.CollectedBytes{File: m.File, Extension: cb.Extension, EOF: true, DocSource: m.DocSource, SourceID: m.SourceID}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// FilesystemSource walks Root and streams every regular file it finds, one
// CollectedBytes per file, each followed by its own EOF batch.
type FilesystemSource struct {
	Root      string
	DocSource string
}

func (f FilesystemSource) Stream(ctx context.Context, out chan<- ingestpipe.CollectedBytes) error {
	return filepath.Walk(f.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sourceID := path
		cb := ingestpipe.CollectedBytes{
			Data:      bytes.NewReader(data),
			File:      path,
			Extension: extensionOf(path),
			DocSource: f.DocSource,
			Size:      len(data),
			SourceID:  sourceID,
		}
		select {
		case out <- cb:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case out <- ingestpipe.CollectedBytes{File: path, Extension: cb.Extension, EOF: true, DocSource: f.DocSource, SourceID: sourceID}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

func extensionOf(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "txt"
	}
	switch ext {
	case "htm":
		return "html"
	case "go", "py", "js", "ts", "rs", "java", "c", "cpp":
		return "code"
	default:
		return ext
	}
}
