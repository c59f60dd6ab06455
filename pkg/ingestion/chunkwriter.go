package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
)

// chunkWriter buffers enriched tickets in memory and flushes them to
// numbered JSON files once the buffer reaches its configured size, per
// spec.md §4.6 step 4. No in-pack example uses a structured-file or
// object-storage library for this; the original itself writes plain
// chunked JSON files, so this keeps to encoding/json + os rather than
// inventing a dependency the source material never reached for.
type chunkWriter struct {
	dir       string
	prefix    string
	chunkSize int
	buffer    []platform.Record
	written   int
	seq       int
}

// newChunkWriter builds a writer rooted at dir, naming chunk files
// "<prefix>_chunk_NNNN.json" with the prefix "tickets" to match the
// original file layout; newChunkWriterWithPrefix sets another prefix.
func newChunkWriter(dir string, chunkSize int) *chunkWriter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &chunkWriter{dir: dir, prefix: "tickets", chunkSize: chunkSize}
}

func newChunkWriterWithPrefix(dir, prefix string, chunkSize int) *chunkWriter {
	w := newChunkWriter(dir, chunkSize)
	w.prefix = prefix
	return w
}

// Add appends rec to the buffer, flushing if the buffer has reached
// chunkSize.
func (w *chunkWriter) Add(rec platform.Record) error {
	w.buffer = append(w.buffer, rec)
	if len(w.buffer) >= w.chunkSize {
		return w.Flush()
	}
	return nil
}

// Flush writes any buffered records to the next numbered chunk file and
// clears the buffer. A no-op when the buffer is empty.
func (w *chunkWriter) Flush() error {
	if len(w.buffer) == 0 {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "ingestion", "failed to create chunk directory", err)
	}

	data, err := json.Marshal(w.buffer)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "ingestion", "failed to encode chunk", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_chunk_%04d.json", w.prefix, w.seq))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "ingestion", "failed to write chunk file", err)
	}

	w.written += len(w.buffer)
	w.seq++
	w.buffer = w.buffer[:0]
	return nil
}
