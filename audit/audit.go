// Package audit persists lexpack pipeline runs as append-only, versioned
// records. Writing a record never mutates or invalidates the run it
// describes; a logging failure is reported to the caller independently of
// the compression outcome.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/docpack/lexpack"
)

// RecordVersion identifies the audit record schema.
const RecordVersion = 1

// Entry is the audit projection of one dictionary entry.
type Entry struct {
	Code        string `json:"code"`
	Tier        string `json:"tier"`
	Text        string `json:"text"`
	Occurrences int    `json:"occurrences"`
}

// Record is one persisted pipeline run. The format version travels with
// every record so a dictionary produced by one codec version can be checked
// for compatibility before reuse.
type Record struct {
	RecordVersion     int                       `json:"record_version"`
	DictionaryVersion int                       `json:"dictionary_version"`
	RunID             string                    `json:"run_id"`
	CreatedAt         time.Time                 `json:"created_at"`
	InputSize         int                       `json:"input_size"`
	OutputSize        int                       `json:"output_size"`
	Verified          bool                      `json:"verified"`
	Layers            []lexpack.LayerResult     `json:"layers"`
	Entries           []Entry                   `json:"entries"`
	Adjacency         []lexpack.AdjacencyRecord `json:"adjacency,omitempty"`
}

// newRecord projects a run into its audit record.
func newRecord(run *lexpack.PipelineRun) Record {
	rec := Record{
		RecordVersion:     RecordVersion,
		DictionaryVersion: lexpack.FormatVersion,
		RunID:             run.ID,
		CreatedAt:         run.CreatedAt,
		InputSize:         run.InputSize,
		OutputSize:        run.OutputSize,
		Verified:          run.Verified,
		Layers:            run.Layers,
		Adjacency:         run.Adjacency,
	}
	for _, e := range run.Dictionary.Entries() {
		rec.Entries = append(rec.Entries, Entry{
			Code:        e.Code,
			Tier:        e.Tier.String(),
			Text:        e.Text,
			Occurrences: e.Occurrences,
		})
	}
	return rec
}

// Writer appends one JSON line per run to an underlying stream. With
// compression enabled each record becomes its own gzip member, so appending
// to an existing log keeps the stream valid. Safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	w        io.Writer
	compress bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompression gzip-compresses each appended record.
func WithCompression() WriterOption {
	return func(w *Writer) { w.compress = true }
}

// NewWriter creates a Writer appending to w.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	aw := &Writer{w: w}
	for _, opt := range opts {
		opt(aw)
	}
	return aw
}

// Write appends the run's record. The run itself is read-only here; any
// error belongs to the log, not to the compression result.
func (w *Writer) Write(run *lexpack.PipelineRun) error {
	payload, err := json.Marshal(newRecord(run))
	if err != nil {
		return fmt.Errorf("audit: encode run %s: %w", run.ID, err)
	}
	payload = append(payload, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.compress {
		if _, err := w.w.Write(payload); err != nil {
			return fmt.Errorf("audit: append run %s: %w", run.ID, err)
		}
		return nil
	}

	zw := gzip.NewWriter(w.w)
	if _, err := zw.Write(payload); err != nil {
		return fmt.Errorf("audit: append run %s: %w", run.ID, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("audit: append run %s: %w", run.ID, err)
	}
	return nil
}

// ReadAll restores every record from a log stream written by Writer.
func ReadAll(r io.Reader, compressed bool) ([]Record, error) {
	if compressed {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("audit: open log: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return records, fmt.Errorf("audit: decode record %d: %w", len(records), err)
		}
		if rec.RecordVersion != RecordVersion {
			return records, fmt.Errorf("audit: record %d has unsupported version %d", len(records), rec.RecordVersion)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("audit: read log: %w", err)
	}
	return records, nil
}
