package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// FileSink writes events as one JSON object per line. The resulting
// JSONL file is the durable form of the audit trail.
type FileSink struct {
	f *os.File
	w *bufio.Writer
}

// NewFileSink opens (truncating) a JSONL journal file.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	return &FileSink{f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one event line and flushes it so followers see it
// promptly.
func (s *FileSink) Append(e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", e.Seq, err)
	}
	if _, err := s.w.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write event %d: %w", e.Seq, err)
	}
	return s.w.Flush()
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.f.Close()
}
