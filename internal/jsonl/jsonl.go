// Package jsonl reads and writes JSON-lines files, the interchange format
// between pipeline stages.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Append marshals v and appends it as a single line, creating the file if
// needed. The crawler records artifacts this way so a partial run still
// leaves everything discovered so far on disk.
func Append(path string, v interface{}) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return nil
}

// ForEach streams a JSON-lines file, invoking fn with each raw line and
// its 1-based line number. Blank lines are skipped. fn decides how to
// handle lines that fail to decode; returning an error from fn stops the
// walk.
func ForEach(path string, fn func(line []byte, n int) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Raw PDF text for a whole document can far exceed the default scanner
	// buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line, n); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Writer emits records to a freshly truncated JSON-lines file. Unlike
// Append it buffers, so stages that rewrite a whole output (the
// preprocessor, the downloader) pay one flush at Close.
type Writer struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// NewWriter truncates or creates the file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &Writer{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write appends one record as a line.
func (w *Writer) Write(v interface{}) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("flush %s: %w", w.f.Name(), err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.f.Name(), err)
	}
	return nil
}
