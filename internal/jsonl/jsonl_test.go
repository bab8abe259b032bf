package jsonl

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestAppend_CreatesAndAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	if err := Append(path, testRecord{Name: "first", Count: 1}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := Append(path, testRecord{Name: "second", Count: 2}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var got []testRecord
	err := ForEach(path, func(line []byte, n int) error {
		var r testRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error reading back, got %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].Name != "first" || got[1].Name != "second" {
		t.Errorf("Expected records in append order, got %+v", got)
	}
}

func TestForEach_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaps.jsonl")
	content := "{\"name\":\"a\",\"count\":1}\n\n{\"name\":\"b\",\"count\":2}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var lines []int
	err := ForEach(path, func(line []byte, n int) error {
		lines = append(lines, n)
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("Expected 2 non-blank lines, got %d", len(lines))
	}
	if lines[0] != 1 || lines[1] != 3 {
		t.Errorf("Expected line numbers 1 and 3, got %v", lines)
	}
}

func TestForEach_StopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.jsonl")
	content := "{\"name\":\"a\"}\n{\"name\":\"b\"}\n{\"name\":\"c\"}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sentinel := errors.New("stop here")
	calls := 0
	err := ForEach(path, func(line []byte, n int) error {
		calls++
		if calls == 2 {
			return sentinel
		}
		return nil
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("Expected sentinel error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected walk to stop after 2 calls, got %d", calls)
	}
}

func TestForEach_MissingFile(t *testing.T) {
	err := ForEach(filepath.Join(t.TempDir(), "nope.jsonl"), func(line []byte, n int) error {
		return nil
	})
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestWriter_TruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewrite.jsonl")
	if err := os.WriteFile(path, []byte("stale content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := w.Write(testRecord{Name: "fresh", Count: 7}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Expected no error on close, got %v", err)
	}

	count := 0
	err = ForEach(path, func(line []byte, n int) error {
		var r testRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		if r.Name != "fresh" {
			t.Errorf("Expected stale content replaced, got %q", r.Name)
		}
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record after truncation, got %d", count)
	}
}
