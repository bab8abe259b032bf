package preprocess

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/model"
)

func runPreprocessor(t *testing.T, lines []string, cfg Config) (*Stats, []model.TextRecord) {
	t.Helper()
	dir := t.TempDir()
	cfg.InPath = filepath.Join(dir, "raw.jsonl")
	cfg.OutPath = filepath.Join(dir, "llm_ready.jsonl")
	if err := os.WriteFile(cfg.InPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	p := New(cfg, wordCounter{}, zap.NewNop())
	stats, err := p.Run()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, err := os.ReadFile(cfg.OutPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var records []model.TextRecord
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var rec model.TextRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return stats, records
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestPreprocessor_ChunkIDsRestartPerSection(t *testing.T) {
	rec := model.TextRecord{
		ID:   "doc-1",
		URL:  "https://site.example/a",
		Text: "# One\nalpha beta\n# Two\ngamma delta",
	}
	stats, records := runPreprocessor(t, []string{mustJSON(t, rec)}, Config{TargetTokens: 512})

	if stats.Documents != 1 || stats.Chunks != 2 {
		t.Fatalf("Expected 1 document and 2 chunks, got %+v", stats)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	for _, r := range records {
		if r.ID != "https://site.example/a#chunk-1" {
			t.Errorf("Expected per-section chunk numbering from 1, got id %q", r.ID)
		}
		if r.URL != rec.URL {
			t.Errorf("Expected source url carried, got %q", r.URL)
		}
	}
	if records[0].Title != "One" || records[1].Title != "Two" {
		t.Errorf("Expected section titles, got %q and %q", records[0].Title, records[1].Title)
	}
	if records[0].Text != "alpha beta" || records[1].Text != "gamma delta" {
		t.Errorf("Expected section text packed, got %q and %q", records[0].Text, records[1].Text)
	}
	if records[0].Tokens != 2 {
		t.Errorf("Expected recounted chunk tokens, got %d", records[0].Tokens)
	}
}

func TestPreprocessor_NumbersChunksWithinSection(t *testing.T) {
	rec := model.TextRecord{
		URL:  "https://site.example/b",
		Text: "# Long\nw w w w w",
	}
	_, records := runPreprocessor(t, []string{mustJSON(t, rec)}, Config{TargetTokens: 3})

	if len(records) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(records))
	}
	for i, r := range records {
		want := "https://site.example/b#chunk-" + strconv.Itoa(i+1)
		if r.ID != want {
			t.Errorf("Expected id %q, got %q", want, r.ID)
		}
	}
}

func TestPreprocessor_SkipsUnusableRecords(t *testing.T) {
	good := model.TextRecord{URL: "https://site.example/ok", Text: "# S\nbody here"}
	noURL := model.TextRecord{Text: "# S\nbody"}
	noText := model.TextRecord{URL: "https://site.example/empty"}

	stats, records := runPreprocessor(t, []string{
		mustJSON(t, good),
		mustJSON(t, noURL),
		"{broken",
		mustJSON(t, noText),
	}, Config{TargetTokens: 512})

	if stats.Documents != 1 {
		t.Errorf("Expected 1 usable document, got %d", stats.Documents)
	}
	if stats.Skipped != 3 {
		t.Errorf("Expected 3 skipped records, got %d", stats.Skipped)
	}
	if len(records) != 1 || records[0].URL != good.URL {
		t.Errorf("Expected only the usable record chunked, got %+v", records)
	}
}

func TestPreprocessor_OvershootMode(t *testing.T) {
	rec := model.TextRecord{
		URL:  "https://site.example/c",
		Text: "# S\nw w w w w",
	}
	_, records := runPreprocessor(t, []string{mustJSON(t, rec)}, Config{TargetTokens: 3, Overshoot: true})

	if len(records) != 2 {
		t.Fatalf("Expected 2 overshoot chunks, got %d", len(records))
	}
	if records[0].Text != "w w w" || records[0].Tokens != 3 {
		t.Errorf("Expected first chunk closed at the budget, got %q (%d tokens)",
			records[0].Text, records[0].Tokens)
	}
}

func TestPreprocessor_HeadinglessDocumentGetsGeneralTitle(t *testing.T) {
	rec := model.TextRecord{
		URL:  "https://site.example/d",
		Text: "plain prose without any headings",
	}
	_, records := runPreprocessor(t, []string{mustJSON(t, rec)}, Config{TargetTokens: 512})

	if len(records) != 1 || records[0].Title != "General" {
		t.Fatalf("Expected one General chunk, got %+v", records)
	}
	if records[0].Text != "plain prose without any headings" {
		t.Errorf("Expected whole document packed, got %q", records[0].Text)
	}
}
