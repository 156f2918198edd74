package ingest

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeGzipLines(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.json.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gz := gzip.NewWriter(f)
	for _, l := range lines {
		gz.Write([]byte(l + "\n"))
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestReadJSONLGzip(t *testing.T) {
	path := writeGzipLines(t, []string{
		`{"id": 1}`,
		``,
		`{"id": 2}`,
		`   `,
		`{"id": 3}`,
	})
	lines, err := ReadJSONL(path, 0)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (blank lines skipped)", len(lines))
	}
	if string(lines[2]) != `{"id": 3}` {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestReadJSONLLimit(t *testing.T) {
	path := writeGzipLines(t, []string{`{"id": 1}`, `{"id": 2}`, `{"id": 3}`})
	lines, err := ReadJSONL(path, 2)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("got %d lines, want limit of 2", len(lines))
	}
}

func TestReadJSONLPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.json")
	if err := os.WriteFile(path, []byte("{\"id\": 1}\n{\"id\": 2}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines, err := ReadJSONL(path, 0)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("got %d lines, want 2", len(lines))
	}
}

func TestReadJSONLMissingFile(t *testing.T) {
	if _, err := ReadJSONL(filepath.Join(t.TempDir(), "nope.gz"), 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}
