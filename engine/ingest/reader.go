package ingest

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 1 << 20

// ReadJSONL reads line-delimited JSON records from path, transparently
// decompressing gzip. A positive limit caps the number of records read,
// which keeps benchmark runs over the full dump cheap to iterate on.
func ReadJSONL(path string, limit int) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped, err := isGzip(f); err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	} else if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("ingest: gunzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var lines [][]byte
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
		if limit > 0 && len(lines) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: scan %s: %w", path, err)
	}
	return lines, nil
}

// isGzip sniffs the two magic bytes and rewinds.
func isGzip(f *os.File) (bool, error) {
	var magic [2]byte
	n, err := io.ReadFull(f, magic[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	return n == 2 && magic[0] == 0x1f && magic[1] == 0x8b, nil
}
