// Package tabular reads the engine's input tables and writes its output tables.
//
// Tables are CSV files with a header row. A path ending in ".gz" is read and
// written through gzip.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/okian/jci/internal/domain/model"
)

// table is a parsed CSV file with a header index.
type table struct {
	name   string
	path   string
	cols   map[string]int
	rows   [][]string
	header []string
}

// get returns the trimmed cell of column col in row r, or "" when the
// column is absent.
func (t *table) get(r []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

func (t *table) has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// rowErr wraps err with the file line of data row i.
func (t *table) rowErr(i int, err error) error {
	return fmt.Errorf("%s: %s line %d: %w", t.name, t.path, i+2, err)
}

type gzipReadCloser struct {
	*gzip.Reader
	f *os.File
}

func (g gzipReadCloser) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}

// open opens path for reading, decompressing when it ends in ".gz".
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrCompression, path, err)
	}
	return gzipReadCloser{Reader: zr, f: f}, nil
}

// readTable loads the file at path and checks that the required columns are
// present. A missing file or a file without a header is missing input.
func readTable(name, path string, required []string) (*table, error) {
	if path == "" {
		return nil, &model.MissingInputError{Table: name}
	}
	rc, err := open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &model.MissingInputError{Table: name}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: open %s: %w", name, path, err)
	}
	defer rc.Close() //nolint:errcheck

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.ReuseRecord = false
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: parse %s: %w", name, path, err)
	}
	if len(records) == 0 {
		return nil, &model.MissingInputError{Table: name}
	}

	t := &table{name: name, path: path, cols: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, h := range records[0] {
		h = normalizeHeader(h)
		t.header = append(t.header, h)
		if _, dup := t.cols[h]; !dup {
			t.cols[h] = i
		}
	}

	var missing []string
	for _, c := range required {
		if !t.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &model.SchemaError{Table: name, Columns: missing}
	}
	return t, nil
}

// normalizeHeader lowercases a header and turns spaces into underscores so
// "Region Type" and "region_type" name the same column. A UTF-8 byte order
// mark on the first header is dropped.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}
