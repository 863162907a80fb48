package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"medallion/internal/dataset"
)

const bom = "\ufeff"

// CSVExtractor reads one CSV file per table from Dir. Files maps a table name
// to its file name; tables missing from the map are not found. Every cell is
// read as a string and empty cells become null.
type CSVExtractor struct {
	Dir   string
	Files map[string]string
}

func NewCSVExtractor(dir string, files map[string]string) *CSVExtractor {
	return &CSVExtractor{Dir: dir, Files: files}
}

// Path returns the file backing table, or "" when it is not mapped.
func (e *CSVExtractor) Path(table string) string {
	name, ok := e.Files[table]
	if !ok {
		return ""
	}
	return filepath.Join(e.Dir, name)
}

func (e *CSVExtractor) Extract(ctx context.Context, namespace, table string) (*dataset.Dataset, error) {
	path := e.Path(table)
	if path == "" {
		return nil, fmt.Errorf("no file mapped for %s: %w", table, ErrTableNotFound)
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return ReadCSV(ctx, f)
}

// ReadCSV parses a headed CSV stream into a dataset of strings.
func ReadCSV(ctx context.Context, r io.Reader) (*dataset.Dataset, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv file")
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv header: %w", err)
	}
	names := make([]string, len(header))
	copy(names, header)
	names[0] = strings.TrimPrefix(names[0], bom)

	ds := dataset.New(names...)
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		row := make([]dataset.Value, len(rec))
		for i, cell := range rec {
			row[i] = dataset.NullableString(cell)
		}
		if err := ds.Append(row...); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return ds, nil
}
