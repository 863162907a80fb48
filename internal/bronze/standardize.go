package bronze

import (
	"fmt"
	"time"

	"medallion/internal/dataset"
)

// Standardize normalizes headers, applies the table's rename map and appends
// the lineage columns stamped with at.
func Standardize(raw *dataset.Dataset, table string, at time.Time) (*dataset.Dataset, error) {
	m := make(map[string]string, raw.Width())
	seen := make(map[string]string, raw.Width())
	renames := Renames[table]
	for _, h := range raw.Names() {
		name := NormalizeHeader(h)
		if to, ok := renames[name]; ok {
			name = to
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%s: headers %q and %q both map to %q", table, prev, h, name)
		}
		seen[name] = h
		m[h] = name
	}
	out, err := raw.Rename(m)
	if err != nil {
		return nil, err
	}

	lineage := []struct {
		name string
		v    dataset.Value
	}{
		{ColSnapshotDate, dataset.Date(at)},
		{ColExecutionTimestamp, dataset.Timestamp(at)},
		{ColSourceFile, dataset.String(Files[table])},
		{ColLoadedBy, dataset.String(LoadedBy)},
	}
	for _, col := range lineage {
		if out, err = out.WithConstant(col.name, col.v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
