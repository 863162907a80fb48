// Package extract reads full table snapshots into datasets.
package extract

import (
	"context"
	"errors"

	"medallion/internal/dataset"
)

// ErrTableNotFound is wrapped by every Extractor when the source table is absent.
var ErrTableNotFound = errors.New("table not found")

// Extractor reads one table as stored. Implementations have no side effects.
type Extractor interface {
	Extract(ctx context.Context, namespace, table string) (*dataset.Dataset, error)
}
