package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medallion/internal/contract"
	"medallion/internal/dataset"
)

// Source is a table a unit extracts.
type Source struct {
	Namespace string
	Table     string
}

func (s Source) String() string { return s.Namespace + "." + s.Table }

// Input is what a transform receives: its extracted sources, the validated
// outputs of the units it needs, and the run's processing instant.
type Input struct {
	Sources     map[string]*dataset.Dataset
	Needs       map[string]*dataset.Dataset
	ProcessedAt time.Time
	Logger      *slog.Logger
}

// Source returns an extracted table by name.
func (in Input) Source(table string) (*dataset.Dataset, error) {
	ds, ok := in.Sources[table]
	if !ok {
		return nil, fmt.Errorf("source %s was not extracted", table)
	}
	return ds, nil
}

// Need returns the output of another unit by name.
func (in Input) Need(unit string) (*dataset.Dataset, error) {
	ds, ok := in.Needs[unit]
	if !ok {
		return nil, fmt.Errorf("output of %s is not available", unit)
	}
	return ds, nil
}

// TransformFunc turns inputs into one output table. It must not modify its inputs.
type TransformFunc func(ctx context.Context, in Input) (*dataset.Dataset, Stats, error)

// Unit produces one target table.
type Unit struct {
	// Name defaults to Target.
	Name   string
	Target string
	// Sources are extracted from the store.
	Sources []Source
	// Needs names units whose in-memory output this unit reads.
	Needs []string
	// Contract may be nil, in which case validation passes the output through.
	Contract  *contract.Contract
	Transform TransformFunc
}

func (u Unit) name() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Target
}
