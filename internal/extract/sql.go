package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"medallion/internal/dataset"
	"medallion/internal/dialect"
)

// SQLExtractor reads tables through database/sql.
type SQLExtractor struct {
	DB      *sql.DB
	Dialect dialect.Dialect
}

func NewSQLExtractor(db *sql.DB, d dialect.Dialect) *SQLExtractor {
	return &SQLExtractor{DB: db, Dialect: d}
}

func (e *SQLExtractor) Extract(ctx context.Context, namespace, table string) (*dataset.Dataset, error) {
	exists, err := TableExists(ctx, e.DB, e.Dialect, namespace, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s.%s: %w", namespace, table, ErrTableNotFound)
	}

	rows, err := e.DB.QueryContext(ctx, e.Dialect.SelectAllQuery(namespace, table))
	if err != nil {
		return nil, fmt.Errorf("failed to select %s.%s: %w", namespace, table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	names := make([]string, len(types))
	dateOnly := make([]bool, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
		dateOnly[i] = strings.EqualFold(ct.DatabaseTypeName(), "DATE")
	}

	ds := dataset.New(names...)
	raw := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s.%s: %w", namespace, table, err)
		}
		row := make([]dataset.Value, len(raw))
		for i, x := range raw {
			if t, ok := x.(time.Time); ok && dateOnly[i] {
				row[i] = dataset.Date(t)
				continue
			}
			row[i] = dataset.FromAny(x)
		}
		if err := ds.Append(row...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s.%s: %w", namespace, table, err)
	}
	return ds, nil
}

// TableExists runs the dialect's existence query.
func TableExists(ctx context.Context, db *sql.DB, d dialect.Dialect, namespace, table string) (bool, error) {
	q, args := d.TableExistsQuery(namespace, table)
	var n int
	if err := db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check table %s.%s: %w", namespace, table, err)
	}
	return n > 0, nil
}
