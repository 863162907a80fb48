package load

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/dialect"
)

// PgxLoader loads into Postgres with COPY. Staging, drop and rename share
// one transaction, so readers see either the old or the new table.
type PgxLoader struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger

	dialect dialect.PostgresDialect
	guard   namespaceGuard
}

func NewPgxLoader(pool *pgxpool.Pool, logger *slog.Logger) *PgxLoader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PgxLoader{Pool: pool, Logger: logger}
}

func (l *PgxLoader) Replace(ctx context.Context, namespace, table string, ds *dataset.Dataset, c contract.Contract) (int64, error) {
	d := &l.dialect
	schema := d.GetSchemaName(namespace)
	err := l.guard.ensure(schema, func() error {
		if _, err := l.Pool.Exec(ctx, d.CreateSchemaQuery(schema)); err != nil {
			return fmt.Errorf("failed to create namespace %s: %w", schema, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	staging := table + StagingSuffix
	defs := ColumnDefs(ds, c)

	tx, err := l.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var n int64
	q, args := d.TableExistsQuery(schema, table)
	if err := tx.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to check table %s.%s: %w", schema, table, err)
	}
	exists := n > 0

	for _, stmt := range []string{d.DropTableQuery(schema, staging), d.CreateTableQuery(schema, staging, defs)} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to prepare staging table: %w", err)
		}
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{schema, staging}, ds.Names(),
		pgx.CopyFromSlice(ds.Len(), func(i int) ([]any, error) {
			vals, err := rowValues(ds, i, defs)
			if err != nil {
				return nil, err
			}
			for j, v := range vals {
				if s, ok := v.(string); ok && defs[j].Type == contract.TypeDecimal {
					var num pgtype.Numeric
					if err := num.Scan(s); err != nil {
						return nil, fmt.Errorf("row %d column %s: %w", i, defs[j].Name, err)
					}
					vals[j] = num
				}
			}
			return vals, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to copy into %s.%s: %w", schema, staging, err)
	}

	for _, stmt := range d.SwapQueries(schema, table, staging, exists) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to swap %s: %w", table, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit %s.%s: %w", schema, table, err)
	}

	l.Logger.Debug("table copied", "namespace", schema, "table", table, "rows", copied)
	return copied, nil
}
