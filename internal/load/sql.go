package load

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/dialect"
	"medallion/internal/extract"
)

// SQLLoader loads through database/sql: rows go into a staging table in one
// transaction, then the dialect's swap statements move it into place.
type SQLLoader struct {
	DB      *sql.DB
	Dialect dialect.Dialect
	Logger  *slog.Logger

	guard namespaceGuard
}

func NewSQLLoader(db *sql.DB, d dialect.Dialect, logger *slog.Logger) *SQLLoader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLLoader{DB: db, Dialect: d, Logger: logger}
}

// EnsureNamespace creates the namespace once per loader.
func (l *SQLLoader) EnsureNamespace(ctx context.Context, namespace string) error {
	q := l.Dialect.CreateSchemaQuery(namespace)
	if q == "" {
		return nil
	}
	return l.guard.ensure(namespace, func() error {
		if _, err := l.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create namespace %s: %w", namespace, err)
		}
		return nil
	})
}

func (l *SQLLoader) Replace(ctx context.Context, namespace, table string, ds *dataset.Dataset, c contract.Contract) (int64, error) {
	if err := l.EnsureNamespace(ctx, namespace); err != nil {
		return 0, err
	}
	staging := table + StagingSuffix
	defs := ColumnDefs(ds, c)

	if err := l.stage(ctx, namespace, staging, ds, defs); err != nil {
		l.dropStaging(ctx, namespace, staging)
		return 0, err
	}

	exists, err := extract.TableExists(ctx, l.DB, l.Dialect, namespace, table)
	if err != nil {
		l.dropStaging(ctx, namespace, staging)
		return 0, err
	}
	if err := l.swap(ctx, namespace, table, staging, exists); err != nil {
		l.dropStaging(ctx, namespace, staging)
		return 0, err
	}

	l.Logger.Debug("table swapped", "namespace", namespace, "table", table, "rows", ds.Len(), "replaced", exists)
	return int64(ds.Len()), nil
}

func (l *SQLLoader) stage(ctx context.Context, namespace, staging string, ds *dataset.Dataset, defs []dialect.ColumnDef) error {
	d := l.Dialect
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin staging transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, d.DropTableQuery(namespace, staging)); err != nil {
		return fmt.Errorf("failed to drop stale staging table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, d.CreateTableQuery(namespace, staging, defs)); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	if ds.Len() > 0 {
		stmt, err := tx.PrepareContext(ctx, d.InsertQuery(d.QualifiedName(namespace, staging), ds.Names()))
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := 0; i < ds.Len(); i++ {
			args, err := rowValues(ds, i, defs)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert row %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit staging table: %w", err)
	}
	return nil
}

func (l *SQLLoader) swap(ctx context.Context, namespace, table, staging string, exists bool) error {
	queries := l.Dialect.SwapQueries(namespace, table, staging, exists)

	if !l.Dialect.TransactionalDDL() {
		for _, q := range queries {
			if _, err := l.DB.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("failed to swap %s: %w", table, err)
			}
		}
		return nil
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin swap transaction: %w", err)
	}
	defer tx.Rollback()
	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to swap %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit swap of %s: %w", table, err)
	}
	return nil
}

func (l *SQLLoader) dropStaging(ctx context.Context, namespace, staging string) {
	ctx, cancel := cleanupContext(ctx)
	defer cancel()
	if _, err := l.DB.ExecContext(ctx, l.Dialect.DropTableQuery(namespace, staging)); err != nil {
		l.Logger.Warn("failed to drop staging table", "namespace", namespace, "table", staging, "error", err)
	}
}
