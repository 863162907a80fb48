package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"medallion/internal/dialect"
	"medallion/internal/extract"
	"medallion/internal/load"
)

// backend is an open database with the dialect for its driver. The pgx
// driver also gets a pool so loads can use COPY.
type backend struct {
	cfg     DBConfig
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect dialect.Dialect
}

func openBackend(ctx context.Context, c DBConfig) (*backend, error) {
	d, err := dialect.GetDialect(c.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	b := &backend{cfg: c, db: db, dialect: d}
	if c.Driver == "pgx" {
		if b.pool, err = pgxpool.New(ctx, c.DSN); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open pgx pool: %w", err)
		}
	}
	fmt.Printf("Connected to %s (%s)\n", c.Name, c.Driver)
	return b, nil
}

func (b *backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	b.db.Close()
}

func (b *backend) extractor() extract.Extractor {
	return extract.NewSQLExtractor(b.db, b.dialect)
}

func (b *backend) loader(logger *slog.Logger) load.Loader {
	if b.pool != nil {
		return load.NewPgxLoader(b.pool, logger)
	}
	return load.NewSQLLoader(b.db, b.dialect, logger)
}
