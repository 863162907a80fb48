package load_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/dialect"
	"medallion/internal/extract"
	"medallion/internal/load"
	"medallion/internal/testutil"
)

var processed = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func payers(t *testing.T, names ...string) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(contract.Payers.Columns()...)
	for i, n := range names {
		require.NoError(t, ds.Append(
			dataset.String(string(rune('a'+i))),
			dataset.String(n),
			dataset.Timestamp(processed),
		))
	}
	return ds
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestSQLLoaderStatementSequence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := &dialect.PostgresDialect{}
	l := load.NewSQLLoader(db, d, testutil.NewTestLogger(t))

	mock.ExpectExec(q(`CREATE SCHEMA IF NOT EXISTS "silver"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(q(`DROP TABLE IF EXISTS "silver"."silver_payers_dim__staging"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(`CREATE TABLE "silver"."silver_payers_dim__staging"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(q(`INSERT INTO "silver"."silver_payers_dim__staging"`))
	prep.ExpectExec().WithArgs("a", "Aetna", processed).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("b", "Cigna", processed).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q(`SELECT COUNT(*) FROM information_schema.tables`)).
		WithArgs("silver", "silver_payers_dim").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(q(`DROP TABLE IF EXISTS "silver"."silver_payers_dim"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(`ALTER TABLE "silver"."silver_payers_dim__staging" RENAME TO "silver_payers_dim"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := l.Replace(context.Background(), "silver", contract.SilverPayers, payers(t, "Aetna", "Cigna"), contract.Payers)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoaderInsertFailureLeavesTargetAlone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := &dialect.PostgresDialect{}
	l := load.NewSQLLoader(db, d, testutil.NewTestLogger(t))

	mock.ExpectExec("CREATE SCHEMA").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare("INSERT INTO")
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()
	// cleanup only touches staging
	mock.ExpectExec(q(`DROP TABLE IF EXISTS "silver"."silver_payers_dim__staging"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = l.Replace(context.Background(), "silver", contract.SilverPayers, payers(t, "Aetna"), contract.Payers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoaderCreatesNamespaceOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := load.NewSQLLoader(db, &dialect.PostgresDialect{}, nil)
	mock.ExpectExec("CREATE SCHEMA").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, l.EnsureNamespace(context.Background(), "gold"))
	require.NoError(t, l.EnsureNamespace(context.Background(), "gold"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "medallion.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLLoaderSQLiteReplace(t *testing.T) {
	db := openSQLite(t)
	d := &dialect.SQLiteDialect{}
	l := load.NewSQLLoader(db, d, testutil.NewTestLogger(t))
	e := extract.NewSQLExtractor(db, d)
	ctx := context.Background()

	n, err := l.Replace(ctx, "silver", contract.SilverPayers, payers(t, "Aetna", "Cigna", "Humana"), contract.Payers)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = l.Replace(ctx, "silver", contract.SilverPayers, payers(t, "Medicare"), contract.Payers)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ds, err := e.Extract(ctx, "silver", contract.SilverPayers)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, contract.Payers.Columns(), ds.Names())
	assert.Equal(t, "Medicare", ds.Get(0, "payer_name").Str())
	ts, ok := ds.Get(0, contract.SilverAudit).AsTime()
	require.True(t, ok)
	assert.True(t, processed.Equal(ts))

	var staging int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name LIKE '%staging'`).Scan(&staging))
	assert.Zero(t, staging)
}

func TestSQLLoaderSQLiteDecimalsExact(t *testing.T) {
	db := openSQLite(t)
	d := &dialect.SQLiteDialect{}
	l := load.NewSQLLoader(db, d, nil)

	c := contract.MustNew("amounts",
		contract.Field{Name: "id", Type: contract.TypeString},
		contract.Field{Name: "amount", Type: contract.TypeDecimal},
	)
	ds := dataset.New("id", "amount")
	amount, ok := dataset.String("1234567890.0123").AsDecimal()
	require.True(t, ok)
	require.NoError(t, ds.Append(dataset.String("x"), dataset.Decimal(amount)))

	_, err := l.Replace(context.Background(), "gold", "amounts", ds, c)
	require.NoError(t, err)

	var got string
	require.NoError(t, db.QueryRow(`SELECT amount FROM gold_amounts`).Scan(&got))
	assert.Equal(t, "1234567890.0123", got)
}
