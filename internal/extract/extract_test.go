package extract_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"medallion/internal/dataset"
	"medallion/internal/dialect"
	"medallion/internal/extract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestCSVExtractor(t *testing.T) {
	dir := t.TempDir()
	body := "\ufeffId,BIRTHDATE,First Name\n" +
		"p1,1990-01-01,Ann\n" +
		"p2,,\"Smith, Jr\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "patients.csv"), []byte(body), 0o644))

	e := extract.NewCSVExtractor(dir, map[string]string{
		"bronze_patients": "patients.csv",
		"bronze_payers":   "payers.csv",
	})

	ds, err := e.Extract(context.Background(), "bronze", "bronze_patients")
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "BIRTHDATE", "First Name"}, ds.Names())
	assert.Equal(t, 2, ds.Len())
	assert.True(t, ds.Get(1, "BIRTHDATE").IsNull())
	assert.Equal(t, "Smith, Jr", ds.Get(1, "First Name").Str())
	assert.Equal(t, dataset.KindString, ds.Get(0, "BIRTHDATE").Kind())

	_, err = e.Extract(context.Background(), "bronze", "bronze_payers")
	assert.ErrorIs(t, err, extract.ErrTableNotFound)

	_, err = e.Extract(context.Background(), "bronze", "bronze_unknown")
	assert.ErrorIs(t, err, extract.ErrTableNotFound)
}

func TestReadCSVRejectsRaggedRows(t *testing.T) {
	_, err := extract.ReadCSV(context.Background(), strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)

	_, err = extract.ReadCSV(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestSQLExtractorSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE silver_payers_dim (payer_id TEXT, payer_name TEXT, n INTEGER, since DATE)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO silver_payers_dim VALUES ('a', 'Aetna', 3, '2024-01-02'), ('b', NULL, NULL, NULL)`)
	require.NoError(t, err)

	e := extract.NewSQLExtractor(db, &dialect.SQLiteDialect{})
	ds, err := e.Extract(context.Background(), "silver", "silver_payers_dim")
	require.NoError(t, err)

	assert.Equal(t, []string{"payer_id", "payer_name", "n", "since"}, ds.Names())
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, int64(3), ds.Get(0, "n").Int64())
	assert.True(t, ds.Get(1, "payer_name").IsNull())
	since, ok := ds.Get(0, "since").AsTime()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), since)

	_, err = e.Extract(context.Background(), "silver", "silver_claims_fact")
	assert.ErrorIs(t, err, extract.ErrTableNotFound)
}
