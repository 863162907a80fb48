package dialect_test

import (
	"testing"

	"medallion/internal/contract"
	"medallion/internal/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDialect(t *testing.T) {
	for _, driver := range []string{"postgres", "pgx", "mysql", "sqlserver", "mssql", "oracle", "sqlite", "duckdb"} {
		d, err := dialect.GetDialect(driver)
		require.NoError(t, err, driver)
		assert.NotNil(t, d)
	}
	_, err := dialect.GetDialect("db2")
	assert.Error(t, err)
}

func TestInsertPlaceholders(t *testing.T) {
	cols := []string{"a", "b"}
	cases := map[string]string{
		"postgres":  `INSERT INTO t ("a", "b") VALUES ($1, $2)`,
		"mysql":     "INSERT INTO t (`a`, `b`) VALUES (?, ?)",
		"sqlserver": `INSERT INTO t ([a], [b]) VALUES (@p1, @p2)`,
		"oracle":    `INSERT INTO t ("a", "b") VALUES (:1, :2)`,
		"sqlite":    `INSERT INTO t ("a", "b") VALUES (?, ?)`,
		"duckdb":    `INSERT INTO t ("a", "b") VALUES (?, ?)`,
	}
	for driver, want := range cases {
		d, err := dialect.GetDialect(driver)
		require.NoError(t, err)
		assert.Equal(t, want, d.InsertQuery("t", cols), driver)
	}
}

func TestPostgresSwap(t *testing.T) {
	d := &dialect.PostgresDialect{}
	assert.True(t, d.TransactionalDDL())
	assert.Equal(t, []string{
		`DROP TABLE IF EXISTS "silver"."claims"`,
		`ALTER TABLE "silver"."claims__staging" RENAME TO "claims"`,
	}, d.SwapQueries("silver", "claims", "claims__staging", true))
	assert.Equal(t, `CREATE TABLE "silver"."t" ("id" TEXT, "amount" NUMERIC)`,
		d.CreateTableQuery("silver", "t", []dialect.ColumnDef{
			{Name: "id", Type: contract.TypeString},
			{Name: "amount", Type: contract.TypeDecimal},
		}))
}

func TestMysqlSwapIsSingleRename(t *testing.T) {
	d := &dialect.MysqlDialect{}
	assert.False(t, d.TransactionalDDL())

	first := d.SwapQueries("silver", "claims", "claims__staging", false)
	assert.Equal(t, []string{"RENAME TABLE `silver`.`claims__staging` TO `silver`.`claims`"}, first)

	swap := d.SwapQueries("silver", "claims", "claims__staging", true)
	require.Len(t, swap, 3)
	assert.Equal(t, "RENAME TABLE `silver`.`claims` TO `silver`.`claims__old`, `silver`.`claims__staging` TO `silver`.`claims`", swap[1])
}

func TestSQLiteNamespaceIsPrefix(t *testing.T) {
	d := &dialect.SQLiteDialect{}
	assert.Equal(t, `"silver_claims_fact"`, d.QualifiedName("silver", "silver_claims_fact"))
	assert.Equal(t, `"silver_x"`, d.QualifiedName("silver", "x"))
	assert.Equal(t, `"x"`, d.QualifiedName("", "x"))

	q, args := d.TableExistsQuery("bronze", "bronze_patients")
	assert.Contains(t, q, "sqlite_master")
	assert.Equal(t, []any{"bronze_patients"}, args)
	assert.Empty(t, d.CreateSchemaQuery("bronze"))
}

func TestQuoteIdentEscapes(t *testing.T) {
	assert.Equal(t, `"a""b"`, (&dialect.PostgresDialect{}).QuoteIdent(`a"b`))
	assert.Equal(t, "`a``b`", (&dialect.MysqlDialect{}).QuoteIdent("a`b"))
	assert.Equal(t, `[a]]b]`, (&dialect.MSSQLDialect{}).QuoteIdent("a]b"))
}

func TestOracleUppercasesSchema(t *testing.T) {
	d := &dialect.OracleDialect{}
	assert.Equal(t, "SILVER", d.GetSchemaName("silver"))
	assert.Equal(t, "NUMBER(19)", d.ColumnType(contract.TypeInt))
}
