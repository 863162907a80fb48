package dialect

import (
	"fmt"
	"strings"

	"medallion/internal/contract"
)

// PostgresDialect serves both lib/pq ("postgres") and pgx's stdlib driver ("pgx").
type PostgresDialect struct{}

func (d *PostgresDialect) GetTablesQuery(schema string) string {
	// use $1 placeholder
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (d *PostgresDialect) GetColumnsQuery(schema string) string {
	return `SELECT c.table_name, c.column_name, c.udt_name, c.is_nullable
FROM information_schema.columns c
WHERE c.table_schema = $1
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) TableExistsQuery(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
		[]any{d.GetSchemaName(schema), table}
}

func (d *PostgresDialect) CreateSchemaQuery(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", d.QuoteIdent(d.GetSchemaName(schema)))
}

func (d *PostgresDialect) QualifiedName(schema, table string) string {
	return d.QuoteIdent(d.GetSchemaName(schema)) + "." + d.QuoteIdent(table)
}

func (d *PostgresDialect) QuoteIdent(name string) string { return ansiQuote(name) }

func (d *PostgresDialect) ColumnType(t contract.Type) string {
	switch t {
	case contract.TypeInt:
		return "BIGINT"
	case contract.TypeFloat:
		return "DOUBLE PRECISION"
	case contract.TypeDecimal:
		return "NUMERIC"
	case contract.TypeDate:
		return "DATE"
	case contract.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (d *PostgresDialect) CreateTableQuery(schema, table string, cols []ColumnDef) string {
	return buildCreate(d.QualifiedName(schema, table), cols, d.QuoteIdent, d.ColumnType)
}

func (d *PostgresDialect) DropTableQuery(schema, table string) string {
	return "DROP TABLE IF EXISTS " + d.QualifiedName(schema, table)
}

// SwapQueries relies on Postgres DDL being transactional: readers keep
// seeing the old table until commit.
func (d *PostgresDialect) SwapQueries(schema, target, staging string, targetExists bool) []string {
	return []string{
		d.DropTableQuery(schema, target),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QualifiedName(schema, staging), d.QuoteIdent(target)),
	}
}

func (d *PostgresDialect) TransactionalDDL() bool { return true }

func (d *PostgresDialect) InsertQuery(table string, cols []string) string {
	// Generate placeholders ($1, $2, ...)
	return buildInsert(table, cols, d.QuoteIdent, d.Placeholder)
}

func (d *PostgresDialect) SelectAllQuery(schema, table string) string {
	return "SELECT * FROM " + d.QualifiedName(schema, table)
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "int4", "int2":
		return "int"
	case "int8":
		return "bigint"
	case "float4":
		return "float"
	case "float8":
		return "double"
	case "bpchar":
		return "char"
	case "varchar":
		return "varchar"
	default:
		return t
	}
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}
