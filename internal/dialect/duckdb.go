package dialect

import (
	"fmt"

	"medallion/internal/contract"
)

type DuckDBDialect struct{}

func (d *DuckDBDialect) GetTablesQuery(schema string) string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (d *DuckDBDialect) GetColumnsQuery(schema string) string {
	return `SELECT table_name, column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = ? ORDER BY table_name, ordinal_position`
}

func (d *DuckDBDialect) TableExistsQuery(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?`,
		[]any{d.GetSchemaName(schema), table}
}

func (d *DuckDBDialect) CreateSchemaQuery(schema string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + d.QuoteIdent(d.GetSchemaName(schema))
}

func (d *DuckDBDialect) QualifiedName(schema, table string) string {
	return d.QuoteIdent(d.GetSchemaName(schema)) + "." + d.QuoteIdent(table)
}

func (d *DuckDBDialect) QuoteIdent(name string) string { return ansiQuote(name) }

func (d *DuckDBDialect) ColumnType(t contract.Type) string {
	switch t {
	case contract.TypeInt:
		return "BIGINT"
	case contract.TypeFloat:
		return "DOUBLE"
	case contract.TypeDecimal:
		return "DECIMAL(20,4)"
	case contract.TypeDate:
		return "DATE"
	case contract.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

func (d *DuckDBDialect) CreateTableQuery(schema, table string, cols []ColumnDef) string {
	return buildCreate(d.QualifiedName(schema, table), cols, d.QuoteIdent, d.ColumnType)
}

func (d *DuckDBDialect) DropTableQuery(schema, table string) string {
	return "DROP TABLE IF EXISTS " + d.QualifiedName(schema, table)
}

func (d *DuckDBDialect) SwapQueries(schema, target, staging string, targetExists bool) []string {
	return []string{
		d.DropTableQuery(schema, target),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QualifiedName(schema, staging), d.QuoteIdent(target)),
	}
}

func (d *DuckDBDialect) TransactionalDDL() bool { return true }

func (d *DuckDBDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(table, cols, d.QuoteIdent, d.Placeholder)
}

func (d *DuckDBDialect) SelectAllQuery(schema, table string) string {
	return "SELECT * FROM " + d.QualifiedName(schema, table)
}

func (d *DuckDBDialect) Placeholder(index int) string { return "?" }

func (d *DuckDBDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *DuckDBDialect) GetSchemaName(input string) string {
	if input == "" {
		return "main"
	}
	return input
}
