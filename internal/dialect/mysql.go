package dialect

import (
	"fmt"

	"medallion/internal/contract"
)

// MysqlDialect maps a namespace to a MySQL database.
type MysqlDialect struct{}

func (d *MysqlDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MysqlDialect) GetColumnsQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) TableExistsQuery(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`, []any{schema, table}
}

func (d *MysqlDialect) CreateSchemaQuery(schema string) string {
	return "CREATE DATABASE IF NOT EXISTS " + d.QuoteIdent(schema)
}

func (d *MysqlDialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

func (d *MysqlDialect) QuoteIdent(name string) string { return quoteWith("`", "`", name) }

func (d *MysqlDialect) ColumnType(t contract.Type) string {
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
		return "DATETIME(6)"
	default:
		return "TEXT"
	}
}

func (d *MysqlDialect) CreateTableQuery(schema, table string, cols []ColumnDef) string {
	return buildCreate(d.QualifiedName(schema, table), cols, d.QuoteIdent, d.ColumnType)
}

func (d *MysqlDialect) DropTableQuery(schema, table string) string {
	return "DROP TABLE IF EXISTS " + d.QualifiedName(schema, table)
}

// SwapQueries uses one multi-table RENAME, which MySQL applies atomically.
// DDL auto-commits, so these run outside a transaction.
func (d *MysqlDialect) SwapQueries(schema, target, staging string, targetExists bool) []string {
	if !targetExists {
		return []string{fmt.Sprintf("RENAME TABLE %s TO %s", d.QualifiedName(schema, staging), d.QualifiedName(schema, target))}
	}
	old := target + "__old"
	return []string{
		d.DropTableQuery(schema, old),
		fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s",
			d.QualifiedName(schema, target), d.QualifiedName(schema, old),
			d.QualifiedName(schema, staging), d.QualifiedName(schema, target)),
		d.DropTableQuery(schema, old),
	}
}

func (d *MysqlDialect) TransactionalDDL() bool { return false }

func (d *MysqlDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(table, cols, d.QuoteIdent, d.Placeholder)
}

func (d *MysqlDialect) SelectAllQuery(schema, table string) string {
	return "SELECT * FROM " + d.QualifiedName(schema, table)
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}
