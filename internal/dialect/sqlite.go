package dialect

import (
	"fmt"
	"strings"

	"medallion/internal/contract"
)

// SQLiteDialect has no schemas: a namespace becomes a table-name prefix.
// Tables that already carry the prefix ("silver_claims_fact" in "silver")
// keep their name.
type SQLiteDialect struct{}

func (d *SQLiteDialect) GetTablesQuery(schema string) string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND substr(name, 1, length(?1) + 1) = ?1 || '_' ORDER BY name`
}

func (d *SQLiteDialect) GetColumnsQuery(schema string) string {
	return `SELECT m.name, p.name, p.type, CASE WHEN p."notnull" = 0 THEN 'YES' ELSE 'NO' END
FROM sqlite_master m JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND substr(m.name, 1, length(?1) + 1) = ?1 || '_'
ORDER BY m.name, p.cid`
}

func (d *SQLiteDialect) TableExistsQuery(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, []any{d.tableName(schema, table)}
}

func (d *SQLiteDialect) CreateSchemaQuery(schema string) string { return "" }

func (d *SQLiteDialect) tableName(schema, table string) string {
	if schema == "" || strings.HasPrefix(table, schema+"_") {
		return table
	}
	return schema + "_" + table
}

func (d *SQLiteDialect) QualifiedName(schema, table string) string {
	return d.QuoteIdent(d.tableName(schema, table))
}

func (d *SQLiteDialect) QuoteIdent(name string) string { return ansiQuote(name) }

// ColumnType keeps decimals as TEXT so values round-trip exactly instead of
// passing through REAL affinity.
func (d *SQLiteDialect) ColumnType(t contract.Type) string {
	switch t {
	case contract.TypeInt:
		return "INTEGER"
	case contract.TypeFloat:
		return "REAL"
	case contract.TypeDate:
		return "DATE"
	case contract.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (d *SQLiteDialect) CreateTableQuery(schema, table string, cols []ColumnDef) string {
	return buildCreate(d.QualifiedName(schema, table), cols, d.QuoteIdent, d.ColumnType)
}

func (d *SQLiteDialect) DropTableQuery(schema, table string) string {
	return "DROP TABLE IF EXISTS " + d.QualifiedName(schema, table)
}

func (d *SQLiteDialect) SwapQueries(schema, target, staging string, targetExists bool) []string {
	return []string{
		d.DropTableQuery(schema, target),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QualifiedName(schema, staging), d.QualifiedName(schema, target)),
	}
}

func (d *SQLiteDialect) TransactionalDDL() bool { return true }

func (d *SQLiteDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(table, cols, d.QuoteIdent, d.Placeholder)
}

func (d *SQLiteDialect) SelectAllQuery(schema, table string) string {
	return "SELECT * FROM " + d.QualifiedName(schema, table)
}

func (d *SQLiteDialect) Placeholder(index int) string { return "?" }

func (d *SQLiteDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *SQLiteDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}
