package dialect

import (
	"fmt"
	"strings"

	"medallion/internal/contract"
)

// OracleDialect treats a namespace as the owning schema (user). Schemas are
// provisioned by a DBA, so CreateSchemaQuery is empty.
type OracleDialect struct{}

func (d *OracleDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1 ORDER BY TABLE_NAME`
}

func (d *OracleDialect) GetColumnsQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, CASE NULLABLE WHEN 'Y' THEN 'YES' ELSE 'NO' END
FROM ALL_TAB_COLUMNS
WHERE OWNER = :1
ORDER BY TABLE_NAME, COLUMN_ID`
}

func (d *OracleDialect) TableExistsQuery(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM ALL_TABLES WHERE OWNER = :1 AND TABLE_NAME = :2`, []any{d.GetSchemaName(schema), table}
}

func (d *OracleDialect) CreateSchemaQuery(schema string) string { return "" }

func (d *OracleDialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(d.GetSchemaName(schema)) + "." + d.QuoteIdent(table)
}

func (d *OracleDialect) QuoteIdent(name string) string { return ansiQuote(name) }

func (d *OracleDialect) ColumnType(t contract.Type) string {
	switch t {
	case contract.TypeInt:
		return "NUMBER(19)"
	case contract.TypeFloat:
		return "BINARY_DOUBLE"
	case contract.TypeDecimal:
		return "NUMBER"
	case contract.TypeDate:
		return "DATE"
	case contract.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR2(4000)"
	}
}

func (d *OracleDialect) CreateTableQuery(schema, table string, cols []ColumnDef) string {
	return buildCreate(d.QualifiedName(schema, table), cols, d.QuoteIdent, d.ColumnType)
}

func (d *OracleDialect) DropTableQuery(schema, table string) string {
	// Oracle has no DROP ... IF EXISTS before 23c.
	return fmt.Sprintf("BEGIN EXECUTE IMMEDIATE 'DROP TABLE %s PURGE'; EXCEPTION WHEN OTHERS THEN IF SQLCODE != -942 THEN RAISE; END IF; END;",
		strings.ReplaceAll(d.QualifiedName(schema, table), "'", "''"))
}

// SwapQueries renames the old table aside before moving staging in. Oracle
// DDL commits implicitly, so the swap is two renames rather than one step.
func (d *OracleDialect) SwapQueries(schema, target, staging string, targetExists bool) []string {
	if !targetExists {
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QualifiedName(schema, staging), d.QuoteIdent(target))}
	}
	old := target + "__old"
	return []string{
		d.DropTableQuery(schema, old),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QualifiedName(schema, target), d.QuoteIdent(old)),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QualifiedName(schema, staging), d.QuoteIdent(target)),
		d.DropTableQuery(schema, old),
	}
}

func (d *OracleDialect) TransactionalDDL() bool { return false }

func (d *OracleDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(table, cols, d.QuoteIdent, d.Placeholder)
}

func (d *OracleDialect) SelectAllQuery(schema, table string) string {
	return "SELECT * FROM " + d.QualifiedName(schema, table)
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := strings.ToLower(sqlType)
	if strings.Contains(s, "char") || strings.Contains(s, "clob") {
		return "string"
	}
	if strings.Contains(s, "int") || strings.Contains(s, "number") || strings.Contains(s, "float") {
		return "number"
	}
	if strings.Contains(s, "date") || strings.Contains(s, "time") {
		return "datetime"
	}
	return s
}

func (d *OracleDialect) GetSchemaName(input string) string {
	return strings.ToUpper(input)
}
