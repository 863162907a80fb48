package dialect

import (
	"fmt"
	"strings"

	"medallion/internal/contract"
)

type MSSQLDialect struct{}

// Helper: MSSQL Driver (go-mssqldb) prefers @p1, @p2 named parameters over ?

func (d *MSSQLDialect) GetTablesQuery(schema string) string {
	// Use @p1 for schema binding
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MSSQLDialect) GetColumnsQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = @p1 ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MSSQLDialect) TableExistsQuery(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2`,
		[]any{d.GetSchemaName(schema), table}
}

func (d *MSSQLDialect) CreateSchemaQuery(schema string) string {
	s := d.GetSchemaName(schema)
	return fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM sys.schemas WHERE name = N'%s') EXEC('CREATE SCHEMA %s')",
		strings.ReplaceAll(s, "'", "''"), strings.ReplaceAll(d.QuoteIdent(s), "'", "''"))
}

func (d *MSSQLDialect) QualifiedName(schema, table string) string {
	return d.QuoteIdent(d.GetSchemaName(schema)) + "." + d.QuoteIdent(table)
}

func (d *MSSQLDialect) QuoteIdent(name string) string { return quoteWith("[", "]", name) }

func (d *MSSQLDialect) ColumnType(t contract.Type) string {
	switch t {
	case contract.TypeInt:
		return "BIGINT"
	case contract.TypeFloat:
		return "FLOAT"
	case contract.TypeDecimal:
		return "DECIMAL(20,4)"
	case contract.TypeDate:
		return "DATE"
	case contract.TypeTimestamp:
		return "DATETIME2"
	default:
		return "NVARCHAR(MAX)"
	}
}

func (d *MSSQLDialect) CreateTableQuery(schema, table string, cols []ColumnDef) string {
	return buildCreate(d.QualifiedName(schema, table), cols, d.QuoteIdent, d.ColumnType)
}

func (d *MSSQLDialect) DropTableQuery(schema, table string) string {
	return "DROP TABLE IF EXISTS " + d.QualifiedName(schema, table)
}

// SwapQueries runs inside a transaction; SQL Server DDL and sp_rename are transactional.
func (d *MSSQLDialect) SwapQueries(schema, target, staging string, targetExists bool) []string {
	s := d.GetSchemaName(schema)
	return []string{
		d.DropTableQuery(schema, target),
		fmt.Sprintf("EXEC sp_rename N'%s.%s', N'%s'",
			strings.ReplaceAll(s, "'", "''"), strings.ReplaceAll(staging, "'", "''"), strings.ReplaceAll(target, "'", "''")),
	}
}

func (d *MSSQLDialect) TransactionalDDL() bool { return true }

func (d *MSSQLDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(table, cols, d.QuoteIdent, d.Placeholder)
}

func (d *MSSQLDialect) SelectAllQuery(schema, table string) string {
	return "SELECT * FROM " + d.QualifiedName(schema, table)
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "nvarchar", "nchar", "text", "ntext":
		return "varchar"
	case "bit":
		return "boolean"
	case "decimal", "numeric", "money", "smallmoney":
		return "decimal"
	case "float", "real":
		return "float"
	case "datetime", "datetime2", "smalldatetime":
		return "datetime"
	default:
		return t
	}
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}
