package dialect

import "medallion/internal/contract"

// ColumnDef is a column of a table the loader creates.
type ColumnDef struct {
	Name string
	Type contract.Type
}

// Dialect abstracts database-specific operations.
type Dialect interface {
	// Metadata Queries (Namespace Introspection). Both take the namespace as
	// their only bind argument.
	GetTablesQuery(schema string) string
	GetColumnsQuery(schema string) string
	TableExistsQuery(schema, table string) (string, []any)

	// Namespaces and identifiers
	CreateSchemaQuery(schema string) string // "" when the database has nothing to create
	QualifiedName(schema, table string) string
	QuoteIdent(name string) string

	// DDL
	ColumnType(t contract.Type) string
	CreateTableQuery(schema, table string, cols []ColumnDef) string
	DropTableQuery(schema, table string) string
	// SwapQueries moves staging into target's place. They run inside one
	// transaction when TransactionalDDL is true.
	SwapQueries(schema, target, staging string, targetExists bool) []string
	TransactionalDDL() bool

	// Query Generation
	InsertQuery(table string, cols []string) string
	SelectAllQuery(schema, table string) string
	Placeholder(index int) string // Returns ?, $1, @p1, etc.

	// Helpers
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
}
