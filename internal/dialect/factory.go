package dialect

import "fmt"

// GetDialect returns the Dialect implementation for a database/sql driver name.
func GetDialect(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return &PostgresDialect{}, nil
	case "mysql":
		return &MysqlDialect{}, nil
	case "sqlserver", "mssql":
		return &MSSQLDialect{}, nil
	case "oracle":
		return &OracleDialect{}, nil
	case "sqlite":
		return &SQLiteDialect{}, nil
	case "duckdb":
		return &DuckDBDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)
var _ Dialect = (*SQLiteDialect)(nil)
var _ Dialect = (*DuckDBDialect)(nil)
