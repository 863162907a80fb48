package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"medallion/internal/dialect"
)

// Analyze lists the tables of a namespace with their columns, in the order
// the database reports them.
func Analyze(ctx context.Context, db *sql.DB, d dialect.Dialect, namespace string) ([]*Table, error) {
	target := d.GetSchemaName(namespace)

	// normalized keys, Oracle reports names upper-cased
	tableMap := make(map[string]*Table)
	var tables []*Table

	rows, err := db.QueryContext(ctx, d.GetTablesQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		t := &Table{Name: name}
		tableMap[strings.ToUpper(name)] = t
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	colRows, err := db.QueryContext(ctx, d.GetColumnsQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer colRows.Close()

	for colRows.Next() {
		var tName, cName, dType, isNull sql.NullString
		if err := colRows.Scan(&tName, &cName, &dType, &isNull); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", tName.String, err)
		}
		if !tName.Valid || !cName.Valid {
			continue
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, &Column{
			Name:       cName.String,
			DataType:   d.NormalizeType(dType.String),
			IsNullable: strings.EqualFold(isNull.String, "YES") || strings.EqualFold(isNull.String, "Y"),
		})
	}
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return tables, nil
}
