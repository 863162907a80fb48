package dialect

import (
	"fmt"
	"strings"

	"medallion/internal/contract"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// DefaultNormalizeType is a default implementation for type normalization (lowercase).
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(sqlType)
}

// DefaultGetSchemaName is a default implementation for Getting Schema Name (identity).
func DefaultGetSchemaName(input string) string {
	return input
}

// quoteWith doubles any embedded closing quote.
func quoteWith(open, close, name string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}

func ansiQuote(name string) string { return quoteWith(`"`, `"`, name) }

// buildInsert joins quoted columns and placeholders into an INSERT statement.
func buildInsert(table string, cols []string, quote func(string) string, placeholder func(int) string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), GeneratePlaceholders(len(cols), placeholder))
}

// buildCreate renders CREATE TABLE with nullable columns; contracts are
// enforced before load, not by the database.
func buildCreate(table string, cols []ColumnDef, quote func(string) string, colType func(contract.Type) string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quote(c.Name) + " " + colType(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}
