package schema_test

import (
	"context"
	"strings"
	"testing"

	"medallion/internal/dialect"
	"medallion/internal/schema"

	"github.com/DATA-DOG/go-sqlmock"
)

func names(tables []*schema.Table) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name
	}
	return out
}

func TestSortByDependencies_Simple(t *testing.T) {
	// payers -> encounters -> patients
	tables := []*schema.Table{
		{Name: "patients", Dependencies: []string{"encounters", "payers"}},
		{Name: "encounters"},
		{Name: "payers"},
	}

	sorted, err := schema.SortByDependencies(tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(names(sorted), ",")
	if got != "encounters,payers,patients" {
		t.Errorf("Expected encounters,payers,patients, got %s", got)
	}
}

func TestSortByDependencies_KeepsInputOrderAmongReady(t *testing.T) {
	tables := []*schema.Table{
		{Name: "claims", Dependencies: []string{"transactions"}},
		{Name: "payers"},
		{Name: "transactions"},
		{Name: "encounters"},
	}

	sorted, err := schema.SortByDependencies(tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(names(sorted), ",")
	if got != "payers,transactions,encounters,claims" {
		t.Errorf("unexpected order %s", got)
	}
}

func TestSortByDependencies_Cycle(t *testing.T) {
	// A -> B -> C -> A, G independent
	tables := []*schema.Table{
		{Name: "G"},
		{Name: "A", Dependencies: []string{"B"}},
		{Name: "B", Dependencies: []string{"C"}},
		{Name: "C", Dependencies: []string{"A"}},
	}

	_, err := schema.SortByDependencies(tables)
	if err == nil {
		t.Fatal("Expected a cycle error")
	}
	if !strings.Contains(err.Error(), "A -> B -> C -> A") {
		t.Errorf("cycle not named in error: %v", err)
	}
}

func TestSortByDependencies_UnknownDependency(t *testing.T) {
	tables := []*schema.Table{{Name: "A", Dependencies: []string{"missing"}}}
	if _, err := schema.SortByDependencies(tables); err == nil {
		t.Error("Expected an error for an unknown dependency")
	}
}

func TestLevels(t *testing.T) {
	tables := []*schema.Table{
		{Name: "payers"},
		{Name: "encounters"},
		{Name: "transactions"},
		{Name: "patients", Dependencies: []string{"encounters", "payers"}},
		{Name: "claims", Dependencies: []string{"transactions"}},
	}
	levels, err := schema.Levels(tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("Expected 2 levels, got %d", len(levels))
	}
	if got := strings.Join(names(levels[1]), ","); got != "patients,claims" {
		t.Errorf("unexpected second level %s", got)
	}
}

func TestAnalyze(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	d := &dialect.PostgresDialect{}
	mock.ExpectQuery("information_schema.tables").WithArgs("silver").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("silver_payers_dim"))
	mock.ExpectQuery("information_schema.columns").WithArgs("silver").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "is_nullable"}).
			AddRow("silver_payers_dim", "payer_id", "text", "NO").
			AddRow("silver_payers_dim", "payer_name", "text", "YES").
			AddRow("other", "ignored", "text", "YES"))

	tables, err := schema.Analyze(context.Background(), db, d, "silver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tables) != 1 || len(tables[0].Columns) != 2 {
		t.Fatalf("unexpected result %+v", tables)
	}
	if tables[0].Column("payer_id").IsNullable {
		t.Error("payer_id should not be nullable")
	}
	if !tables[0].Column("payer_name").IsNullable {
		t.Error("payer_name should be nullable")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
