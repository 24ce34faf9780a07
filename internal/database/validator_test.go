package database

import (
	"context"
	"strings"
	"testing"
)

func TestValidateSchemaOnFreshDatabase(t *testing.T) {
	mgr := initializedManager(t)
	validator := NewValidator(mgr)

	report, err := validator.ValidateSchema(context.Background())
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	if !report.Valid {
		t.Fatalf("fresh schema reported invalid: %v", report.Issues)
	}
	if len(report.Issues) != 0 {
		t.Fatalf("expected zero issues, got %v", report.Issues)
	}
	if report.TableCount < len(ExpectedTables) {
		t.Fatalf("expected at least %d tables, counted %d", len(ExpectedTables), report.TableCount)
	}
	if !report.FTSEnabled {
		t.Fatal("expected FTS artifact to be present")
	}
}

func TestValidateSchemaReportsMissingTable(t *testing.T) {
	mgr := initializedManager(t)
	ctx := context.Background()

	err := mgr.WithConnection(ctx, "drop_table", func(conn *Conn) error {
		_, err := conn.ExecContext(ctx, "DROP TABLE authors")
		return err
	})
	if err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	report, err := NewValidator(mgr).ValidateSchema(ctx)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	if report.Valid {
		t.Fatal("expected validation to fail after dropping a table")
	}
	found := false
	for _, issue := range report.Issues {
		if strings.Contains(issue, "authors") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an issue naming the authors table, got %v", report.Issues)
	}
}

func TestValidateSchemaReportsMissingFTS(t *testing.T) {
	mgr := initializedManager(t)
	ctx := context.Background()

	err := mgr.WithConnection(ctx, "drop_fts", func(conn *Conn) error {
		_, err := conn.ExecContext(ctx, "DROP TABLE papers_fts")
		return err
	})
	if err != nil {
		t.Fatalf("failed to drop FTS table: %v", err)
	}

	report, err := NewValidator(mgr).ValidateSchema(ctx)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if report.Valid || report.FTSEnabled {
		t.Fatal("expected validation to flag the missing FTS artifact")
	}
}

func TestGetSchemaInfoIntrospection(t *testing.T) {
	mgr := initializedManager(t)

	info, err := NewValidator(mgr).GetSchemaInfo(context.Background())
	if err != nil {
		t.Fatalf("introspection failed: %v", err)
	}

	byName := make(map[string]TableInfo)
	for _, tbl := range info.Tables {
		byName[tbl.Name] = tbl
	}

	papers, ok := byName["papers"]
	if !ok {
		t.Fatal("papers table missing from introspection")
	}
	cols := make(map[string]ColumnInfo)
	for _, c := range papers.Columns {
		cols[c.Name] = c
	}
	if c, ok := cols["title"]; !ok || !c.NotNull {
		t.Fatalf("papers.title should be NOT NULL, got %+v", c)
	}
	if c, ok := cols["id"]; !ok || !c.PrimaryKey {
		t.Fatalf("papers.id should be the primary key, got %+v", c)
	}

	if len(info.Indexes) == 0 {
		t.Fatal("expected indexes in introspection")
	}
	if len(info.Triggers) == 0 {
		t.Fatal("expected FTS sync triggers in introspection")
	}
}
