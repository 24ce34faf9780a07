package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Validator introspects the live schema and compares it against the expected
// table, index and full-text-search set. It never mutates the schema.
type Validator struct {
	mgr *Manager
}

// NewValidator creates a schema validator backed by mgr.
func NewValidator(mgr *Manager) *Validator {
	return &Validator{mgr: mgr}
}

// ValidationReport is the outcome of one schema validation pass.
type ValidationReport struct {
	Valid      bool     `json:"valid"`
	Issues     []string `json:"issues"`
	TableCount int      `json:"table_count"`
	IndexCount int      `json:"index_count"`
	FTSEnabled bool     `json:"fts_enabled"`
}

// TableInfo describes one table and its column definitions.
type TableInfo struct {
	Name    string       `json:"name"`
	SQL     string       `json:"sql"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes one column as reported by PRAGMA table_info.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	Default    string `json:"default,omitempty"`
	PrimaryKey bool   `json:"primary_key"`
}

// SchemaObject is a named index, view or trigger from the catalog.
type SchemaObject struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	SQL   string `json:"sql,omitempty"`
}

// SchemaInfo is the full introspection result used for diagnostics.
type SchemaInfo struct {
	Tables   []TableInfo    `json:"tables"`
	Indexes  []SchemaObject `json:"indexes"`
	Views    []SchemaObject `json:"views"`
	Triggers []SchemaObject `json:"triggers"`
}

// ValidateSchema enumerates live tables, indexes and FTS artifacts and
// reports every discrepancy against the expected set.
func (v *Validator) ValidateSchema(ctx context.Context) (*ValidationReport, error) {
	report := &ValidationReport{Issues: []string{}}

	err := v.mgr.WithConnection(ctx, "validate_schema", func(conn *Conn) error {
		tables, err := catalogNames(ctx, conn, "table")
		if err != nil {
			return err
		}
		indexes, err := catalogNames(ctx, conn, "index")
		if err != nil {
			return err
		}

		report.TableCount = len(tables)
		report.IndexCount = len(indexes)

		for _, want := range ExpectedTables {
			if !tables[want] {
				report.Issues = append(report.Issues, fmt.Sprintf("missing table: %s", want))
			}
		}
		for _, want := range ExpectedIndexes {
			if !indexes[want] {
				report.Issues = append(report.Issues, fmt.Sprintf("missing index: %s", want))
			}
		}

		if v.mgr.cfg.FullTextSearch {
			fts, err := ftsPresent(ctx, conn)
			if err != nil {
				return err
			}
			report.FTSEnabled = fts
			if !fts {
				report.Issues = append(report.Issues, fmt.Sprintf("full-text search table %s is missing or not fts5", FTSTable))
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Valid = len(report.Issues) == 0

	log.Debug().
		Bool("valid", report.Valid).
		Int("tables", report.TableCount).
		Int("indexes", report.IndexCount).
		Int("issues", len(report.Issues)).
		Msg("Schema validation complete")

	return report, nil
}

// GetSchemaInfo returns per-table column definitions plus all indexes, views
// and triggers. Read-only and side-effect free.
func (v *Validator) GetSchemaInfo(ctx context.Context) (*SchemaInfo, error) {
	info := &SchemaInfo{}

	err := v.mgr.WithConnection(ctx, "schema_info", func(conn *Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT type, name, tbl_name, COALESCE(sql, '')
			FROM sqlite_master
			WHERE name NOT LIKE 'sqlite_%'
			ORDER BY type, name
		`)
		if err != nil {
			return fmt.Errorf("failed to read catalog: %w", err)
		}
		defer rows.Close()

		var tableNames []string
		for rows.Next() {
			var objType, name, tblName, objSQL string
			if err := rows.Scan(&objType, &name, &tblName, &objSQL); err != nil {
				return fmt.Errorf("failed to scan catalog row: %w", err)
			}
			switch objType {
			case "table":
				info.Tables = append(info.Tables, TableInfo{Name: name, SQL: objSQL})
				tableNames = append(tableNames, name)
			case "index":
				info.Indexes = append(info.Indexes, SchemaObject{Name: name, Table: tblName, SQL: objSQL})
			case "view":
				info.Views = append(info.Views, SchemaObject{Name: name, Table: tblName, SQL: objSQL})
			case "trigger":
				info.Triggers = append(info.Triggers, SchemaObject{Name: name, Table: tblName, SQL: objSQL})
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate catalog: %w", err)
		}

		for i, name := range tableNames {
			cols, err := tableColumns(ctx, conn, name)
			if err != nil {
				return err
			}
			info.Tables[i].Columns = cols
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func catalogNames(ctx context.Context, conn *Conn, objType string) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = ? AND name NOT LIKE 'sqlite_%'
	`, objType)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", objType, err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan %s name: %w", objType, err)
		}
		names[name] = true
	}
	return names, rows.Err()
}

func ftsPresent(ctx context.Context, conn *Conn) (bool, error) {
	var createSQL string
	err := conn.QueryRowContext(ctx, `
		SELECT COALESCE(sql, '') FROM sqlite_master
		WHERE type = 'table' AND name = ?
	`, FTSTable).Scan(&createSQL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check FTS table: %w", err)
	}
	return strings.Contains(strings.ToLower(createSQL), "fts5"), nil
}

func tableColumns(ctx context.Context, conn *Conn, table string) ([]ColumnInfo, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid     int
			col     ColumnInfo
			notNull int
			dflt    *string
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		if dflt != nil {
			col.Default = *dflt
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}
