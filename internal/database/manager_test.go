package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func countAuthors(t *testing.T, mgr *Manager) int {
	t.Helper()
	var n int
	err := mgr.WithConnection(context.Background(), "count_authors", func(conn *Conn) error {
		return conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM authors").Scan(&n)
	})
	if err != nil {
		t.Fatalf("failed to count authors: %v", err)
	}
	return n
}

func TestInitializeIsIdempotent(t *testing.T) {
	mgr := initializedManager(t)

	// A second bootstrap over an existing schema must be a no-op.
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize failed: %v", err)
	}
}

func TestInitializeCreatesParentDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabasePath = filepath.Join(t.TempDir(), "nested", "deeper", "test.db")

	mgr := newTestManager(t, cfg)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestInitializeUsesSchemaOverride(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Dir(cfg.DatabasePath)
	override := "CREATE TABLE IF NOT EXISTS custom_only (id INTEGER PRIMARY KEY);"
	if err := os.WriteFile(filepath.Join(dir, SchemaScriptName), []byte(override), 0o644); err != nil {
		t.Fatalf("failed to write schema override: %v", err)
	}

	mgr := newTestManager(t, cfg)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	err := mgr.WithConnection(context.Background(), "check_override", func(conn *Conn) error {
		var n int
		return conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM custom_only").Scan(&n)
	})
	if err != nil {
		t.Fatalf("override table missing: %v", err)
	}
}

func TestInitializeFailsOnBrokenScript(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Dir(cfg.DatabasePath)
	if err := os.WriteFile(filepath.Join(dir, SchemaScriptName), []byte("CREATE BOGUS SYNTAX;"), 0o644); err != nil {
		t.Fatalf("failed to write schema override: %v", err)
	}

	mgr := newTestManager(t, cfg)
	err := mgr.Initialize(context.Background())
	if !errors.Is(err, ErrSchemaInit) {
		t.Fatalf("expected ErrSchemaInit, got %v", err)
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	mgr := initializedManager(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := mgr.WithTransaction(ctx, "insert_author", func(conn *Conn) error {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO authors (name, affiliation) VALUES (?, ?)
		`, "Ada Lovelace", "Analytical Engine Institute"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error to propagate, got %v", err)
	}

	if n := countAuthors(t, mgr); n != 0 {
		t.Fatalf("expected rollback to leave 0 authors, found %d", n)
	}

	// Repeat without the error: the write must be visible to a fresh scope.
	err = mgr.WithTransaction(ctx, "insert_author", func(conn *Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO authors (name, affiliation) VALUES (?, ?)
		`, "Ada Lovelace", "Analytical Engine Institute")
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	if n := countAuthors(t, mgr); n != 1 {
		t.Fatalf("expected exactly 1 author after commit, found %d", n)
	}
}

func TestWithConnectionReleasesOnEveryExit(t *testing.T) {
	cfg := testConfig(t)
	cfg.PoolSize = 1
	mgr := newTestManager(t, cfg)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	ctx := context.Background()

	// Error exit must still release: with a single slot, the next scope
	// would otherwise time out.
	wantErr := errors.New("scope failed")
	if err := mgr.WithConnection(ctx, "failing_op", func(conn *Conn) error {
		return wantErr
	}); !errors.Is(err, wantErr) {
		t.Fatalf("expected scope error, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := mgr.WithConnection(ctx, "ok_op", func(conn *Conn) error {
			var one int
			return conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
		}); err != nil {
			t.Fatalf("connection leaked after failing scope (iteration %d): %v", i, err)
		}
	}
}

func TestWithConnectionRollsBackAbandonedTransaction(t *testing.T) {
	cfg := testConfig(t)
	cfg.PoolSize = 1
	mgr := newTestManager(t, cfg)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	ctx := context.Background()

	boom := errors.New("boom")
	err := mgr.WithConnection(ctx, "abandoned_tx", func(conn *Conn) error {
		if err := conn.Begin(ctx); err != nil {
			return err
		}
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO authors (name) VALUES ('Phantom Author')
		`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}

	if n := countAuthors(t, mgr); n != 0 {
		t.Fatalf("abandoned transaction leaked %d rows", n)
	}
}

func TestWithTransactionRejectsNesting(t *testing.T) {
	mgr := initializedManager(t)
	ctx := context.Background()

	err := mgr.WithTransaction(ctx, "outer", func(conn *Conn) error {
		return conn.Begin(ctx)
	})
	if !errors.Is(err, ErrTransactionOpen) {
		t.Fatalf("expected ErrTransactionOpen, got %v", err)
	}
}

func TestTransactionsSerializeWrites(t *testing.T) {
	mgr := initializedManager(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := mgr.WithTransaction(ctx, "insert_batch", func(conn *Conn) error {
			_, err := conn.ExecContext(ctx, `
				INSERT INTO authors (name) VALUES (?)
			`, fmt.Sprintf("Author %d", i))
			return err
		})
		if err != nil {
			t.Fatalf("transaction %d failed: %v", i, err)
		}
	}

	if n := countAuthors(t, mgr); n != 10 {
		t.Fatalf("expected 10 authors, found %d", n)
	}
}

func TestSplitSQLStatementsHandlesTriggers(t *testing.T) {
	script := `
		-- comment line
		CREATE TABLE IF NOT EXISTS a (id INTEGER PRIMARY KEY);

		CREATE TRIGGER IF NOT EXISTS a_insert AFTER INSERT ON a BEGIN
			INSERT INTO a (id) VALUES (new.id + 1);
			DELETE FROM a WHERE id < 0;
		END;

		CREATE INDEX IF NOT EXISTS idx_a ON a(id);
	`

	statements := splitSQLStatements(script)
	if len(statements) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(statements), statements)
	}
	if want := "CREATE TRIGGER"; len(statements[1]) < len(want) || statements[1][:len(want)] != want {
		t.Fatalf("trigger statement mangled: %q", statements[1])
	}
}
