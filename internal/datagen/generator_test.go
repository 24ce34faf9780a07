package datagen

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/scilit/paperbase/internal/config"
	"github.com/scilit/paperbase/internal/database"
)

func testManager(t *testing.T) *database.Manager {
	t.Helper()
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	cfg.PoolSize = 2
	cfg.AcquireTimeout = time.Second

	mgr, err := database.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return mgr
}

func TestPopulateInsertsRequestedCounts(t *testing.T) {
	mgr := testManager(t)
	gen := New(mgr, 42)
	counts := Counts{Authors: 15, Papers: 30, Datasets: 5}

	summary, err := gen.Populate(context.Background(), counts)
	if err != nil {
		t.Fatalf("populate failed: %v", err)
	}
	if summary.Authors != counts.Authors {
		t.Errorf("expected %d authors, got %d", counts.Authors, summary.Authors)
	}
	if summary.Papers != counts.Papers {
		t.Errorf("expected %d papers, got %d", counts.Papers, summary.Papers)
	}
	if summary.Datasets != counts.Datasets {
		t.Errorf("expected %d datasets, got %d", counts.Datasets, summary.Datasets)
	}
	if summary.Citations == 0 {
		t.Error("expected a non-empty citation network")
	}
	if summary.Collaborations == 0 {
		t.Error("expected collaboration records")
	}
	if summary.Trends == 0 {
		t.Error("expected research trend records")
	}
}

func TestPopulateRejectsEmptyCounts(t *testing.T) {
	mgr := testManager(t)
	gen := New(mgr, 1)

	if _, err := gen.Populate(context.Background(), Counts{}); err == nil {
		t.Fatal("expected error for empty counts")
	}
}

func TestPopulateDataPassesIntegrityCheck(t *testing.T) {
	mgr := testManager(t)
	gen := New(mgr, 7)
	ctx := context.Background()

	if _, err := gen.Populate(ctx, Counts{Authors: 10, Papers: 25, Datasets: 3}); err != nil {
		t.Fatalf("populate failed: %v", err)
	}

	v, err := gen.Validate(ctx)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if len(v.Issues) != 0 {
		t.Fatalf("expected no integrity issues, got %v", v.Issues)
	}
	if v.Authors != 10 || v.Papers != 25 {
		t.Fatalf("unexpected counts: %+v", v)
	}
}

func TestCitationsOnlyPointBackwards(t *testing.T) {
	mgr := testManager(t)
	gen := New(mgr, 99)
	ctx := context.Background()

	if _, err := gen.Populate(ctx, Counts{Authors: 10, Papers: 40, Datasets: 2}); err != nil {
		t.Fatalf("populate failed: %v", err)
	}

	var violations int64
	err := mgr.WithConnection(ctx, "check_citation_direction", func(conn *database.Conn) error {
		return conn.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM citations c
			JOIN papers citing ON citing.id = c.citing_paper_id
			JOIN papers cited ON cited.id = c.cited_paper_id
			WHERE cited.publication_date >= citing.publication_date
		`).Scan(&violations)
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if violations != 0 {
		t.Fatalf("found %d citations pointing at same-or-newer papers", violations)
	}
}

func TestPublicationYearIsRecencyBiased(t *testing.T) {
	gen := New(nil, 5)
	const first, last = 2000, 2024

	recent := 0
	for i := 0; i < 2000; i++ {
		y := gen.publicationYear(first, last)
		if y < first || y > last {
			t.Fatalf("year %d outside range", y)
		}
		if y >= last-5 {
			recent++
		}
	}
	// With exponential weighting the last handful of years should dominate.
	if recent < 1000 {
		t.Errorf("expected most samples in the recent window, got %d of 2000", recent)
	}
}
