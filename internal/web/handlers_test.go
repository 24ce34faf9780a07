package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/scilit/paperbase/internal/config"
	"github.com/scilit/paperbase/internal/database"
)

func testServer(t *testing.T) *Server {
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

	return NewServer(mgr, database.NewValidator(mgr), database.NewMonitor(mgr), 0, "")
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSchemaValidationEndpoint(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/schema/validation")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report database.ValidationReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if !report.Valid {
		t.Fatalf("expected a valid schema, issues: %v", report.Issues)
	}
}

func TestQueryReportEndpoints(t *testing.T) {
	s := testServer(t)

	if _, err := s.monitor.Execute(context.Background(), "SELECT COUNT(*) FROM papers"); err != nil {
		t.Fatalf("monitored query failed: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/queries/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var report database.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.TotalQueries != 1 {
		t.Fatalf("expected 1 recorded query, got %d", report.TotalQueries)
	}

	if rec := doRequest(t, s, http.MethodPost, "/api/queries/reset"); rec.Code != http.StatusOK {
		t.Fatalf("reset failed with %d", rec.Code)
	}
	if got := s.monitor.GetReport(); got.TotalQueries != 0 {
		t.Fatalf("expected empty report after reset, got %d queries", got.TotalQueries)
	}
}

func TestMaintenanceEndpoint(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/maintenance/integrity")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
