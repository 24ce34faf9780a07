package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/scilit/paperbase/internal/database"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSchemaValidation(w http.ResponseWriter, r *http.Request) {
	report, err := s.validator.ValidateSchema(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSchemaInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.validator.GetSchemaInfo(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleQueryReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.GetReport())
}

func (s *Server) handleQueryReset(w http.ResponseWriter, r *http.Request) {
	s.monitor.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleMaintenance(name string, fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			log.Error().Err(err).Str("job", name).Msg("Maintenance request failed")
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "job": name})
	}
}

// writeStorageError maps the storage error taxonomy onto HTTP statuses: pool
// exhaustion is backpressure (503), everything else is a server error.
func writeStorageError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, database.ErrPoolExhausted) {
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
