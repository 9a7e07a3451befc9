package violation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// maxRequestBytes caps JSON request bodies
const maxRequestBytes = 1 << 20

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListViolations returns all violations
func (s *Server) handleListViolations(w http.ResponseWriter, r *http.Request) {
	violations, err := s.service.List()
	if err != nil {
		slog.Error("Error listing violations", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if violations == nil {
		violations = []*Violation{}
	}
	writeJSON(w, http.StatusOK, violations)
}

// handleGetViolation returns a single violation
func (s *Server) handleGetViolation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Violation ID required", http.StatusBadRequest)
		return
	}

	v, err := s.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Violation not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting violation", "id", id, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleDeleteViolation deletes a violation
func (s *Server) handleDeleteViolation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Violation ID required", http.StatusBadRequest)
		return
	}

	if err := s.service.Delete(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Violation not found", http.StatusNotFound)
			return
		}
		slog.Error("Error deleting violation", "id", id, "error", err)
		corsError(w, "Error deleting violation", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCreateViolation processes a document and stores the violation
func (s *Server) handleCreateViolation(w http.ResponseWriter, r *http.Request) {
	var doc Document
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&doc); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if doc.URL == "" || doc.Defendant == "" {
		jsonError(w, "url and defendant are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := WithDeadline(r.Context(), s.timeout)
	defer cancel()

	v, err := s.service.Record(ctx, doc)
	switch {
	case errors.Is(err, ErrDuplicate):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, ErrNoText):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		slog.Error("Error recording violation", "url", doc.URL, "error", err)
		jsonError(w, "Error recording violation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

// handlePreview extracts a document without storing it
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil || req.URL == "" {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := WithDeadline(r.Context(), s.timeout)
	defer cancel()

	preview, err := s.service.Preview(ctx, req.URL)
	if err != nil {
		if errors.Is(err, ErrNoText) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}
