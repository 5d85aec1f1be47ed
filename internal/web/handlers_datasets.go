package web

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/equipview/internal/report"
)

// handleHistory reloads and returns the session's recent datasets.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.service.History(r.Context(), session(r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleCurrent returns the current dataset filtered and sorted by the
// search, sort and dir query parameters.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	cur, err := s.service.Current(r.Context(), session(r), q)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	h, err := s.service.Select(r.Context(), session(r), chi.URLParam(r, "datasetID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	h, err := s.service.Remove(r.Context(), session(r), chi.URLParam(r, "datasetID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleReport renders the printable HTML report of the current dataset.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	data, err := s.service.ReportData(r.Context(), session(r), q)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	// Render to a buffer so a failure can still produce an error response.
	var buf bytes.Buffer
	if err := report.Page(data).Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, fmt.Errorf("render report: %w", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleExport downloads the presented records of the current dataset as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	ds, err := s.service.Export(r.Context(), session(r), q, &buf)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, exportName(ds.Filename)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// exportName derives the download name from the uploaded file name.
func exportName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "equipment"
	}
	return base + "-export.csv"
}
