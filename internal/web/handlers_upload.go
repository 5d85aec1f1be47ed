package web

import (
	"net/http"
)

// handlePreview parses an uploaded CSV and returns the records and summary
// without persisting anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	result, err := s.service.Preview(r.Context(), filename, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleUpload ingests an uploaded CSV as a new dataset and selects it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	result, err := s.service.Upload(r.Context(), session(r), filename, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
