package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/core"
	"github.com/JonMunkholm/equipview/internal/view"
)

// multipartOverhead is allowed on top of the file size limit for the
// multipart boundaries and headers.
const multipartOverhead = 64 << 10

var msgBadSort = core.UserMessage{
	Message: "Unknown sort column",
	Action:  "Sort by name, type, flowrate, pressure or temperature",
	Code:    "VAL001",
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json encode error", "error", err)
	}
}

// session returns the session SessionAuth stored on the request.
func session(r *http.Request) auth.Session {
	sess, _ := auth.SessionFromContext(r.Context())
	return sess
}

// parseQuery reads search, sort and dir query parameters.
func parseQuery(r *http.Request) (view.Query, error) {
	values := r.URL.Query()
	key, err := view.ParseSortKey(values.Get("sort"))
	if err != nil {
		return view.Query{}, &core.UserError{Technical: err, User: msgBadSort}
	}
	return view.Query{
		Search:    values.Get("search"),
		SortKey:   key,
		Direction: view.ParseDirection(values.Get("dir")),
	}, nil
}

// readUpload reads the multipart "file" field. The body is capped at the
// configured file size plus multipart overhead; CheckUpload applies the
// exact limit to the file itself.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.service.Config().MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return "", nil, core.ErrFileTooLarge
		}
		return "", nil, core.ErrNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, core.ErrNoFile
	}
	defer file.Close()

	if header.Size > maxSize {
		return "", nil, core.ErrFileTooLarge
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}
