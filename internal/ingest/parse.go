// Package ingest turns loosely structured CSV text into typed equipment
// records.
//
// The pipeline is:
//
//  1. Strip a UTF-8 BOM and repair invalid UTF-8
//  2. Split the trimmed text into lines
//  3. Tokenize the header and resolve the semantic columns by substring
//  4. Build one record per data line, dropping blank and short lines
//  5. Summarize the surviving records
//
// Everything here is pure and synchronous. Errors stop the whole ingestion,
// so a failed parse never reaches the record store.
package ingest

import (
	"strings"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

// Result is the output of a successful parse.
type Result struct {
	Filename    string             `json:"filename"`
	Records     []equipment.Record `json:"records"`
	Summary     equipment.Summary  `json:"summary"`
	Columns     ColumnMap          `json:"columns"`
	SkippedRows int                `json:"skippedRows"` // Data lines dropped for having too few fields
}

// Parse ingests the text of one uploaded file.
//
// Returns ErrEmptyFile if there is no header plus data line, a
// *MissingColumnError if name or type cannot be resolved, and
// ErrNoValidRecords if no data line survives.
func Parse(data []byte, filename string) (*Result, error) {
	text := strings.TrimSpace(string(sanitize(data)))
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, ErrEmptyFile
	}

	header := Tokenize(strings.TrimSpace(lines[0]))
	cols, err := ResolveColumns(header)
	if err != nil {
		return nil, err
	}

	records, skipped := BuildRecords(lines[1:], header, cols)
	if len(records) == 0 {
		return nil, ErrNoValidRecords
	}

	return &Result{
		Filename:    filename,
		Records:     records,
		Summary:     equipment.Summarize(records),
		Columns:     cols,
		SkippedRows: skipped,
	}, nil
}

// ParseString is Parse for text already held as a string.
func ParseString(text, filename string) (*Result, error) {
	return Parse([]byte(text), filename)
}
