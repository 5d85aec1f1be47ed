package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

const (
	// DefaultType is used when a row has an empty type cell.
	DefaultType = "Unknown"

	defaultNamePrefix = "Equipment"
)

// BuildRecords turns data lines into typed records.
//
// Lines are processed in order and numbered from 1 for default naming; the
// number counts every data line, including ones that are later skipped.
// Blank lines produce nothing. Lines with fewer fields than the header are
// dropped silently and counted in the returned skipped total.
func BuildRecords(lines []string, header []string, cols ColumnMap) (records []equipment.Record, skipped int) {
	records = make([]equipment.Record, 0, len(lines))

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := Tokenize(line)
		if len(fields) < len(header) {
			skipped++
			continue
		}

		records = append(records, buildRecord(fields, cols, i+1))
	}

	return records, skipped
}

func buildRecord(fields []string, cols ColumnMap, lineNum int) equipment.Record {
	name := cellAt(fields, cols.Name)
	if name == "" {
		name = fmt.Sprintf("%s %d", defaultNamePrefix, lineNum)
	}

	typ := cellAt(fields, cols.Type)
	if typ == "" {
		typ = DefaultType
	}

	return equipment.Record{
		Name:        name,
		Type:        typ,
		Flowrate:    parseNumber(fields, cols.Flowrate),
		Pressure:    parseNumber(fields, cols.Pressure),
		Temperature: parseNumber(fields, cols.Temperature),
	}
}

// cellAt returns the trimmed cell at idx, or "" if the column is unresolved
// or beyond the row.
func cellAt(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}

// parseNumber returns the finite number at idx, or nil when the column is
// unresolved, the cell is empty, or the text is not a number.
func parseNumber(fields []string, idx int) *float64 {
	s := cellAt(fields, idx)
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
