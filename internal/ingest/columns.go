package ingest

import (
	"regexp"
	"strings"
)

// NotFound is the column index of a semantic field missing from the header.
const NotFound = -1

// Field identifies one of the semantic fields the resolver looks for.
type Field string

const (
	FieldName        Field = "name"
	FieldType        Field = "type"
	FieldFlowrate    Field = "flowrate"
	FieldPressure    Field = "pressure"
	FieldTemperature Field = "temperature"
)

// ColumnMap holds the header position of each semantic field, or NotFound.
type ColumnMap struct {
	Name        int `json:"name"`
	Type        int `json:"type"`
	Flowrate    int `json:"flowrate"`
	Pressure    int `json:"pressure"`
	Temperature int `json:"temperature"`
}

// columnRule maps a semantic field to the substrings that identify it in a
// normalized header cell.
type columnRule struct {
	field    Field
	markers  []string
	required bool
}

// columnRules is evaluated once per field over the full header. A header cell
// may satisfy several rules.
var columnRules = []columnRule{
	{field: FieldName, markers: []string{"name", "equipment"}, required: true},
	{field: FieldType, markers: []string{"type"}, required: true},
	{field: FieldFlowrate, markers: []string{"flow"}},
	{field: FieldPressure, markers: []string{"pressure"}},
	{field: FieldTemperature, markers: []string{"temp"}},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeHeader trims and lowercases a header cell and collapses every
// internal whitespace run into a single underscore.
func NormalizeHeader(cell string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(cell)), "_")
}

// ResolveColumns locates the semantic fields in a header row using substring
// markers. For each field the first matching column wins. It returns a
// *MissingColumnError when name or type cannot be found; the numeric fields
// are optional and stay NotFound.
func ResolveColumns(header []string) (ColumnMap, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	cols := ColumnMap{}
	for _, rule := range columnRules {
		idx := findColumn(normalized, rule.markers)
		if idx == NotFound && rule.required {
			return ColumnMap{}, &MissingColumnError{Field: rule.field}
		}
		*cols.slot(rule.field) = idx
	}

	return cols, nil
}

// Index returns the resolved position of a field.
func (c ColumnMap) Index(f Field) int {
	return *c.slot(f)
}

func (c *ColumnMap) slot(f Field) *int {
	switch f {
	case FieldName:
		return &c.Name
	case FieldType:
		return &c.Type
	case FieldFlowrate:
		return &c.Flowrate
	case FieldPressure:
		return &c.Pressure
	default:
		return &c.Temperature
	}
}

func findColumn(normalized []string, markers []string) int {
	for i, h := range normalized {
		for _, m := range markers {
			if strings.Contains(h, m) {
				return i
			}
		}
	}
	return NotFound
}
