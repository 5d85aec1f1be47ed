// Package view applies live text filtering and column sorting to a record
// set for presentation. It holds no state; callers recompute the view
// whenever the records or the query change.
package view

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

// SortKey names the column a view is sorted by.
type SortKey string

const (
	SortName        SortKey = "name"
	SortType        SortKey = "type"
	SortFlowrate    SortKey = "flowrate"
	SortPressure    SortKey = "pressure"
	SortTemperature SortKey = "temperature"
)

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Query is the user-controlled filter and sort state of a table.
type Query struct {
	Search    string    `json:"search"`
	SortKey   SortKey   `json:"sort"`
	Direction Direction `json:"dir"`
}

// DefaultQuery sorts by name, ascending, with no filter.
func DefaultQuery() Query {
	return Query{SortKey: SortName, Direction: Asc}
}

// Toggle returns the query after a click on a column header: the same column
// flips direction, a different column starts ascending.
func (q Query) Toggle(key SortKey) Query {
	if q.SortKey == key {
		if q.Direction == Asc {
			q.Direction = Desc
		} else {
			q.Direction = Asc
		}
		return q
	}
	q.SortKey = key
	q.Direction = Asc
	return q
}

// ParseSortKey validates a sort column name. An empty string selects the
// default.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortName, nil
	case SortName, SortType, SortFlowrate, SortPressure, SortTemperature:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort column %q", s)
	}
}

// ParseDirection validates a sort direction. Anything but "desc" is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Engine presents records using the collation rules of one locale.
type Engine struct {
	tag language.Tag
}

// NewEngine creates an Engine for a BCP 47 locale such as "en" or "de-CH".
// An unparseable locale falls back to English.
func NewEngine(locale string) *Engine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Engine{tag: tag}
}

// Present filters and sorts records according to q. The input slice is not
// modified.
//
// Filtering keeps records whose name or type contains the search term,
// ignoring case. Sorting is stable. Records with an absent value for a
// numeric key always go to the end, whatever the direction.
func (e *Engine) Present(records []equipment.Record, q Query) []equipment.Record {
	out := filter(records, q.Search)

	key := q.SortKey
	if key == "" {
		key = SortName
	}
	desc := q.Direction == Desc

	switch key {
	case SortName, SortType:
		// Collators carry internal buffers and are not safe for concurrent use.
		col := collate.New(e.tag)
		text := func(r equipment.Record) string {
			if key == SortType {
				return r.Type
			}
			return r.Name
		}
		sort.SliceStable(out, func(i, j int) bool {
			c := col.CompareString(text(out[i]), text(out[j]))
			if desc {
				return c > 0
			}
			return c < 0
		})

	default:
		value := numericField(key)
		sort.SliceStable(out, func(i, j int) bool {
			a, b := value(out[i]), value(out[j])
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			}
			d := *a - *b
			if desc {
				return d > 0
			}
			return d < 0
		})
	}

	return out
}

// Present uses an English engine.
func Present(records []equipment.Record, q Query) []equipment.Record {
	return NewEngine("en").Present(records, q)
}

func filter(records []equipment.Record, search string) []equipment.Record {
	out := make([]equipment.Record, 0, len(records))
	if search == "" {
		return append(out, records...)
	}

	term := strings.ToLower(search)
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), term) ||
			strings.Contains(strings.ToLower(r.Type), term) {
			out = append(out, r)
		}
	}
	return out
}

func numericField(key SortKey) func(equipment.Record) *float64 {
	switch key {
	case SortPressure:
		return func(r equipment.Record) *float64 { return r.Pressure }
	case SortTemperature:
		return func(r equipment.Record) *float64 { return r.Temperature }
	default:
		return func(r equipment.Record) *float64 { return r.Flowrate }
	}
}
