// Package report renders a printable HTML report of a dataset.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

// DefaultMaxRows is the number of records shown in the record table.
const DefaultMaxRows = 50

// Placeholder is rendered for absent values.
const Placeholder = "—"

// Data is everything a report needs.
type Data struct {
	Dataset equipment.Dataset
	Records []equipment.Record
	Summary equipment.Summary
}

// Truncate returns at most max records. A non-positive max keeps all.
func Truncate(records []equipment.Record, max int) []equipment.Record {
	if max <= 0 || len(records) <= max {
		return records
	}
	return records[:max]
}

// Page renders the report document.
func Page(d Data) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}

		ew.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		ew.printf(`<title>Equipment Report: %s</title>`, templ.EscapeString(d.Dataset.Filename))
		ew.printf(`<style>%s</style></head><body>`, styles)

		ew.printf(`<header><h1>Equipment Report</h1>`)
		ew.printf(`<p class="meta">%s &middot; uploaded %s</p></header>`,
			templ.EscapeString(d.Dataset.Filename),
			templ.EscapeString(d.Dataset.CreatedAt.Format("2006-01-02 15:04 MST")),
		)

		ew.printf(`<section class="cards">`)
		card(ew, "Total Equipment", strconv.Itoa(d.Summary.TotalCount))
		card(ew, "Avg Flowrate", fixed2(d.Summary.AvgFlowrate)+" m³/h")
		card(ew, "Avg Pressure", fixed2(d.Summary.AvgPressure)+" bar")
		card(ew, "Avg Temperature", fixed2(d.Summary.AvgTemperature)+" °C")
		ew.printf(`</section>`)

		ew.printf(`<section><h2>Type Distribution</h2><table><thead><tr><th>Type</th><th>Count</th><th>Share</th></tr></thead><tbody>`)
		for _, tc := range d.Summary.TypeDistribution {
			ew.printf(`<tr><td>%s</td><td>%d</td><td>%s%%</td></tr>`,
				templ.EscapeString(tc.Type), tc.Count, percent(tc.Count, d.Summary.TotalCount))
		}
		ew.printf(`</tbody></table></section>`)

		ew.printf(`<section><h2>Equipment</h2>`)
		if len(d.Records) < d.Summary.TotalCount {
			ew.printf(`<p class="note">Showing %d of %d records.</p>`, len(d.Records), d.Summary.TotalCount)
		}
		ew.printf(`<table><thead><tr><th>Name</th><th>Type</th><th>Flowrate</th><th>Pressure</th><th>Temperature</th></tr></thead><tbody>`)
		for _, r := range d.Records {
			ew.printf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(r.Name),
				templ.EscapeString(r.Type),
				optional(r.Flowrate),
				optional(r.Pressure),
				optional(r.Temperature),
			)
		}
		ew.printf(`</tbody></table></section></body></html>`)

		return ew.err
	})
}

func card(ew *errWriter, label, value string) {
	ew.printf(`<div class="card"><span class="label">%s</span><span class="value">%s</span></div>`,
		templ.EscapeString(label), templ.EscapeString(value))
}

func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optional(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fixed2(*v)
}

func percent(count, total int) string {
	if total == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(float64(count)*100/float64(total), 'f', 1, 64)
}

// errWriter stops writing after the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

const styles = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}` +
	`h1{margin:0}.meta{color:#6b7280}` +
	`.cards{display:flex;gap:1rem;margin:1.5rem 0}` +
	`.card{border:1px solid #e5e7eb;border-radius:6px;padding:.75rem 1rem;flex:1}` +
	`.label{display:block;font-size:.8rem;color:#6b7280}.value{font-size:1.25rem;font-weight:600}` +
	`table{border-collapse:collapse;width:100%;margin-bottom:1.5rem}` +
	`th,td{border-bottom:1px solid #e5e7eb;padding:.35rem .5rem;text-align:left}` +
	`.note{color:#6b7280;font-size:.85rem}` +
	`@media print{body{margin:0}.cards{break-inside:avoid}}`
