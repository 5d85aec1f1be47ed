package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

func render(t *testing.T, d Data) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Page(d).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestPage(t *testing.T) {
	records := []equipment.Record{
		{Name: "P-1", Type: "Pump", Flowrate: equipment.Float(10), Pressure: equipment.Float(2.346)},
		{Name: "P-2", Type: "Pump", Flowrate: equipment.Float(20)},
		{Name: "<V-1>", Type: "Valve", Temperature: equipment.Float(0)},
	}
	d := Data{
		Dataset: equipment.Dataset{Filename: "plant & co.csv", CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		Records: records,
		Summary: equipment.Summarize(records),
	}

	html := render(t, d)

	wants := []string{
		"plant &amp; co.csv",
		"15.00 m³/h",
		"2.35 bar",
		"0.00 °C",
		"<td>Pump</td><td>2</td><td>66.7%</td>",
		"<td>Valve</td><td>1</td><td>33.3%</td>",
		"&lt;V-1&gt;",
		"<td>" + Placeholder + "</td>",
	}
	for _, want := range wants {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(html, "<V-1>") {
		t.Error("record name was not escaped")
	}
	if strings.Contains(html, "Showing") {
		t.Error("untruncated report should not show a truncation note")
	}
}

func TestPage_Truncated(t *testing.T) {
	var records []equipment.Record
	for i := 0; i < 60; i++ {
		records = append(records, equipment.Record{Name: "E", Type: "Pump"})
	}

	html := render(t, Data{
		Records: Truncate(records, DefaultMaxRows),
		Summary: equipment.Summarize(records),
	})

	if !strings.Contains(html, "Showing 50 of 60 records.") {
		t.Error("truncated report should say how many records are shown")
	}
	if n := strings.Count(html, "<td>E</td>"); n != 50 {
		t.Errorf("record rows = %d, want 50", n)
	}
}

func TestPage_EmptySummary(t *testing.T) {
	html := render(t, Data{})
	if !strings.Contains(html, "0.00 m³/h") {
		t.Error("empty report should render zero averages")
	}
}

func TestTruncate(t *testing.T) {
	records := make([]equipment.Record, 3)
	tests := []struct {
		max  int
		want int
	}{
		{0, 3},
		{-1, 3},
		{2, 2},
		{5, 3},
	}
	for _, tt := range tests {
		if got := len(Truncate(records, tt.max)); got != tt.want {
			t.Errorf("Truncate(3 records, %d) len = %d, want %d", tt.max, got, tt.want)
		}
	}
}
