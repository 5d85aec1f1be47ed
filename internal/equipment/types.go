// Package equipment holds the domain types shared by ingestion, storage,
// presentation and the dataset lifecycle.
package equipment

import "time"

// Record is one row of ingested equipment data.
//
// A nil numeric field means the value is absent: the cell was empty, not a
// number, or its column was not found in the header. Absent values are
// excluded from averages and rendered as a placeholder, never as zero.
type Record struct {
	ID          string   `json:"id,omitempty"` // Store-assigned, empty before persistence
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Flowrate    *float64 `json:"flowrate"`
	Pressure    *float64 `json:"pressure"`
	Temperature *float64 `json:"temperature"`
}

// Dataset is one completed ingestion, persisted as the parent of its records.
// The averages are computed at ingestion time and never recomputed from the
// stored children.
type Dataset struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	Filename       string    `json:"filename"`
	TotalCount     int       `json:"totalCount"`
	AvgFlowrate    float64   `json:"avgFlowrate"`
	AvgPressure    float64   `json:"avgPressure"`
	AvgTemperature float64   `json:"avgTemperature"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewDataset contains the fields supplied by the caller when creating a
// dataset. ID and CreatedAt are assigned by the store.
type NewDataset struct {
	OwnerID        string
	Filename       string
	TotalCount     int
	AvgFlowrate    float64
	AvgPressure    float64
	AvgTemperature float64
}

// TypeCount is one bucket of the type distribution histogram.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Summary holds statistics derived from a record set.
type Summary struct {
	TotalCount       int         `json:"totalCount"`
	AvgFlowrate      float64     `json:"avgFlowrate"`
	AvgPressure      float64     `json:"avgPressure"`
	AvgTemperature   float64     `json:"avgTemperature"`
	TypeDistribution []TypeCount `json:"typeDistribution"`
}

// NewDatasetFromSummary freezes the scalar projections of a summary into the
// fields of a dataset row.
func NewDatasetFromSummary(ownerID, filename string, s Summary) NewDataset {
	return NewDataset{
		OwnerID:        ownerID,
		Filename:       filename,
		TotalCount:     s.TotalCount,
		AvgFlowrate:    s.AvgFlowrate,
		AvgPressure:    s.AvgPressure,
		AvgTemperature: s.AvgTemperature,
	}
}

// Float returns a pointer to v. Handy for building records in code and tests.
func Float(v float64) *float64 {
	return &v
}
