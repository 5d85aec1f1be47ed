package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/equipment"
	"github.com/JonMunkholm/equipview/internal/report"
	"github.com/JonMunkholm/equipview/internal/view"
)

// History is the session's recent datasets and current selection.
type History struct {
	Datasets  []equipment.Dataset `json:"datasets"`
	CurrentID string              `json:"currentId,omitempty"`
}

// CurrentView is the selected dataset as presented under a query. Summary is
// computed over the presented records, so it follows the filter.
type CurrentView struct {
	Dataset *equipment.Dataset `json:"dataset"`
	Query   view.Query         `json:"query"`
	Summary equipment.Summary  `json:"summary"`
	Records []equipment.Record `json:"records"`
}

// History reloads and returns the session's history.
func (s *Service) History(ctx context.Context, sess auth.Session) (History, error) {
	if !sess.Actor.Authenticated() {
		return History{}, ErrUnauthorized
	}

	m := s.Manager(ctx, sess)
	if err := m.RefreshHistory(ctx); err != nil {
		return History{}, err
	}
	return historyOf(m.Snapshot()), nil
}

func historyOf(st State) History {
	h := History{Datasets: st.Datasets}
	if st.Current != nil {
		h.CurrentID = st.Current.ID
	}
	return h
}

// Current presents the selected dataset under q. With nothing selected the
// view has a nil Dataset and no records.
func (s *Service) Current(ctx context.Context, sess auth.Session, q view.Query) (CurrentView, error) {
	if !sess.Actor.Authenticated() {
		return CurrentView{}, ErrUnauthorized
	}

	st := s.Manager(ctx, sess).Snapshot()
	records := s.view.Present(st.Records, q)
	return CurrentView{
		Dataset: st.Current,
		Query:   q,
		Summary: equipment.Summarize(records),
		Records: records,
	}, nil
}

// ReportData builds the printable report of the selected dataset. The
// record table is capped at the configured row limit.
func (s *Service) ReportData(ctx context.Context, sess auth.Session, q view.Query) (report.Data, error) {
	cv, err := s.Current(ctx, sess, q)
	if err != nil {
		return report.Data{}, err
	}
	if cv.Dataset == nil {
		return report.Data{}, fmt.Errorf("no dataset selected: %w", ErrDatasetNotFound)
	}

	return report.Data{
		Dataset: *cv.Dataset,
		Records: report.Truncate(cv.Records, s.cfg.ReportMaxRows),
		Summary: cv.Summary,
	}, nil
}

var exportHeader = []string{"name", "type", "flowrate", "pressure", "temperature"}

// Export writes the presented records of the selected dataset as CSV.
// Absent values are written as empty cells. Returns the dataset exported.
func (s *Service) Export(ctx context.Context, sess auth.Session, q view.Query, w io.Writer) (equipment.Dataset, error) {
	cv, err := s.Current(ctx, sess, q)
	if err != nil {
		return equipment.Dataset{}, err
	}
	if cv.Dataset == nil {
		return equipment.Dataset{}, fmt.Errorf("no dataset selected: %w", ErrDatasetNotFound)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return equipment.Dataset{}, err
	}
	for _, r := range cv.Records {
		if err := cw.Write([]string{r.Name, r.Type, cell(r.Flowrate), cell(r.Pressure), cell(r.Temperature)}); err != nil {
			return equipment.Dataset{}, err
		}
	}
	cw.Flush()
	return *cv.Dataset, cw.Error()
}

func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
