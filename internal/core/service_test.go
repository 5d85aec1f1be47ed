package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/events"
	"github.com/JonMunkholm/equipview/internal/ingest"
	"github.com/JonMunkholm/equipview/internal/store"
	"github.com/JonMunkholm/equipview/internal/view"
)

type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (a *memArchive) Put(_ context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.objects == nil {
		a.objects = make(map[string][]byte)
	}
	a.objects[key] = data
	return nil
}

func newTestService() (*Service, *memArchive, *events.Recorder) {
	arch := &memArchive{}
	rec := &events.Recorder{}
	svc := NewService(store.NewMemory(), ServiceConfig{MaxFileSize: 1024, ReportMaxRows: 1},
		WithArchiver(arch), WithPublisher(rec))
	return svc, arch, rec
}

var alice = auth.Session{Token: "tok-alice", Actor: auth.Actor{ID: "alice"}}

func TestService_CheckUpload(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name     string
		filename string
		size     int64
		want     error
	}{
		{"ok", "plant.csv", 10, nil},
		{"upper case extension", "PLANT.CSV", 10, nil},
		{"wrong extension", "plant.xlsx", 10, ErrNotCSV},
		{"no extension", "plant", 10, ErrNotCSV},
		{"empty", "plant.csv", 0, ingest.ErrEmptyFile},
		{"too large", "plant.csv", 1025, ErrFileTooLarge},
		{"at limit", "plant.csv", 1024, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckUpload(tt.filename, tt.size)
			if tt.want == nil && err != nil {
				t.Errorf("CheckUpload() error = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("CheckUpload() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestService_Preview(t *testing.T) {
	svc, _, _ := newTestService()

	res, err := svc.Preview(context.Background(), "plant.csv", []byte(plantCSV))
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(res.Records) != 2 {
		t.Errorf("Preview() records = %d, want 2", len(res.Records))
	}
	if svc.ActiveSessions() != 0 {
		t.Error("Preview() should not create a session manager")
	}

	_, err = svc.Preview(context.Background(), "bad.csv", []byte("foo,bar\n1,2\n"))
	if !errors.Is(err, ingest.ErrMissingColumn) {
		t.Errorf("Preview() error = %v, want ErrMissingColumn", err)
	}
}

func TestService_Upload(t *testing.T) {
	svc, arch, rec := newTestService()
	ctx := context.Background()

	result, err := svc.Upload(ctx, alice, "plant.csv", []byte(plantCSV))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.Dataset.TotalCount != 2 || result.Summary.TotalCount != 2 {
		t.Errorf("Upload() = %+v, want 2 records", result)
	}

	key := "alice/" + result.Dataset.ID + "/plant.csv"
	if string(arch.objects[key]) != plantCSV {
		t.Errorf("archive missing %s", key)
	}

	got := rec.Events()
	if len(got) != 1 || got[0].Type != events.DatasetCreated || got[0].DatasetID != result.Dataset.ID {
		t.Errorf("events = %+v, want one dataset.created", got)
	}

	h, err := svc.History(ctx, alice)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if h.CurrentID != result.Dataset.ID || len(h.Datasets) != 1 {
		t.Errorf("History() = %+v, want new dataset current", h)
	}
}

func TestService_UploadArchiveFailureIsNotFatal(t *testing.T) {
	svc, arch, _ := newTestService()
	arch.err = errors.New("bucket gone")

	if _, err := svc.Upload(context.Background(), alice, "plant.csv", []byte(plantCSV)); err != nil {
		t.Errorf("Upload() error = %v, want nil", err)
	}
}

func TestService_UploadRejections(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()

	if _, err := svc.Upload(ctx, auth.Session{}, "plant.csv", []byte(plantCSV)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous Upload() error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Upload(ctx, alice, "plant.txt", []byte(plantCSV)); !errors.Is(err, ErrNotCSV) {
		t.Errorf("Upload(.txt) error = %v, want ErrNotCSV", err)
	}
	if _, err := svc.Upload(ctx, alice, "plant.csv", []byte("name,type\n\n\n")); !errors.Is(err, ingest.ErrEmptyFile) {
		t.Errorf("Upload(header only) error = %v, want ErrEmptyFile", err)
	}
	if len(rec.Events()) != 0 {
		t.Error("rejected uploads must not publish events")
	}
}

func TestService_CurrentAppliesQuery(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Upload(ctx, alice, "plant.csv", []byte(plantCSV)); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	cv, err := svc.Current(ctx, alice, view.Query{Search: "valve"})
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if len(cv.Records) != 1 || cv.Records[0].Name != "V-1" {
		t.Errorf("Current() records = %+v, want only V-1", cv.Records)
	}
	if cv.Summary.TotalCount != 1 || cv.Summary.AvgPressure != 4 {
		t.Errorf("Current() summary = %+v, want summary of filtered records", cv.Summary)
	}
}

func TestService_CurrentWithoutSelection(t *testing.T) {
	svc, _, _ := newTestService()

	cv, err := svc.Current(context.Background(), alice, view.DefaultQuery())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cv.Dataset != nil || len(cv.Records) != 0 {
		t.Errorf("Current() = %+v, want empty view", cv)
	}

	if _, err := svc.ReportData(context.Background(), alice, view.DefaultQuery()); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("ReportData() error = %v, want ErrDatasetNotFound", err)
	}
}

func TestService_ReportDataTruncates(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upload(ctx, alice, "plant.csv", []byte(plantCSV))

	d, err := svc.ReportData(ctx, alice, view.DefaultQuery())
	if err != nil {
		t.Fatalf("ReportData() error = %v", err)
	}
	if len(d.Records) != 1 {
		t.Errorf("ReportData() records = %d, want 1 (row limit)", len(d.Records))
	}
	if d.Summary.TotalCount != 2 {
		t.Errorf("ReportData() summary total = %d, want 2", d.Summary.TotalCount)
	}
}

func TestService_Export(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upload(ctx, alice, "plant.csv", []byte(plantCSV))

	var buf bytes.Buffer
	ds, err := svc.Export(ctx, alice, view.Query{SortKey: view.SortName, Direction: view.Desc}, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ds.Filename != "plant.csv" {
		t.Errorf("Export() dataset = %q, want plant.csv", ds.Filename)
	}

	want := "name,type,flowrate,pressure,temperature\nV-1,Valve,,4,\nP-1,Pump,10,2,50\n"
	if buf.String() != want {
		t.Errorf("Export() =\n%s\nwant\n%s", buf.String(), want)
	}

	// The export parses back to the same records.
	res, err := ingest.Parse(buf.Bytes(), "export.csv")
	if err != nil {
		t.Fatalf("re-parse error = %v", err)
	}
	if len(res.Records) != 2 || res.Records[0].Flowrate != nil {
		t.Errorf("re-parsed records = %+v", res.Records)
	}
}

func TestService_RemovePublishes(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()
	result, _ := svc.Upload(ctx, alice, "plant.csv", []byte(plantCSV))

	h, err := svc.Remove(ctx, alice, result.Dataset.ID)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if h.CurrentID != "" || len(h.Datasets) != 0 {
		t.Errorf("History after Remove() = %+v, want empty", h)
	}

	got := rec.Events()
	if len(got) != 2 || got[1].Type != events.DatasetDeleted {
		t.Errorf("events = %+v, want created then deleted", got)
	}

	if _, err := svc.Remove(ctx, alice, result.Dataset.ID); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("second Remove() error = %v, want ErrDatasetNotFound", err)
	}
	if len(rec.Events()) != 2 {
		t.Error("failed remove must not publish")
	}
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	bob := auth.Session{Token: "tok-bob", Actor: auth.Actor{ID: "bob"}}

	result, _ := svc.Upload(ctx, alice, "plant.csv", []byte(plantCSV))

	h, err := svc.History(ctx, bob)
	if err != nil {
		t.Fatalf("History(bob) error = %v", err)
	}
	if len(h.Datasets) != 0 {
		t.Errorf("bob sees %d datasets, want 0", len(h.Datasets))
	}
	if _, err := svc.Select(ctx, bob, result.Dataset.ID); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Select(bob, alice's) error = %v, want ErrDatasetNotFound", err)
	}
}

func TestService_EndSessionAndReap(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upload(ctx, alice, "plant.csv", []byte(plantCSV))

	bob := auth.Session{Token: "tok-bob", Actor: auth.Actor{ID: "bob"}}
	svc.Manager(ctx, bob)
	if svc.ActiveSessions() != 2 {
		t.Fatalf("ActiveSessions() = %d, want 2", svc.ActiveSessions())
	}

	svc.EndSession(bob.Token)
	if svc.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions() after EndSession = %d, want 1", svc.ActiveSessions())
	}

	svc.registry.now = func() time.Time { return time.Now().Add(time.Hour) }
	svc.reapOnce(30 * time.Minute)
	if svc.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() after reap = %d, want 0", svc.ActiveSessions())
	}

	// A reaped session is rebuilt from the store on its next request.
	h, err := svc.History(ctx, alice)
	if err != nil || len(h.Datasets) != 1 || h.CurrentID == "" {
		t.Errorf("History() after reap = %+v, %v; want restored dataset", h, err)
	}
}

func TestStartSessionReaperStops(t *testing.T) {
	svc, _, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartSessionReaper(ctx, ReaperConfig{CheckInterval: 5 * time.Millisecond, IdleTimeout: time.Hour})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("reaper did not stop after cancel")
	}
}

func TestRegistry_ForSession(t *testing.T) {
	r := NewRegistry(store.NewMemory(), 5)

	m1, created := r.ForSession(alice)
	if !created {
		t.Error("first ForSession() should create")
	}
	m2, created := r.ForSession(alice)
	if created || m1 != m2 {
		t.Error("second ForSession() should return the same manager")
	}

	// Same token bound to another actor never reuses the manager.
	m3, created := r.ForSession(auth.Session{Token: alice.Token, Actor: auth.Actor{ID: "mallory"}})
	if !created || m3 == m1 || m3.Actor().ID != "mallory" {
		t.Error("token rebound to another actor should get a fresh manager")
	}
}

func TestExportHeaderMatchesParser(t *testing.T) {
	cols, err := ingest.ResolveColumns(exportHeader)
	if err != nil {
		t.Fatalf("ResolveColumns(exportHeader) error = %v", err)
	}
	if cols.Flowrate != 2 || cols.Temperature != 4 {
		t.Errorf("export header resolved to %+v", cols)
	}
	if !strings.Contains(strings.Join(exportHeader, ","), "name,type") {
		t.Error("export header must lead with name,type")
	}
}
