package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/equipment"
	"github.com/JonMunkholm/equipview/internal/ingest"
	"github.com/JonMunkholm/equipview/internal/store"
)

var errInjected = errors.New("injected store failure")

// faultStore wraps the memory store and fails selected calls on demand.
type faultStore struct {
	*store.Memory

	mu                sync.Mutex
	failInsertDataset bool
	failInsertEquip   bool
	failList          bool
	failGet           bool
	failListEquip     bool
	listCalls         int

	// When set, ListRecentDatasets signals entered and waits on gate.
	entered chan struct{}
	gate    chan struct{}
}

func newFaultStore() *faultStore {
	return &faultStore{Memory: store.NewMemory()}
}

func (f *faultStore) set(fn func(f *faultStore)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *faultStore) fail(flag *bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *flag
}

func (f *faultStore) InsertDataset(ctx context.Context, nd equipment.NewDataset) (equipment.Dataset, error) {
	if f.fail(&f.failInsertDataset) {
		return equipment.Dataset{}, errInjected
	}
	return f.Memory.InsertDataset(ctx, nd)
}

func (f *faultStore) InsertEquipment(ctx context.Context, id string, records []equipment.Record) error {
	if f.fail(&f.failInsertEquip) {
		return errInjected
	}
	return f.Memory.InsertEquipment(ctx, id, records)
}

func (f *faultStore) ListRecentDatasets(ctx context.Context, owner string, limit int) ([]equipment.Dataset, error) {
	f.mu.Lock()
	f.listCalls++
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		<-gate
	}
	if f.fail(&f.failList) {
		return nil, errInjected
	}
	return f.Memory.ListRecentDatasets(ctx, owner, limit)
}

func (f *faultStore) GetDataset(ctx context.Context, id string) (equipment.Dataset, error) {
	if f.fail(&f.failGet) {
		return equipment.Dataset{}, errInjected
	}
	return f.Memory.GetDataset(ctx, id)
}

func (f *faultStore) ListEquipment(ctx context.Context, id string) ([]equipment.Record, error) {
	if f.fail(&f.failListEquip) {
		return nil, errInjected
	}
	return f.Memory.ListEquipment(ctx, id)
}

func parseCSV(t *testing.T, text, filename string) *ingest.Result {
	t.Helper()
	res, err := ingest.ParseString(text, filename)
	if err != nil {
		t.Fatalf("ParseString(%s) error = %v", filename, err)
	}
	return res
}

const plantCSV = "Name,Type,Flowrate,Pressure,Temperature\nP-1,Pump,10,2,50\nV-1,Valve,,4,\n"

func mustIngest(t *testing.T, m *Manager, filename string) equipment.Dataset {
	t.Helper()
	ds, err := m.Ingest(context.Background(), parseCSV(t, plantCSV, filename))
	if err != nil {
		t.Fatalf("Ingest(%s) error = %v", filename, err)
	}
	return ds
}

func TestManager_IngestSelectsNewDataset(t *testing.T) {
	m := NewManager(newFaultStore(), auth.Actor{ID: "alice"}, 5)

	ds := mustIngest(t, m, "plant.csv")
	if ds.TotalCount != 2 || ds.AvgFlowrate != 10 || ds.AvgPressure != 3 || ds.OwnerID != "alice" {
		t.Errorf("Ingest() dataset = %+v, want frozen summary", ds)
	}

	st := m.Snapshot()
	if st.Current == nil || st.Current.ID != ds.ID {
		t.Fatalf("Current = %v, want %s", st.Current, ds.ID)
	}
	if len(st.Records) != 2 || st.Records[0].ID == "" {
		t.Errorf("Records = %+v, want 2 persisted records", st.Records)
	}
	if len(st.Datasets) != 1 || st.Datasets[0].ID != ds.ID {
		t.Errorf("Datasets = %+v, want the new dataset", st.Datasets)
	}
}

func TestManager_IngestUnauthenticated(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{}, 5)

	_, err := m.Ingest(context.Background(), parseCSV(t, plantCSV, "x.csv"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Ingest() error = %v, want ErrUnauthorized", err)
	}
}

func TestManager_IngestPhaseOneFailure(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	prev := mustIngest(t, m, "first.csv")

	fs.set(func(f *faultStore) { f.failInsertDataset = true })
	_, err := m.Ingest(context.Background(), parseCSV(t, plantCSV, "second.csv"))

	var pe *PersistError
	if !errors.As(err, &pe) || pe.Phase != PhaseDataset {
		t.Fatalf("Ingest() error = %v, want phase 1 PersistError", err)
	}
	if pe.Orphaned() {
		t.Error("phase 1 failure must not report an orphan")
	}

	list, _ := fs.Memory.ListRecentDatasets(context.Background(), "alice", 10)
	if len(list) != 1 {
		t.Errorf("store has %d datasets, want 1", len(list))
	}
	if st := m.Snapshot(); st.Current == nil || st.Current.ID != prev.ID {
		t.Error("state changed after phase 1 failure")
	}
}

func TestManager_IngestPhaseTwoFailureLeavesOrphan(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	prev := mustIngest(t, m, "first.csv")

	fs.set(func(f *faultStore) { f.failInsertEquip = true })
	_, err := m.Ingest(context.Background(), parseCSV(t, plantCSV, "second.csv"))

	var pe *PersistError
	if !errors.As(err, &pe) || pe.Phase != PhaseEquipment || pe.DatasetID == "" {
		t.Fatalf("Ingest() error = %v, want phase 2 PersistError with dataset id", err)
	}
	if MapError(err).Code != "DS002" {
		t.Errorf("MapError() code = %q, want DS002", MapError(err).Code)
	}

	orphan, err := fs.Memory.GetDataset(context.Background(), pe.DatasetID)
	if err != nil {
		t.Fatalf("orphan dataset missing: %v", err)
	}
	if rows, _ := fs.Memory.ListEquipment(context.Background(), orphan.ID); len(rows) != 0 {
		t.Errorf("orphan has %d equipment rows, want 0", len(rows))
	}

	st := m.Snapshot()
	if st.Current == nil || st.Current.ID != prev.ID {
		t.Error("Current changed after phase 2 failure")
	}
	if len(st.Datasets) != 1 {
		t.Errorf("Datasets len = %d, want 1 (state untouched)", len(st.Datasets))
	}
}

func TestManager_IngestRejectsEmptyResult(t *testing.T) {
	m := NewManager(newFaultStore(), auth.Actor{ID: "alice"}, 5)
	if _, err := m.Ingest(context.Background(), &ingest.Result{}); !errors.Is(err, ingest.ErrNoValidRecords) {
		t.Errorf("Ingest(empty) error = %v, want ErrNoValidRecords", err)
	}
}

func TestManager_RefreshHistory(t *testing.T) {
	fs := newFaultStore()
	ctx := context.Background()

	writer := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	var last equipment.Dataset
	for i := 0; i < 7; i++ {
		last = mustIngest(t, writer, fmt.Sprintf("f%d.csv", i))
	}

	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	if err := m.RefreshHistory(ctx); err != nil {
		t.Fatalf("RefreshHistory() error = %v", err)
	}

	st := m.Snapshot()
	if len(st.Datasets) != 5 {
		t.Errorf("Datasets len = %d, want 5", len(st.Datasets))
	}
	if st.Datasets[0].ID != last.ID {
		t.Errorf("Datasets[0] = %s, want newest %s", st.Datasets[0].Filename, last.Filename)
	}
	if st.Current == nil || st.Current.ID != last.ID {
		t.Error("RefreshHistory() should auto-select the newest dataset")
	}
	if len(st.Records) != 2 {
		t.Errorf("Records len = %d, want 2", len(st.Records))
	}
}

func TestManager_RefreshHistoryKeepsSelection(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	first := mustIngest(t, m, "first.csv")
	mustIngest(t, m, "second.csv")

	if err := m.Select(context.Background(), first.ID); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := m.RefreshHistory(context.Background()); err != nil {
		t.Fatalf("RefreshHistory() error = %v", err)
	}
	if st := m.Snapshot(); st.Current.ID != first.ID {
		t.Error("RefreshHistory() replaced an existing selection")
	}
}

func TestManager_RefreshHistoryStoreError(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	mustIngest(t, m, "first.csv")
	before := m.Snapshot()

	fs.set(func(f *faultStore) { f.failList = true })
	err := m.RefreshHistory(context.Background())

	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("RefreshHistory() error = %v, want *StoreError", err)
	}
	after := m.Snapshot()
	if len(after.Datasets) != len(before.Datasets) || after.Current.ID != before.Current.ID {
		t.Error("state changed after failed refresh")
	}
}

func TestManager_RefreshHistoryAutoSelectFailureIsSwallowed(t *testing.T) {
	fs := newFaultStore()
	mustIngest(t, NewManager(fs, auth.Actor{ID: "alice"}, 5), "first.csv")

	fs.set(func(f *faultStore) { f.failListEquip = true })
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	if err := m.RefreshHistory(context.Background()); err != nil {
		t.Fatalf("RefreshHistory() error = %v, want nil", err)
	}

	st := m.Snapshot()
	if len(st.Datasets) != 1 {
		t.Errorf("Datasets len = %d, want 1", len(st.Datasets))
	}
	if st.Current != nil {
		t.Error("Current set although its records failed to load")
	}
}

func TestManager_RefreshHistoryUnauthenticatedIsNoop(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{}, 5)

	if err := m.RefreshHistory(context.Background()); err != nil {
		t.Errorf("RefreshHistory() error = %v, want nil", err)
	}
	if fs.listCalls != 0 {
		t.Errorf("store called %d times, want 0", fs.listCalls)
	}
}

func TestManager_SelectOtherOwnersDataset(t *testing.T) {
	fs := newFaultStore()
	bobs := mustIngest(t, NewManager(fs, auth.Actor{ID: "bob"}, 5), "bob.csv")

	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	mine := mustIngest(t, m, "alice.csv")

	err := m.Select(context.Background(), bobs.ID)
	if !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Select(other owner) error = %v, want ErrDatasetNotFound", err)
	}
	if st := m.Snapshot(); st.Current.ID != mine.ID {
		t.Error("selection changed after failed select")
	}
}

func TestManager_SelectIsAllOrNothing(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	first := mustIngest(t, m, "first.csv")
	second := mustIngest(t, m, "second.csv")

	fs.set(func(f *faultStore) { f.failListEquip = true })
	err := m.Select(context.Background(), first.ID)

	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("Select() error = %v, want *StoreError", err)
	}
	st := m.Snapshot()
	if st.Current.ID != second.ID {
		t.Error("Current swapped although records failed to load")
	}

	fs.set(func(f *faultStore) { f.failListEquip = false; f.failGet = true })
	if err := m.Select(context.Background(), first.ID); !errors.As(err, &se) {
		t.Errorf("Select() with failing get error = %v, want *StoreError", err)
	}
	if m.Snapshot().Current.ID != second.ID {
		t.Error("Current changed after dataset fetch failure")
	}
}

func TestManager_RemoveCurrentDoesNotReselect(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	first := mustIngest(t, m, "first.csv")
	second := mustIngest(t, m, "second.csv")

	if err := m.Remove(context.Background(), second.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	st := m.Snapshot()
	if st.Current != nil {
		t.Errorf("Current = %s, want nil after removing it", st.Current.ID)
	}
	if len(st.Records) != 0 {
		t.Errorf("Records len = %d, want 0", len(st.Records))
	}
	if len(st.Datasets) != 1 || st.Datasets[0].ID != first.ID {
		t.Errorf("Datasets = %+v, want only first", st.Datasets)
	}
	if _, err := fs.Memory.GetDataset(context.Background(), second.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("removed dataset still in store")
	}
}

func TestManager_RemoveOtherKeepsSelection(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	first := mustIngest(t, m, "first.csv")
	second := mustIngest(t, m, "second.csv")

	if err := m.Remove(context.Background(), first.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	st := m.Snapshot()
	if st.Current == nil || st.Current.ID != second.ID {
		t.Error("removing another dataset changed the selection")
	}
	if len(st.Datasets) != 1 {
		t.Errorf("Datasets len = %d, want 1", len(st.Datasets))
	}
}

func TestManager_RemoveNotFound(t *testing.T) {
	fs := newFaultStore()
	bobs := mustIngest(t, NewManager(fs, auth.Actor{ID: "bob"}, 5), "bob.csv")

	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	if err := m.Remove(context.Background(), bobs.ID); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Remove(other owner) error = %v, want ErrDatasetNotFound", err)
	}
	if _, err := fs.Memory.GetDataset(context.Background(), bobs.ID); err != nil {
		t.Error("another owner's dataset was deleted")
	}
}

func TestManager_RemoveRefreshFailureDropsLocally(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	first := mustIngest(t, m, "first.csv")
	mustIngest(t, m, "second.csv")

	fs.set(func(f *faultStore) { f.failList = true })
	if err := m.Remove(context.Background(), first.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	for _, ds := range m.Snapshot().Datasets {
		if ds.ID == first.ID {
			t.Error("removed dataset still listed in history")
		}
	}
}

func TestManager_OperationsAreSerialized(t *testing.T) {
	fs := newFaultStore()
	m := NewManager(fs, auth.Actor{ID: "alice"}, 5)
	ds := mustIngest(t, m, "first.csv")

	entered := make(chan struct{})
	gate := make(chan struct{})
	fs.set(func(f *faultStore) { f.entered, f.gate = entered, gate })

	done := make(chan error, 1)
	go func() { done <- m.RefreshHistory(context.Background()) }()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Select(ctx, ds.ID); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("overlapping Select() error = %v, want context.DeadlineExceeded", err)
	}

	fs.set(func(f *faultStore) { f.entered, f.gate = nil, nil })
	close(gate)
	if err := <-done; err != nil {
		t.Errorf("RefreshHistory() error = %v", err)
	}

	if err := m.Select(context.Background(), ds.ID); err != nil {
		t.Errorf("Select() after release error = %v", err)
	}
}

func TestManager_SnapshotIsCopy(t *testing.T) {
	m := NewManager(newFaultStore(), auth.Actor{ID: "alice"}, 5)
	mustIngest(t, m, "first.csv")

	st := m.Snapshot()
	st.Records[0].Name = "changed"
	st.Current.Filename = "changed"

	again := m.Snapshot()
	if again.Records[0].Name == "changed" || again.Current.Filename == "changed" {
		t.Error("Snapshot() shares memory with manager state")
	}
}
