package core

// manager.go implements the per-session dataset lifecycle.
//
// A Manager owns the session's view of its recent uploads: the history list,
// the selected dataset and that dataset's records. Every operation runs under
// a single-flight lock so overlapping requests from the same session are
// serialized instead of interleaving their store calls.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/equipment"
	"github.com/JonMunkholm/equipview/internal/ingest"
	"github.com/JonMunkholm/equipview/internal/logging"
	"github.com/JonMunkholm/equipview/internal/store"
)

// DefaultHistoryLimit is the number of recent datasets kept in history.
const DefaultHistoryLimit = 5

// State is a point-in-time copy of a Manager's data.
type State struct {
	Datasets []equipment.Dataset `json:"datasets"`
	Current  *equipment.Dataset  `json:"current"`
	Records  []equipment.Record  `json:"records"`
}

// Manager drives the dataset lifecycle for one authenticated actor.
type Manager struct {
	store store.Store
	actor auth.Actor
	limit int

	// lock is a one-slot semaphore held for the duration of an operation.
	lock chan struct{}

	mu       sync.RWMutex
	state    State
	lastUsed time.Time
	now      func() time.Time
}

// NewManager creates a Manager bound to actor. A non-positive limit uses
// DefaultHistoryLimit.
func NewManager(s store.Store, actor auth.Actor, limit int) *Manager {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Manager{
		store:    s,
		actor:    actor,
		limit:    limit,
		lock:     make(chan struct{}, 1),
		lastUsed: time.Now(),
		now:      time.Now,
	}
}

// Actor returns the actor the manager is bound to.
func (m *Manager) Actor() auth.Actor {
	return m.actor
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := State{
		Datasets: make([]equipment.Dataset, len(m.state.Datasets)),
		Records:  make([]equipment.Record, len(m.state.Records)),
	}
	copy(s.Datasets, m.state.Datasets)
	copy(s.Records, m.state.Records)
	if m.state.Current != nil {
		cur := *m.state.Current
		s.Current = &cur
	}
	return s
}

// LastUsed returns when an operation last started on this manager.
func (m *Manager) LastUsed() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUsed
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	m.lastUsed = m.now()
	m.mu.Unlock()
	return nil
}

func (m *Manager) release() {
	<-m.lock
}

func (m *Manager) logger(ctx context.Context) *slog.Logger {
	return logging.WithFields(ctx, "owner_id", m.actor.ID)
}

// RefreshHistory reloads the actor's most recent datasets. When nothing is
// selected, the newest dataset is selected; a failure to do so is logged and
// not returned. It is a no-op for an unauthenticated actor.
func (m *Manager) RefreshHistory(ctx context.Context) error {
	if !m.actor.Authenticated() {
		return nil
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	return m.refresh(ctx, true)
}

// Select makes id the current dataset and loads its records. On any error
// the previous selection is left in place.
func (m *Manager) Select(ctx context.Context, id string) error {
	if !m.actor.Authenticated() {
		return ErrUnauthorized
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	return m.selectDataset(ctx, id)
}

// Ingest persists a parse result as a new dataset then refreshes history
// and selects it.
//
// The write is two-phase and not atomic: the dataset row is inserted first,
// then all equipment rows in one batch. A failure in either phase returns a
// *PersistError and leaves in-memory state untouched. Failures of the
// follow-up refresh or select are logged; the dataset is still returned.
func (m *Manager) Ingest(ctx context.Context, res *ingest.Result) (equipment.Dataset, error) {
	if !m.actor.Authenticated() {
		return equipment.Dataset{}, ErrUnauthorized
	}
	if res == nil || len(res.Records) == 0 {
		return equipment.Dataset{}, ingest.ErrNoValidRecords
	}
	if err := m.acquire(ctx); err != nil {
		return equipment.Dataset{}, err
	}
	defer m.release()

	logger := m.logger(ctx).With("filename", res.Filename)

	ds, err := m.store.InsertDataset(ctx, equipment.NewDatasetFromSummary(m.actor.ID, res.Filename, res.Summary))
	if err != nil {
		logger.Error("dataset insert failed", "phase", PhaseDataset, "error", err)
		return equipment.Dataset{}, &PersistError{Phase: PhaseDataset, Err: err}
	}

	logger = logger.With("dataset_id", ds.ID)

	if err := m.store.InsertEquipment(ctx, ds.ID, res.Records); err != nil {
		logger.Error("equipment insert failed, dataset orphaned",
			"phase", PhaseEquipment,
			"records", len(res.Records),
			"error", err,
		)
		return equipment.Dataset{}, &PersistError{Phase: PhaseEquipment, DatasetID: ds.ID, Err: err}
	}

	logger.Info("dataset ingested", "records", len(res.Records), "skipped_rows", res.SkippedRows)

	if err := m.refresh(ctx, false); err != nil {
		logger.Warn("history refresh after ingest failed", "error", err)
	}
	if err := m.selectDataset(ctx, ds.ID); err != nil {
		logger.Warn("select after ingest failed", "error", err)
	}

	return ds, nil
}

// Remove deletes a dataset and its records. If it was selected, the
// selection is cleared and stays empty; history is refreshed without
// selecting another dataset.
func (m *Manager) Remove(ctx context.Context, id string) error {
	if !m.actor.Authenticated() {
		return ErrUnauthorized
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	logger := m.logger(ctx).With("dataset_id", id)

	if err := m.store.DeleteDataset(ctx, m.actor.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("remove %s: %w", id, ErrDatasetNotFound)
		}
		return &StoreError{Op: "delete dataset", Err: err}
	}

	m.mu.Lock()
	if m.state.Current != nil && m.state.Current.ID == id {
		m.state.Current = nil
		m.state.Records = nil
	}
	m.mu.Unlock()

	if err := m.refresh(ctx, false); err != nil {
		logger.Warn("history refresh after remove failed", "error", err)
		m.dropFromHistory(id)
	}

	logger.Info("dataset removed")
	return nil
}

// refresh must be called with the lock held.
func (m *Manager) refresh(ctx context.Context, autoSelect bool) error {
	list, err := m.store.ListRecentDatasets(ctx, m.actor.ID, m.limit)
	if err != nil {
		return &StoreError{Op: "list datasets", Err: err}
	}
	if list == nil {
		list = []equipment.Dataset{}
	}

	m.mu.Lock()
	m.state.Datasets = list
	needSelect := autoSelect && m.state.Current == nil && len(list) > 0
	m.mu.Unlock()

	if needSelect {
		if err := m.selectDataset(ctx, list[0].ID); err != nil {
			m.logger(ctx).Warn("auto-select of newest dataset failed",
				"dataset_id", list[0].ID,
				"error", err,
			)
		}
	}
	return nil
}

// selectDataset must be called with the lock held. State changes only when
// both the dataset and its records were loaded.
func (m *Manager) selectDataset(ctx context.Context, id string) error {
	ds, err := m.store.GetDataset(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && ds.OwnerID != m.actor.ID) {
		return fmt.Errorf("select %s: %w", id, ErrDatasetNotFound)
	}
	if err != nil {
		return &StoreError{Op: "get dataset", Err: err}
	}

	records, err := m.store.ListEquipment(ctx, id)
	if err != nil {
		return &StoreError{Op: "list equipment", Err: err}
	}
	if records == nil {
		records = []equipment.Record{}
	}

	m.mu.Lock()
	m.state.Current = &ds
	m.state.Records = records
	m.mu.Unlock()
	return nil
}

func (m *Manager) dropFromHistory(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.state.Datasets[:0:0]
	for _, ds := range m.state.Datasets {
		if ds.ID != id {
			kept = append(kept, ds)
		}
	}
	m.state.Datasets = kept
}
