package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

// Memory is an in-process Store. Data is lost on restart.
type Memory struct {
	mu        sync.RWMutex
	datasets  map[string]memDataset
	equipment map[string][]equipment.Record
	seq       int64
	now       func() time.Time
}

type memDataset struct {
	equipment.Dataset
	seq int64 // Insertion order, breaks CreatedAt ties
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		datasets:  make(map[string]memDataset),
		equipment: make(map[string][]equipment.Record),
		now:       time.Now,
	}
}

func (m *Memory) InsertDataset(ctx context.Context, nd equipment.NewDataset) (equipment.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return equipment.Dataset{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	ds := equipment.Dataset{
		ID:             uuid.New().String(),
		OwnerID:        nd.OwnerID,
		Filename:       nd.Filename,
		TotalCount:     nd.TotalCount,
		AvgFlowrate:    nd.AvgFlowrate,
		AvgPressure:    nd.AvgPressure,
		AvgTemperature: nd.AvgTemperature,
		CreatedAt:      m.now().UTC(),
	}
	m.datasets[ds.ID] = memDataset{Dataset: ds, seq: m.seq}
	return ds, nil
}

func (m *Memory) GetDataset(ctx context.Context, id string) (equipment.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return equipment.Dataset{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.datasets[id]
	if !ok {
		return equipment.Dataset{}, ErrNotFound
	}
	return ds.Dataset, nil
}

func (m *Memory) ListRecentDatasets(ctx context.Context, ownerID string, limit int) ([]equipment.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var owned []memDataset
	for _, ds := range m.datasets {
		if ds.OwnerID == ownerID {
			owned = append(owned, ds)
		}
	}
	m.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].seq > owned[j].seq
	})

	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}

	result := make([]equipment.Dataset, len(owned))
	for i, ds := range owned {
		result[i] = ds.Dataset
	}
	return result, nil
}

func (m *Memory) DeleteDataset(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.datasets[id]
	if !ok || ds.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.datasets, id)
	delete(m.equipment, id)
	return nil
}

func (m *Memory) InsertEquipment(ctx context.Context, datasetID string, records []equipment.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.datasets[datasetID]; !ok {
		return ErrNotFound
	}

	stored := make([]equipment.Record, len(records))
	for i, r := range records {
		r.ID = uuid.New().String()
		stored[i] = r
	}
	m.equipment[datasetID] = append(m.equipment[datasetID], stored...)
	return nil
}

func (m *Memory) ListEquipment(ctx context.Context, datasetID string) ([]equipment.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.equipment[datasetID]
	out := make([]equipment.Record, len(rows))
	copy(out, rows)
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
