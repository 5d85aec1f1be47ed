package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

func TestMemory(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemory() })
}

func TestMemory_SameTimestampKeepsInsertOrder(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	ctx := context.Background()
	first, _ := m.InsertDataset(ctx, equipment.NewDataset{OwnerID: "o", Filename: "1.csv"})
	second, _ := m.InsertDataset(ctx, equipment.NewDataset{OwnerID: "o", Filename: "2.csv"})

	got, err := m.ListRecentDatasets(ctx, "o", 5)
	if err != nil {
		t.Fatalf("ListRecentDatasets() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("ListRecentDatasets() did not put the later insert first")
	}
}

func TestMemory_CanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.InsertDataset(ctx, equipment.NewDataset{OwnerID: "o"}); !errors.Is(err, context.Canceled) {
		t.Errorf("InsertDataset() error = %v, want context.Canceled", err)
	}
	if _, err := m.ListRecentDatasets(ctx, "o", 5); !errors.Is(err, context.Canceled) {
		t.Errorf("ListRecentDatasets() error = %v, want context.Canceled", err)
	}
}

func TestMemory_ListEquipmentReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ds, _ := m.InsertDataset(ctx, equipment.NewDataset{OwnerID: "o"})
	_ = m.InsertEquipment(ctx, ds.ID, []equipment.Record{{Name: "P-1", Type: "Pump"}})

	rows, _ := m.ListEquipment(ctx, ds.ID)
	rows[0].Name = "changed"

	again, _ := m.ListEquipment(ctx, ds.ID)
	if again[0].Name != "P-1" {
		t.Errorf("stored record mutated through returned slice: %q", again[0].Name)
	}
}
