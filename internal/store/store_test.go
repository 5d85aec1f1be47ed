package store

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/equipview/internal/equipment"
)

// runStoreContract exercises behavior every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("InsertAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ds, err := s.InsertDataset(ctx, equipment.NewDataset{
			OwnerID: "alice", Filename: "plant.csv", TotalCount: 2, AvgFlowrate: 12.5,
		})
		if err != nil {
			t.Fatalf("InsertDataset() error = %v", err)
		}
		if ds.ID == "" {
			t.Fatal("InsertDataset() returned empty ID")
		}
		if ds.CreatedAt.IsZero() {
			t.Error("InsertDataset() returned zero CreatedAt")
		}

		got, err := s.GetDataset(ctx, ds.ID)
		if err != nil {
			t.Fatalf("GetDataset() error = %v", err)
		}
		if got.Filename != "plant.csv" || got.OwnerID != "alice" || got.TotalCount != 2 || got.AvgFlowrate != 12.5 {
			t.Errorf("GetDataset() = %+v, want inserted values", got)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetDataset(context.Background(), "00000000-0000-0000-0000-000000000000")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetDataset() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListRecentNewestFirstAndLimited", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var ids []string
		for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
			ds, err := s.InsertDataset(ctx, equipment.NewDataset{OwnerID: "alice", Filename: name})
			if err != nil {
				t.Fatalf("InsertDataset(%s) error = %v", name, err)
			}
			ids = append(ids, ds.ID)
		}
		if _, err := s.InsertDataset(ctx, equipment.NewDataset{OwnerID: "bob", Filename: "other.csv"}); err != nil {
			t.Fatalf("InsertDataset(bob) error = %v", err)
		}

		got, err := s.ListRecentDatasets(ctx, "alice", 2)
		if err != nil {
			t.Fatalf("ListRecentDatasets() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListRecentDatasets() len = %d, want 2", len(got))
		}
		if got[0].ID != ids[2] || got[1].ID != ids[1] {
			t.Errorf("ListRecentDatasets() = [%s %s], want [%s %s]", got[0].Filename, got[1].Filename, "c.csv", "b.csv")
		}
		for _, ds := range got {
			if ds.OwnerID != "alice" {
				t.Errorf("ListRecentDatasets() returned dataset owned by %q", ds.OwnerID)
			}
		}
	})

	t.Run("EquipmentRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ds, err := s.InsertDataset(ctx, equipment.NewDataset{OwnerID: "alice", Filename: "x.csv", TotalCount: 2})
		if err != nil {
			t.Fatalf("InsertDataset() error = %v", err)
		}

		records := []equipment.Record{
			{Name: "P-1", Type: "Pump", Flowrate: equipment.Float(0), Pressure: equipment.Float(3.5)},
			{Name: "V-1", Type: "Valve", Temperature: equipment.Float(-12)},
		}
		if err := s.InsertEquipment(ctx, ds.ID, records); err != nil {
			t.Fatalf("InsertEquipment() error = %v", err)
		}

		got, err := s.ListEquipment(ctx, ds.ID)
		if err != nil {
			t.Fatalf("ListEquipment() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListEquipment() len = %d, want 2", len(got))
		}
		if got[0].Name != "P-1" || got[1].Name != "V-1" {
			t.Errorf("ListEquipment() order = [%s %s], want [P-1 V-1]", got[0].Name, got[1].Name)
		}
		if got[0].ID == "" {
			t.Error("ListEquipment() record has empty ID")
		}
		if got[0].Flowrate == nil || *got[0].Flowrate != 0 {
			t.Errorf("Flowrate = %v, want present zero", got[0].Flowrate)
		}
		if got[0].Temperature != nil {
			t.Errorf("Temperature = %v, want absent", *got[0].Temperature)
		}
		if got[1].Temperature == nil || *got[1].Temperature != -12 {
			t.Errorf("Temperature = %v, want -12", got[1].Temperature)
		}
	})

	t.Run("InsertEquipmentUnknownDataset", func(t *testing.T) {
		s := newStore(t)
		err := s.InsertEquipment(context.Background(), "00000000-0000-0000-0000-000000000000",
			[]equipment.Record{{Name: "P-1", Type: "Pump"}})
		if err == nil {
			t.Error("InsertEquipment() on missing dataset should fail")
		}
	})

	t.Run("DeleteCascadesAndIsOwnerScoped", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ds, err := s.InsertDataset(ctx, equipment.NewDataset{OwnerID: "alice", Filename: "x.csv", TotalCount: 1})
		if err != nil {
			t.Fatalf("InsertDataset() error = %v", err)
		}
		if err := s.InsertEquipment(ctx, ds.ID, []equipment.Record{{Name: "P-1", Type: "Pump"}}); err != nil {
			t.Fatalf("InsertEquipment() error = %v", err)
		}

		if err := s.DeleteDataset(ctx, "bob", ds.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteDataset(other owner) error = %v, want ErrNotFound", err)
		}
		if _, err := s.GetDataset(ctx, ds.ID); err != nil {
			t.Errorf("dataset gone after foreign delete: %v", err)
		}

		if err := s.DeleteDataset(ctx, "alice", ds.ID); err != nil {
			t.Fatalf("DeleteDataset() error = %v", err)
		}
		if _, err := s.GetDataset(ctx, ds.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetDataset() after delete error = %v, want ErrNotFound", err)
		}
		rows, err := s.ListEquipment(ctx, ds.ID)
		if err != nil {
			t.Fatalf("ListEquipment() error = %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("ListEquipment() after delete = %d rows, want 0", len(rows))
		}

		if err := s.DeleteDataset(ctx, "alice", ds.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second DeleteDataset() error = %v, want ErrNotFound", err)
		}
	})
}
