package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
)

func TestStateStore(t *testing.T) {
	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewStateStore(filepath.Join(t.TempDir(), "nonexistent.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}

		_, ok, err := store.LoadCounter()
		if err != nil || ok {
			t.Errorf("LoadCounter() = ok %v, err %v; want no counter", ok, err)
		}
		recs, err := store.ListRecords()
		if err != nil || len(recs) != 0 {
			t.Errorf("ListRecords() = %v, %v; want empty", recs, err)
		}
	})

	t.Run("SaveCreatesDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
		store := NewStateStore(path)

		if err := store.Save(&ServiceState{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Version != StateVersion {
			t.Errorf("Version = %d, want %d", got.Version, StateVersion)
		}
		if got.SavedAt.IsZero() {
			t.Error("SavedAt not set")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		store := NewStateStore(path)
		if err := store.SaveCounter(3); err != nil {
			t.Fatalf("SaveCounter() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("state file still exists")
		}
		if err := store.Clear(); err != nil {
			t.Errorf("Clear() on missing file error = %v", err)
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		store := NewStateStore(path)
		if _, err := store.Load(); err == nil {
			t.Error("Load() expected error for corrupt file")
		}
		if err := store.InsertRecord(delivery.Record{ID: 1}); err == nil {
			t.Error("InsertRecord() must not overwrite a corrupt file")
		}
	})

	t.Run("FutureVersion", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewStateStore(path).Load(); err == nil {
			t.Error("Load() expected error for unsupported version")
		}
	})
}

func TestStateStoreRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStateStore(path)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	if err := store.InsertRecord(delivery.Record{ID: 5, Channel: "sms", Payload: []byte("late"), ReceivedAt: base.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertRecord(delivery.Record{ID: 9, Channel: "sms", Payload: []byte("early"), PendingCount: 1, ReceivedAt: base}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveCounter(9); err != nil {
		t.Fatal(err)
	}

	// A fresh store on the same file sees everything.
	reopened := NewStateStore(path)
	recs, err := reopened.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(recs))
	}
	if recs[0].ID != 9 || string(recs[0].Payload) != "early" || recs[0].PendingCount != 1 {
		t.Errorf("records[0] = %+v, want id 9 early", recs[0])
	}
	if recs[1].ID != 5 {
		t.Errorf("records[1].ID = %d, want 5", recs[1].ID)
	}
	value, ok, err := reopened.LoadCounter()
	if err != nil || !ok || value != 9 {
		t.Errorf("LoadCounter() = %d, %v, %v; want 9, true, nil", value, ok, err)
	}

	if err := reopened.DeleteRecord(9); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	if err := reopened.DeleteRecord(9); err != nil {
		t.Errorf("DeleteRecord() of missing id error = %v", err)
	}
	recs, _ = store.ListRecords()
	if len(recs) != 1 || recs[0].ID != 5 {
		t.Errorf("records after delete = %+v, want only id 5", recs)
	}

	// Replacing keeps a single record per id.
	if err := store.InsertRecord(delivery.Record{ID: 5, Channel: "telemetry", ReceivedAt: base}); err != nil {
		t.Fatal(err)
	}
	recs, _ = store.ListRecords()
	if len(recs) != 1 || recs[0].Channel != "telemetry" {
		t.Errorf("records after replace = %+v", recs)
	}

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the state file", len(entries))
	}
}

func TestStateStoreBacksAllocator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	alloc, err := idalloc.New(NewStateStore(path), idalloc.Config{MaxID: 4})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		alloc.Next()
	}

	alloc, err = idalloc.New(NewStateStore(path), idalloc.Config{MaxID: 4})
	if err != nil {
		t.Fatal(err)
	}
	if got := alloc.Next(); got != 0 {
		t.Errorf("Next() after restart = %d, want 0 (wrapped)", got)
	}
}
