package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ServiceState is the durable state of a satlink service.
type ServiceState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// LastDatagramID is the last issued dedup id. Nil if none was issued.
	LastDatagramID *uint64 `json:"last_datagram_id,omitempty"`

	// Records are the unacknowledged datagrams, oldest first.
	Records []DatagramRecord `json:"records,omitempty"`
}

// DatagramRecord mirrors delivery.Record for JSON serialization.
type DatagramRecord struct {
	ID           uint64    `json:"id"`
	Channel      string    `json:"channel"`
	Payload      []byte    `json:"payload"`
	PendingCount int       `json:"pending_count,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// StateStore manages persistence of service state to a JSON file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a new state store.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Save persists the state to disk.
func (s *StateStore) Save(state *ServiceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(state)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *StateStore) Load() (*ServiceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// LoadCounter implements idalloc.CounterStore.
func (s *StateStore) LoadCounter() (uint64, bool, error) {
	state, err := s.Load()
	if err != nil || state == nil || state.LastDatagramID == nil {
		return 0, false, err
	}
	return *state.LastDatagramID, true, nil
}

// SaveCounter implements idalloc.CounterStore.
func (s *StateStore) SaveCounter(value uint64) error {
	return s.update(func(state *ServiceState) {
		state.LastDatagramID = &value
	})
}

// InsertRecord implements delivery.RecordStore. A record with the same id
// is replaced.
func (s *StateStore) InsertRecord(rec delivery.Record) error {
	return s.update(func(state *ServiceState) {
		state.Records = slices.DeleteFunc(state.Records, func(r DatagramRecord) bool {
			return r.ID == rec.ID
		})
		state.Records = append(state.Records, DatagramRecord{
			ID:           rec.ID,
			Channel:      rec.Channel,
			Payload:      rec.Payload,
			PendingCount: rec.PendingCount,
			ReceivedAt:   rec.ReceivedAt,
		})
	})
}

// DeleteRecord implements delivery.RecordStore. Deleting a missing record
// is not an error.
func (s *StateStore) DeleteRecord(id uint64) error {
	return s.update(func(state *ServiceState) {
		state.Records = slices.DeleteFunc(state.Records, func(r DatagramRecord) bool {
			return r.ID == id
		})
	})
}

// ListRecords implements delivery.RecordStore, oldest first.
func (s *StateStore) ListRecords() ([]delivery.Record, error) {
	state, err := s.Load()
	if err != nil || state == nil {
		return nil, err
	}
	out := make([]delivery.Record, 0, len(state.Records))
	for _, r := range state.Records {
		out = append(out, delivery.Record{
			ID:           r.ID,
			Channel:      r.Channel,
			Payload:      r.Payload,
			PendingCount: r.PendingCount,
			ReceivedAt:   r.ReceivedAt,
		})
	}
	slices.SortStableFunc(out, func(a, b delivery.Record) int {
		return a.ReceivedAt.Compare(b.ReceivedAt)
	})
	return out, nil
}

func (s *StateStore) update(fn func(state *ServiceState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	if state == nil {
		state = &ServiceState{}
	}
	fn(state)
	state.SavedAt = time.Now()
	return s.saveLocked(state)
}

func (s *StateStore) loadLocked() (*ServiceState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &ServiceState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%s: unsupported state version %d", s.path, state.Version)
	}
	return state, nil
}

func (s *StateStore) saveLocked(state *ServiceState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

var (
	_ idalloc.CounterStore = (*StateStore)(nil)
	_ delivery.RecordStore = (*StateStore)(nil)
)
