package store

import (
	"slices"
	"sync"

	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
)

// Op names a Memory store operation for fault injection.
type Op string

const (
	OpLoadCounter Op = "load_counter"
	OpSaveCounter Op = "save_counter"
	OpInsert      Op = "insert"
	OpDelete      Op = "delete"
	OpList        Op = "list"
)

// Memory is an in-process store. It is safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	counter    uint64
	hasCounter bool
	records    map[uint64]delivery.Record
	faults     map[Op]error
	deletes    map[uint64]int
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[uint64]delivery.Record),
		faults:  make(map[Op]error),
		deletes: make(map[uint64]int),
	}
}

// InjectFault makes every later call of op fail with err until it is
// cleared with a nil err.
func (m *Memory) InjectFault(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// DeleteCount returns how many successful deletes were made for id.
func (m *Memory) DeleteCount(id uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes[id]
}

// Has reports whether a record with id is stored.
func (m *Memory) Has(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// LoadCounter implements idalloc.CounterStore.
func (m *Memory) LoadCounter() (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpLoadCounter]; err != nil {
		return 0, false, err
	}
	return m.counter, m.hasCounter, nil
}

// SaveCounter implements idalloc.CounterStore.
func (m *Memory) SaveCounter(value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpSaveCounter]; err != nil {
		return err
	}
	m.counter = value
	m.hasCounter = true
	return nil
}

// InsertRecord implements delivery.RecordStore.
func (m *Memory) InsertRecord(rec delivery.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpInsert]; err != nil {
		return err
	}
	rec.Payload = slices.Clone(rec.Payload)
	m.records[rec.ID] = rec
	return nil
}

// DeleteRecord implements delivery.RecordStore.
func (m *Memory) DeleteRecord(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpDelete]; err != nil {
		return err
	}
	if _, ok := m.records[id]; ok {
		delete(m.records, id)
		m.deletes[id]++
	}
	return nil
}

// ListRecords implements delivery.RecordStore, oldest first.
func (m *Memory) ListRecords() ([]delivery.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpList]; err != nil {
		return nil, err
	}
	out := make([]delivery.Record, 0, len(m.records))
	for _, rec := range m.records {
		rec.Payload = slices.Clone(rec.Payload)
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b delivery.Record) int {
		if c := a.ReceivedAt.Compare(b.ReceivedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

var (
	_ idalloc.CounterStore = (*Memory)(nil)
	_ delivery.RecordStore = (*Memory)(nil)
)
