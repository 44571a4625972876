package idalloc

import (
	"errors"
	"log/slog"
)

// DefaultMaxID is the default id space size (ids are in [0, DefaultMaxID)).
const DefaultMaxID uint64 = 1 << 16

// ErrExhausted is returned by NextFree when every id in the space is in use.
var ErrExhausted = errors.New("datagram id space exhausted")

// ErrInvalidMaxID is returned for a zero or one-element id space.
var ErrInvalidMaxID = errors.New("max id must be at least 2")

// CounterStore persists the last issued id.
type CounterStore interface {
	// LoadCounter returns the last issued id. ok is false if none was stored.
	LoadCounter() (value uint64, ok bool, err error)

	// SaveCounter durably stores the last issued id.
	SaveCounter(value uint64) error
}

// Config configures an Allocator.
type Config struct {
	// MaxID is the size of the cyclic id space. Zero means DefaultMaxID.
	MaxID uint64

	// Logger is the optional logger for storage faults.
	Logger *slog.Logger
}

// Allocator hands out cyclic, persisted ids.
type Allocator struct {
	store  CounterStore
	maxID  uint64
	last   uint64
	loaded bool
	logger *slog.Logger
}

// New creates an allocator backed by store.
func New(store CounterStore, cfg Config) (*Allocator, error) {
	if cfg.MaxID == 0 {
		cfg.MaxID = DefaultMaxID
	}
	if cfg.MaxID < 2 {
		return nil, ErrInvalidMaxID
	}
	return &Allocator{
		store:  store,
		maxID:  cfg.MaxID,
		logger: cfg.Logger,
	}, nil
}

// MaxID returns the size of the id space.
func (a *Allocator) MaxID() uint64 {
	return a.maxID
}

// Last returns the last id handed out, loading it from the store on first
// use.
func (a *Allocator) Last() uint64 {
	return a.current()
}

// Next returns (last + 1) mod MaxID after persisting it.
func (a *Allocator) Next() uint64 {
	last := a.current()
	next := (last + 1) % a.maxID
	a.commit(next)
	return next
}

// NextFree is like Next but skips ids for which inUse reports true, so an id
// still held by an unacknowledged datagram is never issued twice. Skipped ids
// are consumed. It returns ErrExhausted without changing state when the
// whole id space is in use.
func (a *Allocator) NextFree(inUse func(id uint64) bool) (uint64, error) {
	last := a.current()
	candidate := last
	for i := uint64(0); i < a.maxID; i++ {
		candidate = (candidate + 1) % a.maxID
		if inUse == nil || !inUse(candidate) {
			a.commit(candidate)
			return candidate, nil
		}
	}
	return 0, ErrExhausted
}

// current returns the last issued id. The stored counter is read once, on
// first use; after that the in-memory value is authoritative and every commit
// writes it through. Until a read succeeds, ids are issued from memory and
// nothing is written, so the stored counter is never overwritten by a value
// behind it. Once the store is readable the larger of the two values wins.
func (a *Allocator) current() uint64 {
	if a.loaded || a.store == nil {
		return a.last
	}
	value, ok, err := a.store.LoadCounter()
	if err != nil {
		a.warn("idalloc: counter load failed, using in-memory value",
			"last", a.last, "error", err)
		return a.last
	}
	a.loaded = true
	if ok && value%a.maxID > a.last {
		a.last = value % a.maxID
	}
	return a.last
}

func (a *Allocator) commit(value uint64) {
	a.last = value
	if a.store == nil {
		return
	}
	if !a.loaded {
		a.warn("idalloc: stored counter unknown, not persisting", "value", value)
		return
	}
	if err := a.store.SaveCounter(value); err != nil {
		a.warn("idalloc: counter save failed, continuing in memory",
			"value", value, "error", err)
	}
}

func (a *Allocator) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
