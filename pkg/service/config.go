package service

import (
	"fmt"
	"log/slog"

	"github.com/satlink-project/satlink-go/pkg/arbiter"
	"github.com/satlink-project/satlink-go/pkg/config"
	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/persistence"
	"github.com/satlink-project/satlink-go/pkg/store"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

// Stores are the durable stores the service uses.
type Stores struct {
	Records delivery.RecordStore
	Counter idalloc.CounterStore

	// Close releases the stores. Nil when there is nothing to release.
	Close func() error
}

// OpenStores opens the store selected by cfg.
func OpenStores(cfg config.StoreConfig, logger *slog.Logger) (Stores, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := store.Open(store.Config{Path: cfg.Path, Driver: cfg.Driver, Logger: logger})
		if err != nil {
			return Stores{}, err
		}
		return Stores{Records: db, Counter: db, Close: db.Close}, nil
	case config.BackendJSON:
		st := persistence.NewStateStore(cfg.Path)
		if _, err := st.Load(); err != nil {
			return Stores{}, fmt.Errorf("open state file: %w", err)
		}
		return Stores{Records: st, Counter: st}, nil
	case config.BackendMemory:
		mem := store.NewMemory()
		return Stores{Records: mem, Counter: mem}, nil
	default:
		return Stores{}, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

// Options carries the collaborators that do not come from a config file.
type Options struct {
	Preconditions arbiter.Preconditions
	Clock         timer.Clock
	Logger        *slog.Logger
	EventLogger   eventlog.Logger
}

// NewFromConfig opens the configured store and creates a service around gw.
// The store is closed by Stop.
func NewFromConfig(cfg config.Config, gw modem.Gateway, opts Options) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	required, err := cfg.RequiredRadioKinds()
	if err != nil {
		return nil, err
	}

	stores, err := OpenStores(cfg.Store, opts.Logger)
	if err != nil {
		return nil, err
	}

	radioOff := cfg.Arbiter.RadioOffTimeout.Std()
	if radioOff == 0 {
		radioOff = -1
	}

	svc, err := New(Config{
		Gateway:         gw,
		RecordStore:     stores.Records,
		CounterStore:    stores.Counter,
		Preconditions:   opts.Preconditions,
		RequiredRadios:  required,
		EnableTimeout:   cfg.Arbiter.EnableTimeout.Std(),
		RadioOffTimeout: radioOff,
		MaxRequestID:    cfg.Arbiter.MaxRequestID,
		RetryInterval:   cfg.Delivery.RetryInterval.Std(),
		MaxAttempts:     cfg.Delivery.MaxAttempts,
		MaxID:           cfg.Delivery.MaxID,
		AutoPoll:        cfg.Delivery.AutoPoll,
		Clock:           opts.Clock,
		Logger:          opts.Logger,
		EventLogger:     opts.EventLogger,
	})
	if err != nil {
		if stores.Close != nil {
			stores.Close()
		}
		return nil, err
	}
	if stores.Close != nil {
		svc.addCloser(stores.Close)
	}
	return svc, nil
}
