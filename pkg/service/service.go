package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/satlink-project/satlink-go/pkg/arbiter"
	"github.com/satlink-project/satlink-go/pkg/coexist"
	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
)

// Service orchestrates the satellite link.
type Service struct {
	mu    sync.RWMutex
	state ServiceState

	gateway modem.Gateway
	monitor *coexist.Monitor
	arbiter *arbiter.Arbiter
	manager *delivery.Manager

	events *eventlog.SessionLogger
	logger *slog.Logger

	// closers run on Stop, after the components stopped.
	closers []func() error
}

// New creates a service. Call Start before use.
func New(cfg Config) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("%w: gateway is required", ErrInvalidConfig)
	}
	if cfg.RecordStore == nil {
		return nil, fmt.Errorf("%w: record store is required", ErrInvalidConfig)
	}

	events := eventlog.NewSessionLogger(cfg.EventLogger)

	radios := cfg.Radios
	if radios == nil {
		radios, _ = cfg.Gateway.(coexist.RadioController)
	}
	monitor := coexist.NewMonitor(coexist.Config{
		Required:   cfg.RequiredRadios,
		Controller: radios,
		Logger:     cfg.Logger,
	})

	arb, err := arbiter.New(arbiter.Config{
		Gateway:         cfg.Gateway,
		Coexist:         monitor,
		Preconditions:   cfg.Preconditions,
		EnableTimeout:   cfg.EnableTimeout,
		RadioOffTimeout: cfg.RadioOffTimeout,
		MaxRequestID:    cfg.MaxRequestID,
		Clock:           cfg.Clock,
		Logger:          cfg.Logger,
		EventLogger:     events,
	})
	if err != nil {
		return nil, err
	}

	ids, err := idalloc.New(cfg.CounterStore, idalloc.Config{MaxID: cfg.MaxID, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	mgr, err := delivery.New(delivery.Config{
		Gateway:       cfg.Gateway,
		Store:         cfg.RecordStore,
		IDs:           ids,
		RetryInterval: cfg.RetryInterval,
		MaxAttempts:   cfg.MaxAttempts,
		AutoPoll:      cfg.AutoPoll,
		Clock:         cfg.Clock,
		Logger:        cfg.Logger,
		EventLogger:   events,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		state:   StateIdle,
		gateway: cfg.Gateway,
		monitor: monitor,
		arbiter: arb,
		manager: mgr,
		events:  events,
		logger:  cfg.Logger,
	}, nil
}

// Start loads persisted datagrams, hooks up the gateway notifications and
// starts the workers.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrAlreadyStarted
	}

	if reader, ok := s.gateway.(RadioStateReader); ok {
		for _, kind := range satellite.AllRadioKinds {
			s.monitor.UpdateRadioState(kind, reader.RadioOn(kind))
		}
	}
	s.gateway.OnRadioStateChanged(func(kind satellite.RadioKind, on bool) {
		s.monitor.UpdateRadioState(kind, on)
		s.events.Log(eventlog.Event{
			Component: eventlog.ComponentCoexist,
			Category:  eventlog.CategoryState,
			StateChange: &eventlog.StateChangeEvent{
				Entity:   eventlog.StateEntityRadio,
				OldState: onOff(!on),
				NewState: onOff(on),
				Reason:   kind.String(),
			},
		})
	})

	if err := s.manager.Start(); err != nil {
		return err
	}
	s.arbiter.Start()
	s.state = StateRunning

	s.emitServiceState(StateIdle, StateRunning)
	s.debugLog("service started", "session", s.events.SessionID(),
		"required", fmt.Sprint(s.monitor.Required()))
	return nil
}

// Stop aborts outstanding requests, stops the workers and closes any stores
// the service opened. Records stay persisted.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	from := s.state
	s.state = StateStopped
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	// Aborted callbacks may call back into the service.
	s.arbiter.Stop()
	s.manager.Stop()
	s.emitServiceState(from, StateStopped)

	var firstErr error
	for _, closeFn := range closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.debugLog("service stopped")
	return firstErr
}

// State returns the current service state.
func (s *Service) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RequestEnabled submits an enable, disable or attribute-update request.
// done receives the outcome exactly once and must not block.
func (s *Service) RequestEnabled(ctx context.Context, attrs satellite.EnableAttributes, done func(satellite.ResultCode)) {
	if s.State() != StateRunning {
		if done != nil {
			done(satellite.Aborted)
		}
		return
	}
	s.arbiter.RequestEnabled(ctx, attrs, done)
}

// SetEnabled is RequestEnabled that waits for the outcome. If ctx ends first
// it returns Aborted; the request itself still runs to completion.
func (s *Service) SetEnabled(ctx context.Context, attrs satellite.EnableAttributes) satellite.ResultCode {
	result := make(chan satellite.ResultCode, 1)
	s.RequestEnabled(ctx, attrs, func(code satellite.ResultCode) {
		result <- code
	})
	select {
	case code := <-result:
		return code
	case <-ctx.Done():
		return satellite.Aborted
	}
}

// RegisterDatagramListener adds a listener for channel. Persisted datagrams
// for the channel are delivered to it right away.
func (s *Service) RegisterDatagramListener(channel string, l delivery.Listener) (delivery.ListenerID, satellite.ResultCode) {
	if s.State() != StateRunning {
		return "", satellite.Aborted
	}
	return s.manager.RegisterListener(channel, l)
}

// UnregisterDatagramListener removes a listener.
func (s *Service) UnregisterDatagramListener(channel string, id delivery.ListenerID) error {
	if s.State() != StateRunning {
		return ErrNotStarted
	}
	return s.manager.UnregisterListener(channel, id)
}

// Flush redelivers every stored datagram that has no delivery in progress.
func (s *Service) Flush() (int, error) {
	if s.State() != StateRunning {
		return 0, ErrNotStarted
	}
	return s.manager.Flush()
}

// SetRequiredRadios replaces the radios that must be off while the link is
// enabled.
func (s *Service) SetRequiredRadios(kinds []satellite.RadioKind) {
	s.monitor.SetRequired(kinds)
}

// OnSessionChange sets the callback for session phase transitions.
func (s *Service) OnSessionChange(fn func(from, to arbiter.Phase)) {
	s.arbiter.OnStateChange(fn)
}

// Sync waits until both workers processed everything posted so far.
func (s *Service) Sync() {
	if s.State() != StateRunning {
		return
	}
	s.arbiter.Sync()
	s.manager.Sync()
}

// Status returns a point-in-time view of the service.
func (s *Service) Status() Status {
	st := Status{
		State:          s.State(),
		Radios:         make(map[satellite.RadioKind]bool),
		RequiredRadios: s.monitor.Required(),
		EventSessionID: s.events.SessionID(),
	}
	for _, kind := range satellite.AllRadioKinds {
		st.Radios[kind] = s.monitor.RadioOn(kind)
	}
	st.Session = s.arbiter.Snapshot()
	if st.State == StateRunning {
		st.Delivery = s.manager.Status()
	}
	return st
}

func (s *Service) addCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Service) emitServiceState(from, to ServiceState) {
	s.events.Log(eventlog.Event{
		Component: eventlog.ComponentService,
		Category:  eventlog.CategoryState,
		StateChange: &eventlog.StateChangeEvent{
			Entity:   eventlog.StateEntityService,
			OldState: from.String(),
			NewState: to.String(),
		},
	})
}

func (s *Service) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
