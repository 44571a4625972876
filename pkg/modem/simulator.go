package modem

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

// ErrNotSubscribed is returned when unsubscribing an unknown channel.
var ErrNotSubscribed = errors.New("channel not subscribed")

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	// ResponseDelay is how long commands take to complete. Zero completes
	// them on a fresh goroutine without delay.
	ResponseDelay time.Duration

	// Clock drives ResponseDelay. Nil means the wall clock.
	Clock timer.Clock

	// Logger is optional.
	Logger *slog.Logger
}

// Command is a command the simulator received.
type Command struct {
	Attrs satellite.EnableAttributes
	Poll  bool
}

type heldDatagram struct {
	channel string
	payload []byte
}

// Simulator is an in-process Gateway. It also acts as the platform radio
// controller, so switching radios through it produces radio notifications.
type Simulator struct {
	mu sync.Mutex

	clock  timer.Clock
	delay  time.Duration
	logger *slog.Logger

	state    satellite.ModemState
	attrs    satellite.EnableAttributes
	radios   map[satellite.RadioKind]bool
	handlers map[string]DatagramHandler
	held     []heldDatagram
	commands []Command

	forced []satellite.ResultCode
	silent bool

	onModemState func(satellite.ModemState)
	onRadioState func(satellite.RadioKind, bool)
}

// NewSimulator creates a simulator with the modem off and every radio on.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	clock := cfg.Clock
	if clock == nil {
		clock = timer.RealClock{}
	}
	radios := make(map[satellite.RadioKind]bool, len(satellite.AllRadioKinds))
	for _, k := range satellite.AllRadioKinds {
		radios[k] = true
	}
	return &Simulator{
		clock:    clock,
		delay:    cfg.ResponseDelay,
		logger:   cfg.Logger,
		state:    satellite.ModemOff,
		radios:   radios,
		handlers: make(map[string]DatagramHandler),
	}
}

// ForceResult makes the next command complete with code instead of
// executing. Calls queue up in order.
func (s *Simulator) ForceResult(code satellite.ResultCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = append(s.forced, code)
}

// SetSilent makes subsequent commands never complete.
func (s *Simulator) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = silent
}

// Commands returns the commands received so far.
func (s *Simulator) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// ModemState returns the simulated modem state.
func (s *Simulator) ModemState() satellite.ModemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attributes returns the attributes the modem is running with.
func (s *Simulator) Attributes() satellite.EnableAttributes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs
}

// RadioOn reports the simulated power state of a radio.
func (s *Simulator) RadioOn(kind satellite.RadioKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.radios[kind]
}

// RequestSetEnabled implements Gateway.
func (s *Simulator) RequestSetEnabled(ctx context.Context, attrs satellite.EnableAttributes) <-chan satellite.ResultCode {
	result := make(chan satellite.ResultCode, 1)

	s.mu.Lock()
	s.commands = append(s.commands, Command{Attrs: attrs})
	silent := s.silent
	forced, hasForced := s.popForcedLocked()
	s.mu.Unlock()

	s.debugLog("simulator: set enabled", "attrs", attrs.String(), "silent", silent)
	if silent {
		return result
	}

	s.after(func() {
		if hasForced {
			result <- forced
			return
		}
		if attrs.Enable {
			s.enable(attrs)
			result <- satellite.Success
			return
		}
		result <- satellite.Success
		s.SetModemState(satellite.ModemOff)
	})
	return result
}

// RequestPollPending implements Gateway. Held datagrams for subscribed
// channels are delivered before the result is reported.
func (s *Simulator) RequestPollPending(ctx context.Context) <-chan satellite.ResultCode {
	result := make(chan satellite.ResultCode, 1)

	s.mu.Lock()
	s.commands = append(s.commands, Command{Poll: true})
	silent := s.silent
	forced, hasForced := s.popForcedLocked()
	s.mu.Unlock()

	if silent {
		return result
	}
	s.after(func() {
		if hasForced {
			result <- forced
			return
		}
		s.drainHeld()
		result <- satellite.Success
	})
	return result
}

// SubscribeDatagrams implements Gateway.
func (s *Simulator) SubscribeDatagrams(channel string, handler DatagramHandler) error {
	s.mu.Lock()
	s.handlers[channel] = handler
	s.mu.Unlock()
	return nil
}

// UnsubscribeDatagrams implements Gateway.
func (s *Simulator) UnsubscribeDatagrams(channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[channel]; !ok {
		return ErrNotSubscribed
	}
	delete(s.handlers, channel)
	return nil
}

// Subscribed reports whether a handler is registered for channel.
func (s *Simulator) Subscribed(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handlers[channel]
	return ok
}

// OnModemStateChanged implements Gateway.
func (s *Simulator) OnModemStateChanged(fn func(satellite.ModemState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onModemState = fn
}

// OnRadioStateChanged implements Gateway.
func (s *Simulator) OnRadioStateChanged(fn func(satellite.RadioKind, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRadioState = fn
}

// SetModemState forces the modem state and notifies the observer. Setting an
// active state without a command simulates a modem that desynced.
func (s *Simulator) SetModemState(state satellite.ModemState) {
	s.mu.Lock()
	s.state = state
	if state == satellite.ModemOff {
		s.attrs = satellite.EnableAttributes{}
	}
	fn := s.onModemState
	s.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}

// SetRadioEnabled switches a radio and notifies the observer.
func (s *Simulator) SetRadioEnabled(kind satellite.RadioKind, on bool) error {
	s.mu.Lock()
	changed := s.radios[kind] != on
	s.radios[kind] = on
	fn := s.onRadioState
	s.mu.Unlock()

	if changed && fn != nil {
		fn(kind, on)
	}
	return nil
}

// InjectDatagram simulates a datagram arriving from the network. It is
// delivered immediately when the channel is subscribed, otherwise it is held
// until a poll finds a subscriber.
func (s *Simulator) InjectDatagram(channel string, payload []byte, pendingCount int) {
	s.mu.Lock()
	handler, ok := s.handlers[channel]
	if !ok {
		s.held = append(s.held, heldDatagram{channel: channel, payload: payload})
	}
	s.mu.Unlock()

	if ok {
		handler(payload, pendingCount)
	}
}

// HeldDatagrams returns the number of datagrams waiting for a poll.
func (s *Simulator) HeldDatagrams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

func (s *Simulator) enable(attrs satellite.EnableAttributes) {
	s.mu.Lock()
	wasActive := s.state.IsActive()
	s.attrs = attrs
	s.mu.Unlock()

	if !wasActive {
		s.SetModemState(satellite.ModemEnablingSatellite)
	}
	s.SetModemState(satellite.ModemIdle)
}

func (s *Simulator) drainHeld() {
	s.mu.Lock()
	var deliver []heldDatagram
	var handlers []DatagramHandler
	keep := s.held[:0]
	for _, d := range s.held {
		if h, ok := s.handlers[d.channel]; ok {
			deliver = append(deliver, d)
			handlers = append(handlers, h)
		} else {
			keep = append(keep, d)
		}
	}
	s.held = keep
	s.mu.Unlock()

	for i, d := range deliver {
		handlers[i](d.payload, len(deliver)-i-1)
	}
}

func (s *Simulator) popForcedLocked() (satellite.ResultCode, bool) {
	if len(s.forced) == 0 {
		return satellite.Success, false
	}
	code := s.forced[0]
	s.forced = s.forced[1:]
	return code, true
}

func (s *Simulator) after(fn func()) {
	if s.delay <= 0 {
		go fn()
		return
	}
	s.clock.AfterFunc(s.delay, fn)
}

func (s *Simulator) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

var _ Gateway = (*Simulator)(nil)
