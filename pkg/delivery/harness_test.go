package delivery_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/store"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

const retryInterval = time.Minute

type delivered struct {
	id      uint64
	payload string
	pending int
	ack     delivery.AckFunc
}

// recordingListener keeps every delivery and acks only when told to.
type recordingListener struct {
	mu      sync.Mutex
	got     []delivered
	autoAck bool
}

func (l *recordingListener) OnReceived(id uint64, payload []byte, pendingCount int, ack delivery.AckFunc) {
	l.mu.Lock()
	l.got = append(l.got, delivered{id: id, payload: string(payload), pending: pendingCount, ack: ack})
	autoAck := l.autoAck
	l.mu.Unlock()
	if autoAck {
		ack()
	}
}

func (l *recordingListener) deliveries() []delivered {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]delivered(nil), l.got...)
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.got)
}

func (l *recordingListener) last() delivered {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.got[len(l.got)-1]
}

type captureEvents struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (c *captureEvents) Log(e eventlog.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureEvents) datagrams(stage eventlog.DatagramStage) []eventlog.DatagramEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []eventlog.DatagramEvent
	for _, e := range c.events {
		if e.Datagram != nil && e.Datagram.Stage == stage {
			out = append(out, *e.Datagram)
		}
	}
	return out
}

func (c *captureEvents) errors() []eventlog.ErrorEventData {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []eventlog.ErrorEventData
	for _, e := range c.events {
		if e.Error != nil {
			out = append(out, *e.Error)
		}
	}
	return out
}

type harness struct {
	t      *testing.T
	mgr    *delivery.Manager
	sim    *modem.Simulator
	store  *store.Memory
	clock  *timer.FakeClock
	events *captureEvents
}

type option func(*delivery.Config)

func withMaxID(maxID uint64) option {
	return func(cfg *delivery.Config) {
		alloc, err := idalloc.New(cfg.Store.(*store.Memory), idalloc.Config{MaxID: maxID})
		if err != nil {
			panic(err)
		}
		cfg.IDs = alloc
	}
}

func withMaxAttempts(n int) option {
	return func(cfg *delivery.Config) { cfg.MaxAttempts = n }
}

func withAutoPoll() option {
	return func(cfg *delivery.Config) { cfg.AutoPoll = true }
}

func newHarnessWithStore(t *testing.T, mem *store.Memory, opts ...option) *harness {
	t.Helper()
	clock := timer.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sim := modem.NewSimulator(modem.SimulatorConfig{})
	events := &captureEvents{}
	cfg := delivery.Config{
		Gateway:       sim,
		Store:         mem,
		RetryInterval: retryInterval,
		Clock:         clock,
		EventLogger:   events,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	mgr, err := delivery.New(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Start())
	t.Cleanup(mgr.Stop)

	return &harness{t: t, mgr: mgr, sim: sim, store: mem, clock: clock, events: events}
}

func newHarness(t *testing.T, opts ...option) *harness {
	return newHarnessWithStore(t, store.NewMemory(), opts...)
}

func (h *harness) register(channel string, l delivery.Listener) delivery.ListenerID {
	h.t.Helper()
	id, code := h.mgr.RegisterListener(channel, l)
	require.Equal(h.t, satellite.Success, code)
	return id
}

// receive injects a datagram from the network and waits for it to be
// dispatched.
func (h *harness) receive(channel, payload string, pending int) {
	h.sim.InjectDatagram(channel, []byte(payload), pending)
	h.mgr.Sync()
}

// ack acknowledges d and waits for the ack to be processed.
func (h *harness) ack(d delivered) {
	d.ack()
	h.mgr.Sync()
}

// advance moves the clock by d and waits for resulting retries.
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.mgr.Sync()
}
