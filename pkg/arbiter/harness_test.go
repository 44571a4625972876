package arbiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/satlink-project/satlink-go/pkg/coexist"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

const testTimeout = 10 * time.Second

type fakeCommand struct {
	attrs  satellite.EnableAttributes
	result chan satellite.ResultCode
}

// fakeGateway records commands and leaves completing them to the test.
type fakeGateway struct {
	mu      sync.Mutex
	cmds    []*fakeCommand
	onModem func(satellite.ModemState)
}

func (g *fakeGateway) RequestSetEnabled(_ context.Context, attrs satellite.EnableAttributes) <-chan satellite.ResultCode {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := &fakeCommand{attrs: attrs, result: make(chan satellite.ResultCode, 1)}
	g.cmds = append(g.cmds, c)
	return c.result
}

func (g *fakeGateway) RequestPollPending(context.Context) <-chan satellite.ResultCode {
	ch := make(chan satellite.ResultCode, 1)
	ch <- satellite.Success
	return ch
}

func (g *fakeGateway) SubscribeDatagrams(string, modem.DatagramHandler) error { return nil }
func (g *fakeGateway) UnsubscribeDatagrams(string) error                      { return nil }
func (g *fakeGateway) OnRadioStateChanged(func(satellite.RadioKind, bool))    {}

func (g *fakeGateway) OnModemStateChanged(fn func(satellite.ModemState)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onModem = fn
}

func (g *fakeGateway) commands() []*fakeCommand {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*fakeCommand(nil), g.cmds...)
}

func (g *fakeGateway) notify(state satellite.ModemState) {
	g.mu.Lock()
	fn := g.onModem
	g.mu.Unlock()
	fn(state)
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

func (c *captureEvents) requests(stage eventlog.RequestStage) []eventlog.RequestEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []eventlog.RequestEvent
	for _, e := range c.events {
		if e.Request != nil && e.Request.Stage == stage {
			out = append(out, *e.Request)
		}
	}
	return out
}

type harness struct {
	t       *testing.T
	gw      *fakeGateway
	clock   *timer.FakeClock
	coexist *coexist.Monitor
	pre     *StaticPreconditions
	events  *captureEvents
	arb     *Arbiter
}

type harnessOption func(*Config)

func withRequiredRadios(kinds ...satellite.RadioKind) harnessOption {
	return func(c *Config) {
		c.Coexist.(*coexist.Monitor).SetRequired(kinds)
	}
}

func withMaxRequestID(n uint64) harnessOption {
	return func(c *Config) { c.MaxRequestID = n }
}

func withRadioOffTimeout(d time.Duration) harnessOption {
	return func(c *Config) { c.RadioOffTimeout = d }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		gw:      &fakeGateway{},
		clock:   timer.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		coexist: coexist.NewMonitor(coexist.Config{}),
		pre:     NewStaticPreconditions(),
		events:  &captureEvents{},
	}
	cfg := Config{
		Gateway:       h.gw,
		Coexist:       h.coexist,
		Preconditions: h.pre,
		EnableTimeout: testTimeout,
		Clock:         h.clock,
		EventLogger:   h.events,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	arb, err := New(cfg)
	require.NoError(t, err)
	h.arb = arb
	arb.Start()
	t.Cleanup(arb.Stop)

	// The modem starts off.
	h.gw.notify(satellite.ModemOff)
	h.arb.Sync()
	return h
}

// submit posts a request and waits until the worker has processed it.
func (h *harness) submit(attrs satellite.EnableAttributes) *recorder {
	r := newRecorder()
	h.arb.RequestEnabled(context.Background(), attrs, r.done)
	h.arb.Sync()
	return r
}

func (h *harness) enable(demo, emergency bool) *recorder {
	return h.submit(satellite.EnableAttributes{Enable: true, DemoMode: demo, Emergency: emergency})
}

func (h *harness) disable() *recorder {
	return h.submit(satellite.EnableAttributes{})
}

// complete answers command i and waits until the arbiter processed it.
func (h *harness) complete(i int, code satellite.ResultCode) {
	h.t.Helper()
	cmds := h.gw.commands()
	require.Greater(h.t, len(cmds), i, "command %d was never forwarded", i)
	before := h.arb.results.Load()
	cmds[i].result <- code
	require.Eventually(h.t, func() bool { return h.arb.results.Load() > before },
		2*time.Second, time.Millisecond, "result for command %d not processed", i)
	h.arb.Sync()
}

func (h *harness) modem(state satellite.ModemState) {
	h.gw.notify(state)
	h.arb.Sync()
}

func (h *harness) radio(kind satellite.RadioKind, on bool) {
	h.coexist.UpdateRadioState(kind, on)
	h.arb.Sync()
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.arb.Sync()
}

func (h *harness) commandCount() int {
	return len(h.gw.commands())
}

func (h *harness) command(i int) satellite.EnableAttributes {
	h.t.Helper()
	cmds := h.gw.commands()
	require.Greater(h.t, len(cmds), i)
	return cmds[i].attrs
}

// enableConfirmed runs a full successful enable and returns its recorder.
func (h *harness) enableConfirmed(demo, emergency bool) {
	h.t.Helper()
	n := h.commandCount()
	r := h.enable(demo, emergency)
	h.modem(satellite.ModemEnablingSatellite)
	h.complete(n, satellite.Success)
	h.modem(satellite.ModemIdle)
	require.Equal(h.t, satellite.Success, r.result(h.t))
}

type recorder struct {
	mu    sync.Mutex
	codes []satellite.ResultCode
}

func newRecorder() *recorder { return &recorder{} }

func (r *recorder) done(code satellite.ResultCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func (r *recorder) calls() []satellite.ResultCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]satellite.ResultCode(nil), r.codes...)
}

// result returns the single result the request resolved with.
func (r *recorder) result(t *testing.T) satellite.ResultCode {
	t.Helper()
	calls := r.calls()
	require.Len(t, calls, 1, "request must resolve exactly once")
	return calls[0]
}

func (r *recorder) pending() bool {
	return len(r.calls()) == 0
}
