package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satlink-project/satlink-go/pkg/arbiter"
	"github.com/satlink-project/satlink-go/pkg/config"
	"github.com/satlink-project/satlink-go/pkg/delivery"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/store"
)

type captureEvents struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (c *captureEvents) Log(e eventlog.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureEvents) all() []eventlog.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]eventlog.Event(nil), c.events...)
}

type inbox struct {
	mu  sync.Mutex
	got []string
}

func (b *inbox) OnReceived(_ uint64, payload []byte, _ int, ack delivery.AckFunc) {
	b.mu.Lock()
	b.got = append(b.got, string(payload))
	b.mu.Unlock()
	ack()
}

func (b *inbox) payloads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.got...)
}

func newTestService(t *testing.T, sim *modem.Simulator, mem *store.Memory, events eventlog.Logger) *Service {
	t.Helper()
	svc, err := New(Config{
		Gateway:        sim,
		RecordStore:    mem,
		CounterStore:   mem,
		RequiredRadios: []satellite.RadioKind{satellite.RadioBluetooth, satellite.RadioWiFi},
		EnableTimeout:  5 * time.Second,
		RetryInterval:  time.Hour,
		EventLogger:    events,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(func() { svc.Stop() })
	return svc
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{RecordStore: store.NewMemory()})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Gateway: modem.NewSimulator(modem.SimulatorConfig{})})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{
		Gateway:     modem.NewSimulator(modem.SimulatorConfig{}),
		RecordStore: store.NewMemory(),
		MaxID:       1,
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLifecycle(t *testing.T) {
	svc, err := New(Config{
		Gateway:     modem.NewSimulator(modem.SimulatorConfig{}),
		RecordStore: store.NewMemory(),
	})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, svc.State())

	_, err = svc.Flush()
	assert.ErrorIs(t, err, ErrNotStarted)
	_, code := svc.RegisterDatagramListener("sms", &inbox{})
	assert.Equal(t, satellite.Aborted, code)

	require.NoError(t, svc.Start())
	assert.ErrorIs(t, svc.Start(), ErrAlreadyStarted)
	assert.Equal(t, StateRunning, svc.State())

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())
	assert.Equal(t, StateStopped, svc.State())
	assert.Equal(t, satellite.Aborted, svc.SetEnabled(context.Background(), satellite.EnableAttributes{Enable: true}))
	assert.ErrorIs(t, svc.UnregisterDatagramListener("sms", "x"), ErrNotStarted)
}

func TestStopAbortCallbackMayCallService(t *testing.T) {
	sim := modem.NewSimulator(modem.SimulatorConfig{})
	sim.SetSilent(true)
	svc, err := New(Config{Gateway: sim, RecordStore: store.NewMemory()})
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	var (
		mu        sync.Mutex
		seen      []ServiceState
		resubmits []satellite.ResultCode
	)
	svc.RequestEnabled(context.Background(), satellite.EnableAttributes{Enable: true}, func(code satellite.ResultCode) {
		assert.Equal(t, satellite.Aborted, code)
		state := svc.State()
		svc.RequestEnabled(context.Background(), satellite.EnableAttributes{}, func(c satellite.ResultCode) {
			mu.Lock()
			resubmits = append(resubmits, c)
			mu.Unlock()
		})
		mu.Lock()
		seen = append(seen, state)
		mu.Unlock()
	})
	svc.Sync()

	stopped := make(chan error, 1)
	go func() { stopped <- svc.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop deadlocked on a callback calling the service")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ServiceState{StateStopped}, seen)
	assert.Equal(t, []satellite.ResultCode{satellite.Aborted}, resubmits)
}

func TestEnableDisableSwitchesRadios(t *testing.T) {
	sim := modem.NewSimulator(modem.SimulatorConfig{})
	svc := newTestService(t, sim, store.NewMemory(), nil)
	ctx := testContext(t)

	var (
		mu     sync.Mutex
		phases []arbiter.Phase
	)
	svc.OnSessionChange(func(_, to arbiter.Phase) {
		mu.Lock()
		phases = append(phases, to)
		mu.Unlock()
	})

	st := svc.Status()
	assert.True(t, st.Radios[satellite.RadioWiFi], "monitor seeded from the simulator")
	assert.Equal(t, []satellite.RadioKind{satellite.RadioBluetooth, satellite.RadioWiFi}, st.RequiredRadios)

	require.Equal(t, satellite.Success, svc.SetEnabled(ctx, satellite.EnableAttributes{Enable: true, Emergency: true}))
	assert.False(t, sim.RadioOn(satellite.RadioBluetooth))
	assert.False(t, sim.RadioOn(satellite.RadioWiFi))
	assert.True(t, sim.RadioOn(satellite.RadioNFC), "radios that are not required stay on")

	st = svc.Status()
	assert.Equal(t, arbiter.PhaseEnabled, st.Session.Phase)
	assert.True(t, st.Session.Attributes.Emergency)
	assert.Equal(t, satellite.ModemIdle, sim.ModemState())

	require.Equal(t, satellite.Success, svc.SetEnabled(ctx, satellite.EnableAttributes{Enable: false}))
	svc.Sync()
	assert.Equal(t, satellite.ModemOff, sim.ModemState())
	assert.True(t, sim.RadioOn(satellite.RadioBluetooth), "radios restored")
	assert.True(t, sim.RadioOn(satellite.RadioWiFi))
	assert.Equal(t, arbiter.PhaseIdle, svc.Status().Session.Phase)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, phases, arbiter.PhaseEnablePending)
	assert.Contains(t, phases, arbiter.PhaseEnabled)
	assert.Equal(t, arbiter.PhaseIdle, phases[len(phases)-1])
}

func TestPreconditionsRejectEnable(t *testing.T) {
	pre := arbiter.NewStaticPreconditions()
	pre.SetEmergencyCall(true)
	svc, err := New(Config{
		Gateway:       modem.NewSimulator(modem.SimulatorConfig{}),
		RecordStore:   store.NewMemory(),
		Preconditions: pre,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	code := svc.SetEnabled(testContext(t), satellite.EnableAttributes{Enable: true})
	assert.Equal(t, satellite.EmergencyCallInProgress, code)
}

func TestDatagramRoundTrip(t *testing.T) {
	sim := modem.NewSimulator(modem.SimulatorConfig{})
	mem := store.NewMemory()
	svc := newTestService(t, sim, mem, nil)

	box := &inbox{}
	id, code := svc.RegisterDatagramListener("sms", box)
	require.Equal(t, satellite.Success, code)

	sim.InjectDatagram("sms", []byte("hello"), 0)
	svc.Sync()
	svc.Sync()

	assert.Equal(t, []string{"hello"}, box.payloads())
	assert.Equal(t, 0, mem.Len())
	st := svc.Status()
	assert.Equal(t, 0, st.Delivery.Records)
	assert.Equal(t, uint64(1), st.Delivery.LastID)

	require.NoError(t, svc.UnregisterDatagramListener("sms", id))
	assert.False(t, sim.Subscribed("sms"))
}

func TestDatagramsSurviveRestart(t *testing.T) {
	mem := store.NewMemory()

	sim := modem.NewSimulator(modem.SimulatorConfig{})
	svc := newTestService(t, sim, mem, nil)
	_, code := svc.RegisterDatagramListener("sms", delivery.ListenerFunc(func(uint64, []byte, int, delivery.AckFunc) {}))
	require.Equal(t, satellite.Success, code)
	sim.InjectDatagram("sms", []byte("unacked"), 0)
	svc.Sync()
	require.NoError(t, svc.Stop())
	require.Equal(t, 1, mem.Len())

	restarted := newTestService(t, modem.NewSimulator(modem.SimulatorConfig{}), mem, nil)
	box := &inbox{}
	_, code = restarted.RegisterDatagramListener("sms", box)
	require.Equal(t, satellite.Success, code)
	restarted.Sync()

	assert.Equal(t, []string{"unacked"}, box.payloads())
	assert.Equal(t, 0, mem.Len())
	assert.Equal(t, uint64(1), restarted.Status().Delivery.LastID, "counter restored from the store")
}

func TestEventsShareSessionID(t *testing.T) {
	events := &captureEvents{}
	sim := modem.NewSimulator(modem.SimulatorConfig{})
	svc := newTestService(t, sim, store.NewMemory(), events)

	require.Equal(t, satellite.Success, svc.SetEnabled(testContext(t), satellite.EnableAttributes{Enable: true}))
	svc.Sync()

	sessionID := svc.Status().EventSessionID
	require.NotEmpty(t, sessionID)

	var components = make(map[eventlog.Component]bool)
	for _, e := range events.all() {
		assert.Equal(t, sessionID, e.SessionID)
		assert.False(t, e.Timestamp.IsZero())
		components[e.Component] = true
	}
	assert.True(t, components[eventlog.ComponentService])
	assert.True(t, components[eventlog.ComponentArbiter])
	assert.True(t, components[eventlog.ComponentCoexist])
}

func TestNewFromConfigBackends(t *testing.T) {
	dir := t.TempDir()
	backends := map[string]config.StoreConfig{
		"sqlite": {Backend: config.BackendSQLite, Path: filepath.Join(dir, "satlink.db"), Driver: "sqlite"},
		"json":   {Backend: config.BackendJSON, Path: filepath.Join(dir, "state.json")},
		"memory": {Backend: config.BackendMemory},
	}
	for name, sc := range backends {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store = sc
			cfg.Arbiter.RadioOffTimeout = 0

			svc, err := NewFromConfig(cfg, modem.NewSimulator(modem.SimulatorConfig{}), Options{})
			require.NoError(t, err)
			require.NoError(t, svc.Start())

			box := &inbox{}
			_, code := svc.RegisterDatagramListener("sms", box)
			require.Equal(t, satellite.Success, code)
			require.NoError(t, svc.Stop())
		})
	}
}

func TestNewFromConfigRejectsInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "tape"
	_, err := NewFromConfig(cfg, modem.NewSimulator(modem.SimulatorConfig{}), Options{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
