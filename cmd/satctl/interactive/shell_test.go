package interactive

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satlink-project/satlink-go/pkg/arbiter"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/service"
	"github.com/satlink-project/satlink-go/pkg/store"
)

// lockedBuffer is written from service workers and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	shell *Shell
	svc   *service.Service
	sim   *modem.Simulator
	pre   *arbiter.StaticPreconditions
	out   *lockedBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sim := modem.NewSimulator(modem.SimulatorConfig{})
	mem := store.NewMemory()
	pre := arbiter.NewStaticPreconditions()

	svc, err := service.New(service.Config{
		Gateway:        sim,
		RecordStore:    mem,
		CounterStore:   mem,
		Preconditions:  pre,
		RequiredRadios: []satellite.RadioKind{satellite.RadioWiFi},
		EnableTimeout:  5 * time.Second,
		RetryInterval:  time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(func() { svc.Stop() })

	out := &lockedBuffer{}
	return &fixture{
		shell: newShell(svc, sim, pre, out),
		svc:   svc,
		sim:   sim,
		pre:   pre,
		out:   out,
	}
}

func (f *fixture) run(line string) bool {
	quit := f.shell.Execute(context.Background(), line)
	f.svc.Sync()
	return quit
}

func TestShellListenInjectAck(t *testing.T) {
	f := newFixture(t)

	f.run("listen sms")
	assert.Contains(t, f.out.String(), "Listening on sms")
	assert.True(t, f.sim.Subscribed("sms"))

	f.run("inject sms hello 2")
	assert.Contains(t, f.out.String(), `[sms] datagram 1: "hello" (2 pending)`)
	assert.Equal(t, 1, f.svc.Status().Delivery.Records)

	f.run("ack 1")
	assert.Contains(t, f.out.String(), "Acknowledged 1")
	assert.Equal(t, 0, f.svc.Status().Delivery.Records)

	f.run("ack 1")
	assert.Contains(t, f.out.String(), "No unacknowledged datagram 1")

	f.run("unlisten sms")
	assert.Contains(t, f.out.String(), "Stopped listening on sms")
	assert.False(t, f.sim.Subscribed("sms"))
}

func TestShellAutoAck(t *testing.T) {
	f := newFixture(t)

	f.run("listen alerts auto")
	f.run("inject alerts ping")
	f.svc.Sync()

	assert.Contains(t, f.out.String(), `[alerts] datagram 1: "ping"`)
	assert.Equal(t, 0, f.svc.Status().Delivery.Records)

	f.run("listen alerts")
	assert.Contains(t, f.out.String(), "Already listening on alerts")
}

func TestShellEnableDisable(t *testing.T) {
	f := newFixture(t)

	f.run("enable demo")
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(f.out.String()), []byte("enable=true demo=true emergency=false finished: SUCCESS"))
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, f.sim.RadioOn(satellite.RadioWiFi))

	f.run("status")
	assert.Contains(t, f.out.String(), "Phase:    ENABLED")
	assert.Contains(t, f.out.String(), "wifi*=off")

	f.run("disable")
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(f.out.String()), []byte("enable=false demo=false emergency=false finished: SUCCESS"))
	}, 5*time.Second, 10*time.Millisecond)
}

func TestShellEmergencyCallBlocksEnable(t *testing.T) {
	f := newFixture(t)

	f.run("emergency-call on")
	f.run("enable")
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(f.out.String()), []byte("finished: EMERGENCY_CALL_IN_PROGRESS"))
	}, 5*time.Second, 10*time.Millisecond)
}

func TestShellSimulatorControls(t *testing.T) {
	f := newFixture(t)

	f.run("radio nfc off")
	assert.False(t, f.sim.RadioOn(satellite.RadioNFC))

	f.run("modem listening")
	assert.Contains(t, f.out.String(), "Modem reported LISTENING")

	f.run("silent on")
	assert.Contains(t, f.out.String(), "Modem silence on")

	f.run("force modem-error")
	assert.Contains(t, f.out.String(), "Next command will answer MODEM_ERROR")

	f.run("require bluetooth uwb")
	assert.Equal(t, []satellite.RadioKind{satellite.RadioBluetooth, satellite.RadioUltraWideband},
		f.svc.Status().RequiredRadios)
}

func TestShellRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		line string
		want string
	}{
		{"frobnicate", "Unknown command: frobnicate"},
		{"radio laser on", "unknown radio kind"},
		{"radio wifi maybe", "expected on or off"},
		{"modem sleeping", "unknown modem state"},
		{"force nope", "unknown result code"},
		{"inject sms", "Usage: inject"},
		{"inject sms hi -3", "Invalid pending count"},
		{"ack abc", "Invalid id"},
		{"enable turbo", "Unknown enable option"},
		{"unlisten sms", "Not listening on sms"},
	}

	for _, tt := range tests {
		f.run(tt.line)
		assert.Contains(t, f.out.String(), tt.want, tt.line)
	}
}

func TestShellQuit(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.run(""))
	assert.False(t, f.run("help"))
	assert.True(t, f.run("quit"))
}
