package arbiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/satlink-project/satlink-go/pkg/modem/mocks"
	"github.com/satlink-project/satlink-go/pkg/satellite"
)

func TestArbiterWithMockGateway(t *testing.T) {
	gw := mocks.NewMockGateway(t)
	attrs := satellite.EnableAttributes{Enable: true, Emergency: true}

	var notify func(satellite.ModemState)
	gw.EXPECT().OnModemStateChanged(mock.Anything).
		Run(func(fn func(satellite.ModemState)) { notify = fn }).
		Return().Once()

	result := make(chan satellite.ResultCode, 1)
	result <- satellite.Success
	gw.EXPECT().RequestSetEnabled(mock.Anything, attrs).Return(result).Once()

	arb, err := New(Config{Gateway: gw})
	require.NoError(t, err)
	arb.Start()
	defer arb.Stop()
	require.NotNil(t, notify)

	done := make(chan satellite.ResultCode, 1)
	arb.RequestEnabled(context.Background(), attrs, func(c satellite.ResultCode) { done <- c })

	select {
	case code := <-done:
		assert.Equal(t, satellite.Success, code)
	case <-time.After(2 * time.Second):
		t.Fatal("enable did not complete")
	}

	// An active modem matching the confirmed session forwards nothing more.
	notify(satellite.ModemIdle)
	arb.Sync()
	snap := arb.Snapshot()
	assert.Equal(t, PhaseEnabled, snap.Phase)
	assert.Equal(t, satellite.ModemIdle, snap.ModemState)
}

func TestArbiterClosedResultChannelIsModemError(t *testing.T) {
	gw := mocks.NewMockGateway(t)
	gw.EXPECT().OnModemStateChanged(mock.Anything).Return().Once()

	result := make(chan satellite.ResultCode)
	close(result)
	gw.EXPECT().RequestSetEnabled(mock.Anything, mock.Anything).Return(result).Once()

	arb, err := New(Config{Gateway: gw})
	require.NoError(t, err)
	arb.Start()
	defer arb.Stop()

	done := make(chan satellite.ResultCode, 1)
	arb.RequestEnabled(context.Background(), satellite.EnableAttributes{Enable: true}, func(c satellite.ResultCode) { done <- c })

	select {
	case code := <-done:
		assert.Equal(t, satellite.ModemError, code)
	case <-time.After(2 * time.Second):
		t.Fatal("enable did not complete")
	}
}
