package satellite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCodeString(t *testing.T) {
	tests := []struct {
		code ResultCode
		want string
	}{
		{Success, "SUCCESS"},
		{InvalidModemState, "INVALID_MODEM_STATE"},
		{DisableInProgress, "DISABLE_IN_PROGRESS"},
		{ModemTimeout, "MODEM_TIMEOUT"},
		{Aborted, "ABORTED"},
		{ResultCode(200), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.String())
	}
}

func TestResultCodeErr(t *testing.T) {
	assert.NoError(t, Success.Err())

	err := ModemTimeout.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ModemTimeout.Err()))
	assert.False(t, errors.Is(err, ModemError.Err()))

	var re *ResultError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ModemTimeout, re.Code)
}

func TestParseRadioKind(t *testing.T) {
	for _, k := range AllRadioKinds {
		got, err := ParseRadioKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseRadioKind(" BT ")
	require.NoError(t, err)
	assert.Equal(t, RadioBluetooth, got)

	_, err = ParseRadioKind("lte")
	assert.Error(t, err)
}

func TestModemStateIsActive(t *testing.T) {
	assert.True(t, ModemIdle.IsActive())
	assert.True(t, ModemListening.IsActive())
	assert.True(t, ModemEnablingSatellite.IsActive())
	assert.False(t, ModemOff.IsActive())
	assert.False(t, ModemUnavailable.IsActive())
	assert.False(t, ModemDisablingSatellite.IsActive())
	assert.False(t, ModemUnknown.IsActive())
}
