package modem

import (
	"context"

	"github.com/satlink-project/satlink-go/pkg/satellite"
)

// DatagramHandler receives inbound datagrams for one channel. pendingCount is
// the number of datagrams still queued at the modem after this one.
type DatagramHandler func(payload []byte, pendingCount int)

// Gateway is the command and notification surface of the satellite modem.
type Gateway interface {
	// RequestSetEnabled asks the modem to enable or disable the link, or,
	// with Enable set on an already enabled link, to reconfigure it. The
	// returned channel yields one result code.
	RequestSetEnabled(ctx context.Context, attrs satellite.EnableAttributes) <-chan satellite.ResultCode

	// RequestPollPending asks the modem to push datagrams it still holds.
	RequestPollPending(ctx context.Context) <-chan satellite.ResultCode

	// SubscribeDatagrams registers the handler for a channel.
	SubscribeDatagrams(channel string, handler DatagramHandler) error

	// UnsubscribeDatagrams removes the handler for a channel.
	UnsubscribeDatagrams(channel string) error

	// OnModemStateChanged registers the modem state callback.
	OnModemStateChanged(fn func(state satellite.ModemState))

	// OnRadioStateChanged registers the callback for other radios' power state.
	OnRadioStateChanged(fn func(kind satellite.RadioKind, on bool))
}
