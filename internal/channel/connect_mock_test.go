package channel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dsnproject/dsn-core/internal/channel"
	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/logging"
	"github.com/dsnproject/dsn-core/internal/transport"
	"github.com/dsnproject/dsn-core/internal/transport/transportmock"
)

// TestConnectDrivesTransportCollaboratorContract exercises Channel.Connect
// against a mocked Transport, verifying the collaborator calls it makes
// (subscribe to inbound events, Connect, and one handshake Send)
// without needing a real wire implementation.
func TestConnectDrivesTransportCollaboratorContract(t *testing.T) {
	ctrl := gomock.NewController(t)
	mt := transportmock.NewMockTransport(ctrl)

	bus := events.NewBus()
	mt.EXPECT().Events().Return(bus).AnyTimes()
	mt.EXPECT().Connect(gomock.Any()).Return(nil)
	mt.EXPECT().Send(gomock.Any(), gomock.Any(), transport.DefaultSendOptions()).
		DoAndReturn(func(ctx context.Context, data []byte, opts transport.SendOptions) error {
			require.Contains(t, string(data), `"type":"handshake"`)
			return nil
		})

	c := channel.New("A", "mesh", []int{3, 5}, 0, logging.NoOp())
	require.NoError(t, c.Connect(context.Background(), "B", mt))

	peer, ok := c.Peer("B")
	require.True(t, ok)
	require.Equal(t, "B", peer.ID)
}

// TestConnectPropagatesTransportConnectError ensures a failing transport
// Connect call surfaces through Channel.Connect and never attempts the
// handshake Send.
func TestConnectPropagatesTransportConnectError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mt := transportmock.NewMockTransport(ctrl)

	bus := events.NewBus()
	mt.EXPECT().Events().Return(bus).AnyTimes()
	mt.EXPECT().Connect(gomock.Any()).Return(errConnectFailed)

	c := channel.New("A", "mesh", []int{3, 5}, 0, logging.NoOp())
	err := c.Connect(context.Background(), "B", mt)
	require.ErrorIs(t, err, errConnectFailed)
}

type connectError struct{}

func (connectError) Error() string { return "connect failed" }

var errConnectFailed = connectError{}
