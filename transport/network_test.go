package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/party"
)

func TestInMemoryBroadcastExcludesSender(t *testing.T) {
	ids := []party.ID{1, 2, 3}
	n := NewInMemory(ids)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, n.Broadcast(ctx, 1, ids, []byte("hello")))

	from, payload, err := n.Recv(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, party.ID(1), from)
	require.Equal(t, []byte("hello"), payload)

	from, payload, err = n.Recv(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, party.ID(1), from)
	require.Equal(t, []byte("hello"), payload)
}

func TestInMemoryUnicast(t *testing.T) {
	ids := []party.ID{1, 2}
	n := NewInMemory(ids)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, n.Unicast(ctx, 1, 2, []byte("secret")))
	from, payload, err := n.Recv(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, party.ID(1), from)
	require.Equal(t, []byte("secret"), payload)
}

func TestSendAggregatesAllErrors(t *testing.T) {
	ctx := context.Background()
	to := []party.ID{1, 2, 3}
	err := Send(ctx, to, 0, func(ctx context.Context, peer party.ID) error {
		return errAlways{peer}
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "3 errors occurred")
}

type errAlways struct{ peer party.ID }

func (e errAlways) Error() string { return "failed for " + e.peer.String() }
