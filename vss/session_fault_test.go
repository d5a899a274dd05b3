package vss

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/common/errs"
	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/party"
	"github.com/kilnsig/tbbs/transport"
)

// tamperingNet wraps an InMemory network and flips a byte in the unicast
// message sent from `from` to `to`, simulating a dealer corrupting one
// recipient's share (spec.md §8 scenario S3).
type tamperingNet struct {
	*transport.InMemory
	from, to party.ID
}

func (n *tamperingNet) Unicast(ctx context.Context, from, to party.ID, msg []byte) error {
	if from == n.from && to == n.to && len(msg) > 10 {
		tampered := append([]byte(nil), msg...)
		tampered[len(tampered)-1] ^= 0xFF
		return n.InMemory.Unicast(ctx, from, to, tampered)
	}
	return n.InMemory.Unicast(ctx, from, to, msg)
}

func TestDKGAbortsOnInconsistentShare(t *testing.T) {
	s := curve.New(1)
	n, threshold := 3, 2
	ids := []party.ID{1, 2, 3}
	base := transport.NewInMemory(ids)
	net := &tamperingNet{InMemory: base, from: 1, to: 2}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	gotErrs := make(map[party.ID]error, n)

	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := &Session{Suite: s, Self: id, Parties: ids, Threshold: threshold, Net: net, Deadline: 300 * time.Millisecond}
			_, err := sess.Run(ctx)
			mu.Lock()
			gotErrs[id] = err
			mu.Unlock()
		}()
	}
	wg.Wait()

	for id, err := range gotErrs {
		require.Error(t, err, "party %d should have aborted", id)
		var dkgErr *errs.DkgError
		require.ErrorAs(t, err, &dkgErr)
	}
}
