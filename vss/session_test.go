package vss

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/drand/kyber"
	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/common/testlogger"
	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/dkgstore"
	"github.com/kilnsig/tbbs/mathutil"
	"github.com/kilnsig/tbbs/party"
	"github.com/kilnsig/tbbs/transport"
)

func runDKG(t *testing.T, n, threshold int) ([]party.ID, map[party.ID]*Result) {
	t.Helper()
	s := curve.New(1)
	ids := make([]party.ID, n)
	for i := 0; i < n; i++ {
		ids[i] = party.ID(i + 1)
	}
	net := transport.NewInMemory(ids)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[party.ID]*Result, n)
	errsOut := make(map[party.ID]error, n)

	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := &Session{Suite: s, Self: id, Parties: ids, Threshold: threshold, Net: net, Deadline: 4 * time.Second}
			res, err := sess.Run(ctx)
			mu.Lock()
			if err != nil {
				errsOut[id] = err
			} else {
				results[id] = res
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	for id, err := range errsOut {
		require.NoError(t, err, "party %d", id)
	}
	return ids, results
}

func TestDKGHonestRunProducesConsistentShares(t *testing.T) {
	ids, results := runDKG(t, 3, 2)
	require.Len(t, results, 3)

	s := curve.New(1)
	g1 := s.G1()

	shares := make(map[party.ID]kyber.Scalar, len(ids))
	var pub kyber.Point
	for _, id := range ids {
		r := results[id]
		require.NotNil(t, r)
		shares[id] = r.Share
		if pub == nil {
			pub = r.Public
		} else {
			require.True(t, pub.Equal(r.Public), "all parties must agree on W")
		}
	}

	x, err := mathutil.ReconstructAtZero(g1, shares)
	require.NoError(t, err)

	wantW := s.G2().Point().Mul(x, s.G2Base)
	require.True(t, wantW.Equal(pub))
}

// TestBroadcastLogRecordsRoundA verifies that a Session wired with a
// dkgstore.Log durably records its own round-A commitment broadcast under
// that broadcast's (party, round, kind) key, spec.md §5.
func TestBroadcastLogRecordsRoundA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dkg-log.db")
	bl, err := dkgstore.Open(path, testlogger.New(t))
	require.NoError(t, err)
	defer bl.Close()

	s := curve.New(1)
	ids := []party.ID{1, 2, 3}
	net := transport.NewInMemory(ids)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := &Session{
				Suite: s, Self: id, Parties: ids, Threshold: 2,
				Net: net, Deadline: 4 * time.Second, BroadcastLog: bl,
			}
			_, err := sess.Run(ctx)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, id := range ids {
		buf, ok, err := bl.Get(dkgstore.Key{Party: id, Round: 1, Kind: logKindRoundA})
		require.NoError(t, err)
		require.True(t, ok, "party %d's round-A broadcast must be logged", id)
		require.NotEmpty(t, buf)
	}
}
