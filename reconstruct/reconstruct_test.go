package reconstruct

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/drand/kyber"
	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/common/errs"
	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/party"
	"github.com/kilnsig/tbbs/signing"
	"github.com/kilnsig/tbbs/transport"
	"github.com/kilnsig/tbbs/vss"
)

func runMasterDKG(t *testing.T, s *curve.Suite, ids []party.ID, threshold int) (map[party.ID]kyber.Scalar, kyber.Point) {
	t.Helper()
	net := transport.NewInMemory(ids)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	shares := make(map[party.ID]kyber.Scalar, len(ids))
	var pub kyber.Point
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := &vss.Session{Suite: s, Self: id, Parties: ids, Threshold: threshold, Net: net, Deadline: 5 * time.Second}
			res, err := sess.Run(ctx)
			require.NoError(t, err)
			mu.Lock()
			shares[id] = res.Share
			pub = res.Public
			mu.Unlock()
		}()
	}
	wg.Wait()
	return shares, pub
}

func runSigning(t *testing.T, s *curve.Suite, quorum []party.ID, threshold int, masterShares map[party.ID]kyber.Scalar, messages []kyber.Scalar) []signing.Share {
	t.Helper()
	net := transport.NewInMemory(quorum)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	shares := make([]signing.Share, 0, len(quorum))
	for _, id := range quorum {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := &signing.Session{
				Suite:          s,
				Self:           id,
				Quorum:         quorum,
				Threshold:      threshold,
				Messages:       messages,
				MasterKeyShare: masterShares[id],
				Net:            net,
				Deadline:       10 * time.Second,
			}
			sh, err := sess.Start(ctx)
			require.NoError(t, err)
			mu.Lock()
			shares = append(shares, *sh)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return shares
}

func TestCombineProducesVerifiableSignature(t *testing.T) {
	s := curve.New(3)
	threshold := 2
	quorum := []party.ID{1, 2, 3}

	masterShares, pub := runMasterDKG(t, s, quorum, threshold)
	messages := []kyber.Scalar{
		s.G1().Scalar().SetInt64(1),
		s.G1().Scalar().SetInt64(2),
		s.G1().Scalar().SetInt64(3),
	}

	shares := runSigning(t, s, quorum, threshold, masterShares, messages)

	sig, err := Combine(s, pub, messages, threshold, shares)
	require.NoError(t, err)
	require.NotNil(t, sig)
}

func TestCombineRejectsTamperedMessage(t *testing.T) {
	s := curve.New(3)
	threshold := 2
	quorum := []party.ID{1, 2, 3}

	masterShares, pub := runMasterDKG(t, s, quorum, threshold)
	messages := []kyber.Scalar{
		s.G1().Scalar().SetInt64(1),
		s.G1().Scalar().SetInt64(2),
		s.G1().Scalar().SetInt64(3),
	}

	shares := runSigning(t, s, quorum, threshold, masterShares, messages)

	tampered := []kyber.Scalar{
		s.G1().Scalar().SetInt64(1),
		s.G1().Scalar().SetInt64(99),
		s.G1().Scalar().SetInt64(3),
	}
	_, err := Combine(s, pub, tampered, threshold, shares)
	require.Error(t, err)
	var rerr *errs.ReconstructError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, errs.VerifyFailed, rerr.Kind)
}

func TestCombineTooFewShares(t *testing.T) {
	s := curve.New(1)
	_, err := Combine(s, s.G2().Point().Null(), nil, 2, nil)
	require.Error(t, err)
	var rerr *errs.ReconstructError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, errs.TooFewShares, rerr.Kind)
}

func TestCombineDuplicateShare(t *testing.T) {
	s := curve.New(1)
	g1 := s.G1()
	dup := signing.Share{Index: party.ID(1), A: g1.Point().Null(), E: g1.Scalar().Zero(), S: g1.Scalar().Zero()}
	_, err := Combine(s, s.G2().Point().Null(), nil, 1, []signing.Share{dup, dup})
	require.Error(t, err)
	var rerr *errs.ReconstructError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, errs.DuplicateShare, rerr.Kind)
}
