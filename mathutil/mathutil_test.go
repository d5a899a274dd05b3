package mathutil

import (
	"testing"

	"github.com/drand/kyber"
	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/party"
)

func TestLagrangeIdempotence(t *testing.T) {
	s := curve.New(1)
	g := s.G1()
	stream := curve.RandomStream()

	secret := g.Scalar().Pick(stream)
	const threshold, n = 3, 6
	poly := RandomPoly(g, stream, threshold-1, secret)

	ev := make(map[party.ID]kyber.Scalar, n)
	for i := 1; i <= n; i++ {
		id := party.ID(i)
		ev[id] = poly.Eval(g, id.Scalar(g))
	}

	quorums := [][]int{
		{1, 2, 3},
		{2, 4, 6},
		{1, 3, 5, 6},
	}
	for _, q := range quorums {
		m := make(map[party.ID]kyber.Scalar, len(q))
		for _, i := range q {
			id := party.ID(i)
			m[id] = ev[id]
		}
		got, err := ReconstructAtZero(g, m)
		require.NoError(t, err)
		require.True(t, got.Equal(secret))
	}
}

func TestLagrangeRejectsDuplicateOrZero(t *testing.T) {
	s := curve.New(1)
	g := s.G1()
	_, err := LagrangeCoeff(g, party.ID(1), []party.ID{1, 1, 2})
	require.Error(t, err)

	_, err = LagrangeCoeff(g, party.ID(1), []party.ID{0, 1, 2})
	require.Error(t, err)
}

func TestReconstructPointAtZeroMatchesScalar(t *testing.T) {
	s := curve.New(1)
	g := s.G1()
	stream := curve.RandomStream()

	secret := g.Scalar().Pick(stream)
	poly := RandomPoly(g, stream, 2, secret)
	base := s.G1Base

	ptShares := make(map[party.ID]kyber.Point, 4)
	for i := 1; i <= 4; i++ {
		id := party.ID(i)
		fi := poly.Eval(g, id.Scalar(g))
		ptShares[id] = g.Point().Mul(fi, base)
	}
	q := map[party.ID]kyber.Point{1: ptShares[1], 2: ptShares[2], 3: ptShares[3]}
	got, err := ReconstructPointAtZero(g, q)
	require.NoError(t, err)

	want := g.Point().Mul(secret, base)
	require.True(t, got.Equal(want))
}
