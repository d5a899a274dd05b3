package bbs

import (
	"testing"

	"github.com/drand/kyber"
	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/curve"
)

func scalarsFromInts(g kyber.Group, vals ...int64) []kyber.Scalar {
	out := make([]kyber.Scalar, len(vals))
	for i, v := range vals {
		out[i] = g.Scalar().SetInt64(v)
	}
	return out
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	s := curve.New(3)
	stream := curve.RandomStream()

	kp := Keygen(s, stream)
	messages := scalarsFromInts(s.G1(), 1, 2, 3)

	sig, err := Sign(s, stream, kp, messages)
	require.NoError(t, err)
	require.NoError(t, Verify(s, kp.PK, sig, messages))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	s := curve.New(3)
	stream := curve.RandomStream()

	kp := Keygen(s, stream)
	messages := scalarsFromInts(s.G1(), 1, 2, 3)

	sig, err := Sign(s, stream, kp, messages)
	require.NoError(t, err)

	tampered := scalarsFromInts(s.G1(), 1, 99, 3)
	err = Verify(s, kp.PK, sig, tampered)
	require.Error(t, err)
}

func TestVerifyRejectsInfinityA(t *testing.T) {
	s := curve.New(1)
	stream := curve.RandomStream()
	kp := Keygen(s, stream)
	messages := scalarsFromInts(s.G1(), 1)
	sig, err := Sign(s, stream, kp, messages)
	require.NoError(t, err)

	sig.A = s.G1().Point().Null()
	err = Verify(s, kp.PK, sig, messages)
	require.Error(t, err)
}
