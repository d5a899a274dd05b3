package bbs

import (
	"testing"

	"github.com/drand/kyber"
	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/curve"
)

func TestProofRoundTripPartialDisclosure(t *testing.T) {
	s := curve.New(3)
	stream := curve.RandomStream()

	kp := Keygen(s, stream)
	messages := scalarsFromInts(s.G1(), 10, 20, 30)

	sig, err := Sign(s, stream, kp, messages)
	require.NoError(t, err)

	disclosed := Disclosure{Disclosed: map[int]kyber.Scalar{1: messages[1]}}
	nonce := []byte("test-nonce")

	proof, err := CreateProof(s, stream, sig, messages, disclosed, nonce)
	require.NoError(t, err)

	err = VerifyProof(s, kp.PK, proof, len(messages), disclosed, nonce)
	require.NoError(t, err)
}

func TestProofRejectsWrongDisclosedValue(t *testing.T) {
	s := curve.New(3)
	stream := curve.RandomStream()

	kp := Keygen(s, stream)
	messages := scalarsFromInts(s.G1(), 10, 20, 30)

	sig, err := Sign(s, stream, kp, messages)
	require.NoError(t, err)

	disclosed := Disclosure{Disclosed: map[int]kyber.Scalar{1: messages[1]}}
	nonce := []byte("test-nonce")

	proof, err := CreateProof(s, stream, sig, messages, disclosed, nonce)
	require.NoError(t, err)

	wrongDisclosed := Disclosure{Disclosed: map[int]kyber.Scalar{1: scalarsFromInts(s.G1(), 999)[0]}}
	err = VerifyProof(s, kp.PK, proof, len(messages), wrongDisclosed, nonce)
	require.Error(t, err)
}

func TestProofRejectsWrongNonce(t *testing.T) {
	s := curve.New(3)
	stream := curve.RandomStream()

	kp := Keygen(s, stream)
	messages := scalarsFromInts(s.G1(), 10, 20, 30)

	sig, err := Sign(s, stream, kp, messages)
	require.NoError(t, err)

	disclosed := Disclosure{Disclosed: map[int]kyber.Scalar{}}
	proof, err := CreateProof(s, stream, sig, messages, disclosed, []byte("nonce-a"))
	require.NoError(t, err)

	err = VerifyProof(s, kp.PK, proof, len(messages), disclosed, []byte("nonce-b"))
	require.Error(t, err)
}
