package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fixedBytes(n int, b byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestRoundABroadcastRoundTrip(t *testing.T) {
	m := &RoundABroadcast{
		PartyID:  7,
		FCommits: [][]byte{fixedBytes(g1Len, 0x01), fixedBytes(g1Len, 0x02)},
		GCommits: [][]byte{fixedBytes(g1Len, 0x03), fixedBytes(g1Len, 0x04)},
	}
	buf, err := m.MarshalBinary()
	require.NoError(t, err)

	got := &RoundABroadcast{}
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, m.PartyID, got.PartyID)
	require.Equal(t, m.FCommits, got.FCommits)
	require.Equal(t, m.GCommits, got.GCommits)
}

func TestRoundBUnicastRoundTrip(t *testing.T) {
	m := &RoundBUnicast{From: 1, To: 2, SScalar: fixedBytes(scalarLen, 0xAA), TScalar: fixedBytes(scalarLen, 0xBB)}
	buf, err := m.MarshalBinary()
	require.NoError(t, err)

	got := &RoundBUnicast{}
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, m, got)
}

func TestRoundBUnicastRejectsBadLength(t *testing.T) {
	m := &RoundBUnicast{From: 1, To: 2, SScalar: fixedBytes(scalarLen, 0xAA), TScalar: fixedBytes(scalarLen-1, 0xBB)}
	_, err := m.MarshalBinary()
	require.Error(t, err)
}

func TestComplaintRoundTrip(t *testing.T) {
	m := &Complaint{PartyID: 3, Against: 9}
	buf, err := m.MarshalBinary()
	require.NoError(t, err)

	got := &Complaint{}
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, m, got)
}

func TestProductBroadcastRoundTrip(t *testing.T) {
	m := &ProductBroadcast{SessionID: [16]byte{1, 2, 3}, PartyID: 4, AlphaScalar: fixedBytes(scalarLen, 0xCC)}
	buf, err := m.MarshalBinary()
	require.NoError(t, err)

	got := &ProductBroadcast{}
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, m, got)
}

func TestShareEmissionRoundTrip(t *testing.T) {
	m := &ShareEmission{
		SessionID: [16]byte{9, 9, 9},
		PartyID:   5,
		A:         fixedBytes(g1Len, 0x10),
		E:         fixedBytes(scalarLen, 0x20),
		S:         fixedBytes(scalarLen, 0x30),
	}
	buf, err := m.MarshalBinary()
	require.NoError(t, err)

	got := &ShareEmission{}
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, m, got)
}

func TestUnmarshalRejectsWrongKindTag(t *testing.T) {
	m := &Complaint{PartyID: 1, Against: 2}
	buf, err := m.MarshalBinary()
	require.NoError(t, err)
	buf[4] = byte(KindProduct)

	got := &Complaint{}
	require.Error(t, got.UnmarshalBinary(buf))
}
