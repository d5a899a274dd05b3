package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/party"
)

func TestGroupSaveLoadRoundTrip(t *testing.T) {
	s := curve.New(1)
	w := s.G2().Point().Mul(s.RandomScalar(curve.RandomStream(), true), s.G2Base)

	g := &Group{
		Threshold: 2,
		Parties: []PartyInfo{
			{Index: party.ID(1), Label: "alice"},
			{Index: party.ID(2), Label: "bob"},
			{Index: party.ID(3), Label: "carol"},
		},
		PublicKey: w,
	}
	require.NoError(t, g.Validate())

	path := filepath.Join(t.TempDir(), "group.toml")
	require.NoError(t, Save(path, g))

	got, err := Load(s, path)
	require.NoError(t, err)
	require.Equal(t, g.Threshold, got.Threshold)
	require.Equal(t, g.Parties, got.Parties)
	require.True(t, g.PublicKey.Equal(got.PublicKey))
}

func TestGroupValidateRejectsTooFewParties(t *testing.T) {
	g := &Group{
		Threshold: 3,
		Parties: []PartyInfo{
			{Index: party.ID(1)}, {Index: party.ID(2)},
		},
	}
	require.Error(t, g.Validate())
}

func TestGroupSigningQuorumSize(t *testing.T) {
	g := &Group{Threshold: 3}
	require.Equal(t, 5, g.SigningQuorumSize())
}
