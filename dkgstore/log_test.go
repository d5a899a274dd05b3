package dkgstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/common/testlogger"
	"github.com/kilnsig/tbbs/party"
)

func TestAppendAndGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	s, err := Open(path, testlogger.New(t))
	require.NoError(t, err)
	defer s.Close()

	key := Key{Party: party.ID(1), Round: 1, Kind: 0}
	require.NoError(t, s.Append(key, []byte("hello")))

	got, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), got)
}

func TestAppendRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	s, err := Open(path, testlogger.New(t))
	require.NoError(t, err)
	defer s.Close()

	key := Key{Party: party.ID(2), Round: 1, Kind: 0}
	require.NoError(t, s.Append(key, []byte("first")))
	err = s.Append(key, []byte("second"))
	require.ErrorIs(t, err, ErrAlreadyWritten)

	got, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("first"), got)
}

func TestGetMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	s, err := Open(path, testlogger.New(t))
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(Key{Party: party.ID(9), Round: 1, Kind: 0})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSecretDestroyZeroesBuffer(t *testing.T) {
	sec := NewSecret([]byte{1, 2, 3, 4})
	require.Equal(t, []byte{1, 2, 3, 4}, sec.Bytes())
	backing := sec.Bytes()
	sec.Destroy()
	require.Equal(t, []byte{0, 0, 0, 0}, backing)
	require.Nil(t, sec.Bytes())
}
