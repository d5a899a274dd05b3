package party

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilnsig/tbbs/common/errs"
)

func TestNewSet(t *testing.T) {
	s, err := NewSet(1, 3, 2)
	require.NoError(t, err)
	require.Equal(t, []ID{1, 2, 3}, s.Sorted())
	require.Equal(t, 3, s.Len())
	require.True(t, s.Contains(2))
	require.False(t, s.Contains(4))
}

func TestNewSetRejectsZeroID(t *testing.T) {
	_, err := NewSet(1, 0, 2)
	var arithErr *errs.ArithmeticError
	require.True(t, errors.As(err, &arithErr))
	require.Equal(t, errs.DuplicateIndex, arithErr.Kind)
}

func TestNewSetRejectsDuplicateID(t *testing.T) {
	_, err := NewSet(1, 2, 2)
	var dkgErr *errs.DkgError
	require.True(t, errors.As(err, &dkgErr))
	require.Equal(t, errs.DuplicateParty, dkgErr.Kind)
	require.EqualValues(t, 2, dkgErr.Party)
}
