// Package party defines the identity of a participant in the threshold
// protocols: a nonzero evaluation point used throughout Shamir sharing and
// Lagrange reconstruction. It carries no long-term signing identity for
// authenticating protocol packets. Modeled on the Identity/Node split in the
// teacher's common/key package, trimmed to what the protocol core needs
// (no network address or TLS flag — that belongs to the transport layer
// wiring, which is out of this repository's scope).
package party

import (
	"fmt"
	"sort"

	"github.com/drand/kyber"

	"github.com/kilnsig/tbbs/common/errs"
)

// ID is a party's evaluation point, 1-indexed and nonzero, exactly as
// spec.md §3 defines PartyId.
type ID uint32

// Scalar renders the party id as a field element of the given group, the
// x-coordinate at which that party's share of any polynomial is evaluated.
func (id ID) Scalar(g kyber.Group) kyber.Scalar {
	return g.Scalar().SetInt64(int64(id))
}

func (id ID) String() string {
	return fmt.Sprintf("party#%d", uint32(id))
}

// Set is a small helper for deduplicating and validating a quorum of party
// ids, used by the DKG and signing sessions' participant lists and by
// config.Group.Validate.
type Set map[ID]struct{}

// NewSet builds a Set from ids, returning an error if any id is the zero
// element (not a valid evaluation point) or appears more than once.
func NewSet(ids ...ID) (Set, error) {
	s := make(Set, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, &errs.ArithmeticError{Kind: errs.DuplicateIndex}
		}
		if _, ok := s[id]; ok {
			return nil, &errs.DkgError{Kind: errs.DuplicateParty, Party: uint32(id)}
		}
		s[id] = struct{}{}
	}
	return s, nil
}

// Sorted returns the set's members in ascending order.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of parties in the set.
func (s Set) Len() int { return len(s) }

// Contains reports whether id is a member of the set.
func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}
