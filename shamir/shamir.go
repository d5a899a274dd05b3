// Package shamir implements (t,n) Shamir secret sharing over the curve's
// scalar field (component C, spec.md §4.2): share, lagrange_coeff and
// reconstruct_at_zero, each a thin, named wrapper around the polynomial
// arithmetic in mathutil so callers get the exact operation names spec.md
// uses. Grounded on the same DeDiS/kyber share-package shape mathutil
// follows, plus luxfi-threshold's pkg/math/polynomial naming convention
// for Share/Eval.
package shamir

import (
	"crypto/cipher"

	"github.com/drand/kyber"

	"github.com/kilnsig/tbbs/common/errs"
	"github.com/kilnsig/tbbs/mathutil"
	"github.com/kilnsig/tbbs/party"
)

// Share is one party's evaluation of a shared polynomial.
type Share struct {
	Index party.ID
	Value kyber.Scalar
}

// ShareSecret picks a degree-(t-1) polynomial with the given constant term
// and evaluates it at 1..n, returning each party's share and the (private)
// coefficient list. secret == nil draws a random constant term.
func ShareSecret(g kyber.Group, stream cipher.Stream, secret kyber.Scalar, t, n int) ([]Share, mathutil.Poly) {
	poly := mathutil.RandomPoly(g, stream, t-1, secret)
	shares := make([]Share, n)
	for i := 1; i <= n; i++ {
		id := party.ID(i)
		shares[i-1] = Share{Index: id, Value: poly.Eval(g, id.Scalar(g))}
	}
	return shares, poly
}

// LagrangeCoeff computes lambda_i(0) with respect to the quorum q.
func LagrangeCoeff(g kyber.Group, i party.ID, q []party.ID) (kyber.Scalar, error) {
	return mathutil.LagrangeCoeff(g, i, q)
}

// ReconstructAtZero recombines a quorum's shares into the shared secret.
func ReconstructAtZero(g kyber.Group, shares []Share) (kyber.Scalar, error) {
	if len(shares) == 0 {
		return nil, &errs.ArithmeticError{Kind: errs.DuplicateIndex}
	}
	m := make(map[party.ID]kyber.Scalar, len(shares))
	for _, s := range shares {
		if _, dup := m[s.Index]; dup {
			return nil, &errs.ArithmeticError{Kind: errs.DuplicateIndex}
		}
		m[s.Index] = s.Value
	}
	return mathutil.ReconstructAtZero(g, m)
}
