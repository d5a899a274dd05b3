// Package mathutil collects the field-arithmetic helpers shared by the
// Shamir, Pedersen-VSS and distributed-signing packages: Lagrange
// coefficients at zero, interpolation at zero, and polynomial sampling and
// evaluation (component B). The modular inverse and secure scalar sampling
// live in curve (Suite.Inv, Suite.RandomScalar). The call shapes follow the kyber `share` package
// (see share/dkg/pedersen/dkg.go's PriPoly/PubPoly usage) recast directly
// onto kyber.Scalar rather than introducing a parallel polynomial type.
package mathutil

import (
	"crypto/cipher"

	"github.com/drand/kyber"

	"github.com/kilnsig/tbbs/common/errs"
	"github.com/kilnsig/tbbs/party"
)

// Poly is a polynomial over Fr represented by its coefficients, lowest
// degree first: Poly[0] is the constant term.
type Poly []kyber.Scalar

// RandomPoly samples a degree-(degree) polynomial with the given constant
// term (pass nil to draw a random constant term too), as Pedersen-VSS
// dealers do for their f_p/g_p pair (spec.md §4.3 step 1).
func RandomPoly(g kyber.Group, stream cipher.Stream, degree int, constant kyber.Scalar) Poly {
	p := make(Poly, degree+1)
	if constant != nil {
		p[0] = constant
	} else {
		p[0] = g.Scalar().Pick(stream)
	}
	for k := 1; k <= degree; k++ {
		p[k] = g.Scalar().Pick(stream)
	}
	return p
}

// Eval evaluates the polynomial at x using Horner's method.
func (p Poly) Eval(g kyber.Group, x kyber.Scalar) kyber.Scalar {
	acc := g.Scalar().Zero()
	for i := len(p) - 1; i >= 0; i-- {
		acc = acc.Mul(acc, x)
		acc = acc.Add(acc, p[i])
	}
	return acc
}

// Degree returns the polynomial's degree.
func (p Poly) Degree() int { return len(p) - 1 }

// LagrangeCoeff computes lambda_i(0), the Lagrange coefficient of party i
// at x=0 with respect to the evaluation points of the parties in q,
// per spec.md §3/§9: lambda_i(0) = prod_{j in q, j!=i} j / (j - i).
func LagrangeCoeff(g kyber.Group, i party.ID, q []party.ID) (kyber.Scalar, error) {
	num := g.Scalar().One()
	den := g.Scalar().One()
	zero := g.Scalar().Zero()
	iScalar := i.Scalar(g)

	seen := make(map[party.ID]bool, len(q))
	for _, j := range q {
		if j == 0 {
			return nil, &errs.ArithmeticError{Kind: errs.DuplicateIndex}
		}
		if seen[j] {
			return nil, &errs.ArithmeticError{Kind: errs.DuplicateIndex}
		}
		seen[j] = true
		if j == i {
			continue
		}
		jScalar := j.Scalar(g)
		num = num.Mul(num, jScalar)

		diff := g.Scalar().Sub(jScalar, iScalar)
		if diff.Equal(zero) {
			return nil, &errs.ArithmeticError{Kind: errs.DuplicateIndex}
		}
		den = den.Mul(den, diff)
	}
	if den.Equal(zero) {
		return nil, &errs.ArithmeticError{Kind: errs.DivZero}
	}
	return g.Scalar().Div(num, den), nil
}

// ReconstructAtZero recombines |shares| >= t evaluations of a degree-(t-1)
// polynomial into its constant term via Lagrange interpolation at 0,
// spec.md §3's reconstruct_at_zero. shares maps party id to that party's
// evaluation f(i); all ids present in shares are used as the quorum.
func ReconstructAtZero(g kyber.Group, shares map[party.ID]kyber.Scalar) (kyber.Scalar, error) {
	q := make([]party.ID, 0, len(shares))
	for i := range shares {
		q = append(q, i)
	}
	acc := g.Scalar().Zero()
	for i, yi := range shares {
		lambda, err := LagrangeCoeff(g, i, q)
		if err != nil {
			return nil, err
		}
		term := g.Scalar().Mul(lambda, yi)
		acc = acc.Add(acc, term)
	}
	return acc, nil
}

// ReconstructPointAtZero performs the group-exponent analogue of
// ReconstructAtZero: given group-element shares A_i = base^{f(i)}, it
// recovers base^{f(0)} as prod_i A_i^{lambda_i(0)}, the Lagrange-in-the-
// exponent combination spec.md §4.5/§9 uses to combine signature shares
// into the final A element without ever reconstructing the scalar exponent.
func ReconstructPointAtZero(g kyber.Group, shares map[party.ID]kyber.Point) (kyber.Point, error) {
	q := make([]party.ID, 0, len(shares))
	for i := range shares {
		q = append(q, i)
	}
	acc := g.Point().Null()
	for i, Ai := range shares {
		lambda, err := LagrangeCoeff(g, i, q)
		if err != nil {
			return nil, err
		}
		term := g.Point().Mul(lambda, Ai)
		acc = acc.Add(acc, term)
	}
	return acc, nil
}
