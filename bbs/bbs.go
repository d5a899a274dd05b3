// Package bbs implements centralized BBS+ keygen, sign and verify
// (component D) plus the selective-disclosure zero-knowledge proof of
// knowledge (component H), the same equations the anupsv-BBSplus-signatures
// reference (bbs-signature.go/bbs-proof.go) implements over gnark-crypto's
// bls12-381, recast onto the kyber Scalar/Point API this repository uses
// elsewhere so the centralized and distributed signers share one curve
// adapter (curve.Suite). This package also serves as the reference oracle
// the distributed signing/reconstruct packages check their output against,
// and as the edge verifier spec.md §2 component H calls for.
package bbs

import (
	"crypto/cipher"

	"github.com/drand/kyber"

	"github.com/kilnsig/tbbs/common/errs"
	"github.com/kilnsig/tbbs/curve"
)

// KeyPair is a centralized BBS+ signing key: x in Fr\{0} and W = g2^x.
type KeyPair struct {
	SK kyber.Scalar
	PK kyber.Point
}

// Keygen draws x uniformly from Fr\{0} and derives W = g2^x, spec.md §4.4.
func Keygen(s *curve.Suite, stream cipher.Stream) *KeyPair {
	x := s.RandomScalar(stream, true)
	w := s.G2().Point().Mul(x, s.G2Base)
	return &KeyPair{SK: x, PK: w}
}

// Signature is a BBS+ signature (A, e, s), spec.md §3/§6.
type Signature struct {
	A kyber.Point
	E kyber.Scalar
	S kyber.Scalar
}

// ComputeB evaluates B = g1 * h0^s * prod h_i^{m_i}, the commitment to the
// blinding value s and the message vector shared by Sign and Verify. It is
// exported so the distributed signing package can compute the same B once
// e and s have been jointly revealed, without duplicating the equation.
func ComputeB(s *curve.Suite, sVal kyber.Scalar, messages []kyber.Scalar) (kyber.Point, error) {
	if len(messages) > len(s.H) {
		return nil, &errs.ArithmeticError{Kind: errs.NotInField}
	}
	g1 := s.G1()
	b := g1.Point().Set(s.G1Base)
	b = b.Add(b, g1.Point().Mul(sVal, s.H0))
	for i, m := range messages {
		b = b.Add(b, g1.Point().Mul(m, s.H[i]))
	}
	return b, nil
}

// Sign produces a BBS+ signature over messages under sk, retrying internally
// if the drawn e happens to make x+e == 0 (negligible probability, but
// spec.md §4.4 calls for the retry rather than ignoring the case).
func Sign(s *curve.Suite, stream cipher.Stream, sk *KeyPair, messages []kyber.Scalar) (*Signature, error) {
	g1 := s.G1()
	for {
		e := s.RandomScalar(stream, false)
		sVal := s.RandomScalar(stream, false)

		xPlusE := g1.Scalar().Add(sk.SK, e)
		if xPlusE.Equal(g1.Scalar().Zero()) {
			continue
		}

		b, err := ComputeB(s, sVal, messages)
		if err != nil {
			return nil, err
		}

		inv, err := s.Inv(g1, xPlusE)
		if err != nil {
			continue
		}
		a := g1.Point().Mul(inv, b)
		return &Signature{A: a, E: e, S: sVal}, nil
	}
}

// Verify checks a BBS+ signature against the master public key and message
// vector: A != O and e(A, W . g2^e) == e(B, g2), spec.md §4.4.
func Verify(s *curve.Suite, pk kyber.Point, sig *Signature, messages []kyber.Scalar) error {
	g1 := s.G1()
	g2 := s.G2()

	if err := curve.CheckNotInfinity(g1, sig.A); err != nil {
		return err
	}

	b, err := ComputeB(s, sig.S, messages)
	if err != nil {
		return err
	}

	lhsG2 := g2.Point().Add(pk, g2.Point().Mul(sig.E, s.G2Base))
	lhs := s.Pair(sig.A, lhsG2)
	rhs := s.Pair(b, s.G2Base)

	if !lhs.Equal(rhs) {
		return &errs.VerificationError{Kind: errs.PairingMismatch}
	}
	return nil
}
