// Package curve is the field/curve adapter (component A): it wraps the
// BLS12-381 pairing suite from github.com/drand/kyber-bls12381 behind a
// small Suite type carrying the fixed public generators the rest of the
// service needs (g1, g2 and the message-generator vector h0..hL), in the
// same spirit as the teacher's crypto.Scheme wrapping a kyber pairing.Suite
// with scheme-specific fixed points.
package curve

import (
	"crypto/cipher"
	"fmt"

	"github.com/drand/kyber"
	bls "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/pairing"
	"github.com/drand/kyber/util/random"

	"github.com/kilnsig/tbbs/common/errs"
)

// GeneratorDST is the domain separation tag used to hash the message
// generator vector onto G1, per spec.md §6/§9: h_i = hash_to_curve_G1(DST ||
// LE32(i)).
const GeneratorDST = "BBS+-GEN-v1"

// hashablePoint mirrors the unexported interface kyber-bls12381's G1 point
// implements to support BLS's hash-to-curve message encoding (see
// github.com/drand/kyber/sign/bls).
type hashablePoint interface {
	Hash([]byte) kyber.Point
}

// Suite bundles the pairing groups with the fixed, nothing-up-my-sleeve
// generators the BBS+ scheme signs and verifies against.
type Suite struct {
	pairing.Suite

	G1Base kyber.Point // g1, the standard G1 generator
	G2Base kyber.Point // g2, the standard G2 generator
	H0     kyber.Point // blinding generator for s
	H      []kyber.Point // message generators h_1..h_L
}

// New builds a Suite supporting up to maxMessages signed message slots.
func New(maxMessages int) *Suite {
	p := bls.NewBLS12381SuiteWithDST(
		[]byte("BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_NUL_"),
		[]byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_"),
	)
	s := &Suite{
		Suite:  p,
		G1Base: p.G1().Point().Base(),
		G2Base: p.G2().Point().Base(),
	}
	s.H0 = s.generator(0)
	s.H = make([]kyber.Point, maxMessages)
	for i := 0; i < maxMessages; i++ {
		s.H[i] = s.generator(i + 1)
	}
	return s
}

// generator derives the i-th nothing-up-my-sleeve G1 generator by hashing
// the domain separation tag concatenated with the little-endian index.
func (s *Suite) generator(i int) kyber.Point {
	hp, ok := s.G1().Point().(hashablePoint)
	if !ok {
		panic("curve: G1 point does not implement hash-to-curve")
	}
	tag := append([]byte(GeneratorDST), le32(i)...)
	return hp.Hash(tag)
}

func le32(i int) []byte {
	return []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24)}
}

// RandomStream returns a cryptographically secure stream suitable for
// Scalar.Pick / Point.Pick, matching the teacher's use of
// github.com/drand/kyber/util/random.New() throughout key generation.
func RandomStream() cipher.Stream {
	return random.New()
}

// RandomScalar draws a uniform scalar from the suite's scalar field, retrying
// on zero when nonZero is requested (e.g. a BBS+ secret key x, or the proof
// randomizers r1, r2 which must be invertible).
func (s *Suite) RandomScalar(stream cipher.Stream, nonZero bool) kyber.Scalar {
	g := s.G1()
	for {
		sc := g.Scalar().Pick(stream)
		if !nonZero || !sc.Equal(g.Scalar().Zero()) {
			return sc
		}
	}
}

// Inv computes the multiplicative inverse of a scalar, failing with
// ArithmeticError{DivZero} on the zero element rather than relying on
// kyber's Scalar.Inv, which does not itself distinguish the zero case.
func (s *Suite) Inv(g kyber.Group, x kyber.Scalar) (kyber.Scalar, error) {
	if x.Equal(g.Scalar().Zero()) {
		return nil, &errs.ArithmeticError{Kind: errs.DivZero}
	}
	return g.Scalar().Inv(x), nil
}

// CheckNotInfinity rejects the point at infinity where the protocol
// forbids it (e.g. a signature's A element, spec.md §4.1/§4.4).
func CheckNotInfinity(g kyber.Group, p kyber.Point) error {
	if p.Equal(g.Point().Null()) {
		return &errs.VerificationError{Kind: errs.IdentityElement}
	}
	return nil
}

// MarshalPoint / UnmarshalPoint give canonical compressed-point
// (de)serialization with the length checks spec.md §6 calls for.
func MarshalPoint(p kyber.Point) ([]byte, error) {
	return p.MarshalBinary()
}

func UnmarshalPoint(g kyber.Group, buf []byte) (kyber.Point, error) {
	if len(buf) != g.Point().MarshalSize() {
		return nil, &errs.SerializationError{Kind: errs.BadLength}
	}
	p := g.Point()
	if err := p.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("curve: unmarshal point: %w", err)
	}
	return p, nil
}

// MarshalScalar / UnmarshalScalar give canonical 32-byte scalar
// (de)serialization with the range check spec.md §6 calls for.
func MarshalScalar(s kyber.Scalar) ([]byte, error) {
	return s.MarshalBinary()
}

func UnmarshalScalar(g kyber.Group, buf []byte) (kyber.Scalar, error) {
	if len(buf) != g.Scalar().MarshalSize() {
		return nil, &errs.SerializationError{Kind: errs.BadLength}
	}
	sc := g.Scalar()
	if err := sc.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("curve: unmarshal scalar: %w", err)
	}
	return sc, nil
}
