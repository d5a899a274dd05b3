// Package reconstruct implements the reconstructor (component G, spec.md
// §4.6): Lagrange-combining a quorum's signature shares into a complete
// BBS+ signature and gating its release through centralized verification,
// mirroring the teacher's sign/tbls.Recover "verify inputs, then
// Lagrange-combine" structure — except the combination here happens in
// the group (A_i^{lambda_i(0)}) rather than purely in the scalar field,
// since A is a group-element share rather than a partial signature over a
// fixed basis.
package reconstruct

import (
	"time"

	"github.com/kilnsig/tbbs/bbs"
	"github.com/kilnsig/tbbs/common/errs"
	"github.com/kilnsig/tbbs/common/metrics"
	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/mathutil"
	"github.com/kilnsig/tbbs/party"
	"github.com/kilnsig/tbbs/signing"
	"github.com/drand/kyber"
)

// Combine recombines shares into a full BBS+ signature and verifies it
// against pk before returning it, spec.md §4.6's "the reconstructor then
// runs §4.4 Verify to gate release". minShares is the degree-plus-one
// threshold each of E, S and A's underlying sharing was produced at
// (the DKG threshold t: the distributed-inversion gadget rescales rho_i's
// degree-(t-1) sharing by a public scalar, so A_i's group-exponent shares
// interpolate at t just like e_i/s_i do, even though the signing quorum
// itself must be 2t-1 for the inversion's intermediate product step).
func Combine(s *curve.Suite, pk kyber.Point, messages []kyber.Scalar, minShares int, shares []signing.Share) (*bbs.Signature, error) {
	if len(shares) < minShares {
		return nil, &errs.ReconstructError{Kind: errs.TooFewShares}
	}

	aShares := make(map[party.ID]kyber.Point, len(shares))
	eShares := make(map[party.ID]kyber.Scalar, len(shares))
	sShares := make(map[party.ID]kyber.Scalar, len(shares))
	for _, sh := range shares {
		if _, dup := aShares[sh.Index]; dup {
			return nil, &errs.ReconstructError{Kind: errs.DuplicateShare}
		}
		aShares[sh.Index] = sh.A
		eShares[sh.Index] = sh.E
		sShares[sh.Index] = sh.S
	}

	start := time.Now()

	g1 := s.G1()
	e, err := mathutil.ReconstructAtZero(g1, eShares)
	if err != nil {
		return nil, err
	}
	sVal, err := mathutil.ReconstructAtZero(g1, sShares)
	if err != nil {
		return nil, err
	}
	a, err := mathutil.ReconstructPointAtZero(g1, aShares)
	if err != nil {
		return nil, err
	}

	sig := &bbs.Signature{A: a, E: e, S: sVal}
	metrics.ReconstructDuration.Observe(time.Since(start).Seconds())

	if err := bbs.Verify(s, pk, sig, messages); err != nil {
		return nil, &errs.ReconstructError{Kind: errs.VerifyFailed}
	}
	return sig, nil
}
