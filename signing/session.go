// Package signing implements distributed signing (component F, spec.md
// §4.5): three sub-DKG instances jointly sample the BBS+ blinding values
// e, s and an inversion mask rho, a distributed-inversion gadget turns the
// parties' shares of x+e into shares of its inverse, and each party emits
// a group-element share of the signature's A component. The session
// orchestration generalizes the teacher's dkg.Handler round-advance
// pattern (dkg/dkg.go) across several parallel sub-protocol instances
// rather than one.
package signing

import (
	"context"
	"crypto/cipher"
	"time"

	"github.com/drand/kyber"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kilnsig/tbbs/bbs"
	"github.com/kilnsig/tbbs/common/errs"
	"github.com/kilnsig/tbbs/common/log"
	"github.com/kilnsig/tbbs/common/metrics"
	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/dkgstore"
	"github.com/kilnsig/tbbs/mathutil"
	"github.com/kilnsig/tbbs/party"
	"github.com/kilnsig/tbbs/transport"
	"github.com/kilnsig/tbbs/vss"
)

// maxInversionRetries bounds the total number of rho sub-DKG attempts
// (the first one plus its re-runs after a degenerate alpha == 0 draw)
// before the session gives up with SigningError{InversionFailed},
// spec.md §4.5/§7.
const maxInversionRetries = 8

// sub-tags occupy the byte after the 16-byte session id in every message
// this package sends (spec.md §6's "tagged with (session_id:16B, sub:u8)
// where sub in {e, s, rho}"), extended here with four tags of our own
// for the rounds outside the three sub-DKGs: the e and s reveal
// broadcasts, the inversion product broadcast and the share emission.
const (
	tagE byte = iota
	tagS
	tagRho
	tagRevealE
	tagRevealS
	tagProduct
	tagEmit
)

// subTag folds a retry attempt number into the sub-tag byte so a retried
// rho sub-DKG (and its inversion product round) gets a tag distinct from
// every earlier attempt's, rather than reusing one a slow peer's stray
// leftover message might still match.
func subTag(sub byte, attempt int) byte {
	return sub*16 + byte(attempt)
}

// Share is one party's contribution to a BBS+ signature: a group-element
// share of A alongside the e and s values the quorum has already revealed
// by the time Start returns, per the "reveal e and s at the end" variant
// spec.md §4.5/§9 selects. E and S hold the reconstructed e and s
// themselves, identical across the quorum, not this party's e_i, s_i
// shares.
type Share struct {
	Index party.ID
	A     kyber.Point
	E     kyber.Scalar
	S     kyber.Scalar
}

// Session drives one party's side of a single distributed signing
// instance over a message vector M for a fixed signing quorum.
type Session struct {
	Suite     *curve.Suite
	Self      party.ID
	Quorum    []party.ID // Q, the active signing quorum
	Threshold int        // t, the DKG threshold the master key and sub-DKGs share
	Messages  []kyber.Scalar
	MasterKeyShare kyber.Scalar // x_i, this party's share of the master secret x

	Net      transport.Network
	Clock    clockwork.Clock
	Deadline time.Duration
	Log      log.Logger

	// BroadcastLog, if set, is threaded into every sub-DKG this session
	// drives. Its keys are (party, round, kind) with no session or
	// sub-DKG component, so when several DKG instances share one Log only
	// the first instance to write a key keeps its entry; later instances'
	// appends for that key are refused with dkgstore.ErrAlreadyWritten and
	// logged as warnings.
	BroadcastLog *dkgstore.Log

	// Stream sources every sub-DKG's polynomial coefficients and proof
	// randomness, threaded through to each vss.Session this signing
	// session drives. Left nil, each sub-DKG falls back to its own
	// curve.RandomStream() default.
	Stream cipher.Stream

	SessionID [16]byte // set by Start; exposed so callers can log/correlate
}

// Start assigns a fresh session id (spec.md §6) and runs the session to
// completion, enforcing the |Q| >= 2t-1 quorum spec.md §4.5/§9 requires
// for the distributed-inversion degree reduction before anything else.
func (sess *Session) Start(ctx context.Context) (*Share, error) {
	if sess.Clock == nil {
		sess.Clock = clockwork.NewRealClock()
	}
	if sess.Deadline == 0 {
		sess.Deadline = time.Minute
	}
	if _, err := party.NewSet(sess.Quorum...); err != nil {
		metrics.SigningSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}
	need := 2*sess.Threshold - 1
	if len(sess.Quorum) < need {
		metrics.SigningSessionsTotal.WithLabelValues("abort").Inc()
		return nil, &errs.SigningError{Kind: errs.InsufficientQuorum, Have: len(sess.Quorum), Need: need}
	}

	id := uuid.New()
	copy(sess.SessionID[:], id[:])

	share, err := sess.run(ctx)
	if err != nil {
		metrics.SigningSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}
	metrics.SigningSessionsTotal.WithLabelValues("success").Inc()
	return share, nil
}

func (sess *Session) run(ctx context.Context) (*Share, error) {
	router := newRouter(sess.Net, sess.Self)

	eRes, err := sess.runSubDKG(ctx, router, subTag(tagE, 0))
	if err != nil {
		return nil, &errs.SigningError{Kind: errs.SubDkgAborted}
	}
	sRes, err := sess.runSubDKG(ctx, router, subTag(tagS, 0))
	if err != nil {
		return nil, &errs.SigningError{Kind: errs.SubDkgAborted}
	}

	e, s, err := sess.revealEAndS(ctx, router, eRes.Share, sRes.Share)
	if err != nil {
		return nil, err
	}

	u, err := sess.distributedInverse(ctx, router, eRes.Share)
	if err != nil {
		return nil, err
	}

	b, err := bbs.ComputeB(sess.Suite, s, sess.Messages)
	if err != nil {
		return nil, err
	}
	g1 := sess.Suite.G1()
	a := g1.Point().Mul(u, b)

	share := &Share{Index: sess.Self, A: a, E: e, S: s}

	if err := sess.emit(ctx, router, share); err != nil {
		sess.logWarn("failed to broadcast signature share", err)
	}
	return share, nil
}

// runSubDKG drives a full Pedersen-VSS DKG (spec.md §4.3) scoped to this
// party's slice of the router's tag space, producing this party's share
// of a freshly sampled secret and that secret's (unused here) G2 public
// commitment.
func (sess *Session) runSubDKG(ctx context.Context, r *router, sub byte) (*vss.Result, error) {
	vssSess := &vss.Session{
		Suite:        sess.Suite,
		Self:         sess.Self,
		Parties:      sess.Quorum,
		Threshold:    sess.Threshold,
		Net:          r.channel(makeTag(sess.SessionID, sub)),
		Clock:        sess.Clock,
		Deadline:     sess.Deadline,
		Log:          sess.Log,
		Stream:       sess.Stream,
		BroadcastLog: sess.BroadcastLog,
	}
	return vssSess.Run(ctx)
}

// revealEAndS exchanges every quorum member's e_i and s_i sub-DKG shares
// and Lagrange-combines them locally. Revealing the shares here does not
// weaken privacy: e and s are published as part of every BBS+ signature
// regardless (spec.md §4.5's "they are always public in BBS+ anyway").
func (sess *Session) revealEAndS(ctx context.Context, r *router, eShare, sShare kyber.Scalar) (kyber.Scalar, kyber.Scalar, error) {
	eShares, err := sess.exchangeScalar(ctx, r, tagRevealE, eShare)
	if err != nil {
		return nil, nil, err
	}
	sShares, err := sess.exchangeScalar(ctx, r, tagRevealS, sShare)
	if err != nil {
		return nil, nil, err
	}
	g1 := sess.Suite.G1()
	e, err := mathutil.ReconstructAtZero(g1, eShares)
	if err != nil {
		return nil, nil, err
	}
	s, err := mathutil.ReconstructAtZero(g1, sShares)
	if err != nil {
		return nil, nil, err
	}
	return e, s, nil
}

// exchangeScalar broadcasts this party's value tagged sub and collects
// every other quorum member's broadcast of the same round, using
// transport.ProductBroadcast's wire shape (session_id, party_id, scalar)
// since spec.md §6 doesn't define a distinct message for the e/s reveal
// round and this shape already fits it exactly.
func (sess *Session) exchangeScalar(ctx context.Context, r *router, sub byte, value kyber.Scalar) (map[party.ID]kyber.Scalar, error) {
	t := makeTag(sess.SessionID, sub)
	buf, err := marshalScalarBroadcast(sess.SessionID, sess.Self, value)
	if err != nil {
		return nil, err
	}
	bctx, cancel := context.WithTimeout(ctx, sess.Deadline)
	defer cancel()
	if err := r.broadcast(bctx, t, sess.Self, sess.Quorum, buf); err != nil {
		return nil, err
	}

	out := map[party.ID]kyber.Scalar{sess.Self: value}
	for _, p := range sess.Quorum {
		if p == sess.Self {
			continue
		}
		rctx, rcancel := context.WithTimeout(ctx, sess.Deadline)
		_, payload, err := r.recv(rctx, t)
		rcancel()
		if err != nil {
			return nil, &errs.DkgError{Kind: errs.Timeout, Party: uint32(p)}
		}
		from, val, err := unmarshalScalarBroadcast(sess.Suite, payload)
		if err != nil {
			return nil, err
		}
		out[party.ID(from)] = val
	}
	return out, nil
}

// distributedInverse runs the Beaver/Bar-Ilan inversion gadget of spec.md
// §4.5 to produce this party's share u_i of u = 1/(x+e), retrying with a
// fresh rho sub-DKG whenever the revealed product alpha is zero.
func (sess *Session) distributedInverse(ctx context.Context, r *router, eShare kyber.Scalar) (kyber.Scalar, error) {
	g1 := sess.Suite.G1()
	k := g1.Scalar().Add(sess.MasterKeyShare, eShare)

	for attempt := 0; attempt < maxInversionRetries; attempt++ {
		rhoRes, err := sess.runSubDKG(ctx, r, subTag(tagRho, attempt))
		if err != nil {
			return nil, &errs.SigningError{Kind: errs.SubDkgAborted}
		}
		rho := rhoRes.Share

		alphaI := g1.Scalar().Mul(k, rho)
		alphaShares, err := sess.exchangeScalar(ctx, r, subTag(tagProduct, attempt), alphaI)
		if err != nil {
			return nil, err
		}
		alpha, err := mathutil.ReconstructAtZero(g1, alphaShares)
		if err != nil {
			return nil, err
		}
		if alpha.Equal(g1.Scalar().Zero()) {
			destroyScalar(rho)
			metrics.InversionRetriesTotal.Inc()
			continue
		}
		alphaInv, err := sess.Suite.Inv(g1, alpha)
		if err != nil {
			destroyScalar(rho)
			metrics.InversionRetriesTotal.Inc()
			continue
		}
		return g1.Scalar().Mul(rho, alphaInv), nil
	}
	return nil, &errs.SigningError{Kind: errs.InversionFailed}
}

// destroyScalar marshals v and immediately zeroizes the copy, the
// ephemeral-scalar handling spec.md §5/§9 requires for a rho draw that a
// degenerate alpha == 0 discards before it is ever used.
func destroyScalar(v kyber.Scalar) {
	buf, err := curve.MarshalScalar(v)
	if err != nil {
		return
	}
	dkgstore.NewSecret(buf).Destroy()
}

// emit broadcasts this party's final signature share as a
// transport.ShareEmission message, spec.md §6's Phase 3.
func (sess *Session) emit(ctx context.Context, r *router, share *Share) error {
	aBuf, err := curve.MarshalPoint(share.A)
	if err != nil {
		return err
	}
	eBuf, err := curve.MarshalScalar(share.E)
	if err != nil {
		return err
	}
	sBuf, err := curve.MarshalScalar(share.S)
	if err != nil {
		return err
	}
	msg := &transport.ShareEmission{SessionID: sess.SessionID, PartyID: uint32(sess.Self), A: aBuf, E: eBuf, S: sBuf}
	buf, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	ectx, cancel := context.WithTimeout(ctx, sess.Deadline)
	defer cancel()
	return r.broadcast(ectx, makeTag(sess.SessionID, tagEmit), sess.Self, sess.Quorum, buf)
}

func marshalScalarBroadcast(sessionID [16]byte, self party.ID, value kyber.Scalar) ([]byte, error) {
	buf, err := curve.MarshalScalar(value)
	if err != nil {
		return nil, err
	}
	m := &transport.ProductBroadcast{SessionID: sessionID, PartyID: uint32(self), AlphaScalar: buf}
	return m.MarshalBinary()
}

func unmarshalScalarBroadcast(s *curve.Suite, buf []byte) (uint32, kyber.Scalar, error) {
	m := &transport.ProductBroadcast{}
	if err := m.UnmarshalBinary(buf); err != nil {
		return 0, nil, err
	}
	val, err := curve.UnmarshalScalar(s.G1(), m.AlphaScalar)
	if err != nil {
		return 0, nil, err
	}
	return m.PartyID, val, nil
}

func (sess *Session) logWarn(msg string, err error) {
	if sess.Log != nil {
		sess.Log.Warnw(msg, "err", err)
	}
}
