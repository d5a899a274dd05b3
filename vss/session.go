package vss

import (
	"context"
	"crypto/cipher"
	"fmt"
	"time"

	"github.com/drand/kyber"
	"github.com/jonboulle/clockwork"

	"github.com/kilnsig/tbbs/common/errs"
	"github.com/kilnsig/tbbs/common/log"
	"github.com/kilnsig/tbbs/common/metrics"
	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/dkgstore"
	"github.com/kilnsig/tbbs/party"
	"github.com/kilnsig/tbbs/transport"
)

// logKind distinguishes the two kinds of entry a Session appends to its
// BroadcastLog: the round-A commitment broadcast and the abort complaint.
const (
	logKindRoundA    uint8 = iota
	logKindComplaint
)

// Result is a completed DKG's output for one participant.
type Result struct {
	Share  kyber.Scalar // this party's x_i
	Public kyber.Point  // W = g2^x
}

// Session drives one party's side of a Pedersen-VSS DKG instance through
// spec.md §3's lifecycle (Init -> RoundA -> RoundB -> Complain/Verify ->
// Finalize or Abort), reading/writing through a transport.Network. The
// per-party state-machine shape — buffered round state, a single
// done/abort outcome — follows the teacher's dkg.Handler (dkg/dkg.go),
// generalized to this spec's Pedersen-VSS math rather than delegating to
// kyber's own share/dkg/pedersen package (that package doesn't bind the
// constant term to a G2 contribution the way this spec requires).
type Session struct {
	Suite     *curve.Suite
	Self      party.ID
	Parties   []party.ID
	Threshold int
	Net       transport.Network
	Clock     clockwork.Clock
	Deadline  time.Duration // per-round timeout (Delta), spec.md §5
	Log       log.Logger

	// BroadcastLog, if set, durably records every round-A commitment and
	// complaint broadcast this party sends or receives, keyed by
	// (party, round, kind), satisfying the write-once broadcast log
	// spec.md §5 requires alongside the live transport.Network exchange.
	BroadcastLog *dkgstore.Log

	// Stream sources this party's polynomial coefficients and proof
	// randomness. Left nil, it defaults to curve.RandomStream(); tests
	// needing reproducible transcripts (spec.md §8's seed 0x42 vectors)
	// inject a deterministic cipher.Stream here instead.
	Stream cipher.Stream

	inbox    map[envelopeKind]map[party.ID][]byte
	deals    map[party.ID]*Deal
	combined map[party.ID]kyber.Point // combined C_0 per dealer, for the binding proof
}

func (sess *Session) init() {
	if sess.inbox == nil {
		sess.inbox = map[envelopeKind]map[party.ID][]byte{
			envRoundA:    {},
			envRoundB:    {},
			envComplaint: {},
		}
		sess.deals = map[party.ID]*Deal{}
		sess.combined = map[party.ID]kyber.Point{}
	}
	if sess.Clock == nil {
		sess.Clock = clockwork.NewRealClock()
	}
	if sess.Stream == nil {
		sess.Stream = curve.RandomStream()
	}
	if sess.Deadline == 0 {
		sess.Deadline = time.Minute
	}
}

// Run executes the full DKG protocol for this party and returns its
// share of the result, or an error (DkgError on abort).
func (sess *Session) Run(ctx context.Context) (*Result, error) {
	sess.init()

	if _, err := party.NewSet(sess.Parties...); err != nil {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}
	if len(sess.Parties) < sess.Threshold {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, &errs.SigningError{Kind: errs.InsufficientQuorum, Have: len(sess.Parties), Need: sess.Threshold}
	}

	deal, err := NewDeal(sess.Suite, sess.Stream, sess.Self, sess.Threshold, sess.Parties)
	if err != nil {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}
	sess.deals[sess.Self] = deal
	sess.combined[sess.Self] = combinedC0(sess.Suite, deal)

	if err := sess.broadcastRoundA(ctx, deal); err != nil {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}
	if err := sess.collectRoundA(ctx); err != nil {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}

	if err := sess.sendShares(ctx, deal); err != nil {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}
	received, err := sess.collectShares(ctx)
	if err != nil {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}

	verifyErr := sess.verifyAll(received)
	if verifyErr != nil {
		dkgErr, ok := verifyErr.(*errs.DkgError)
		against := party.ID(0)
		if ok {
			against = party.ID(dkgErr.From)
		}
		if cerr := sess.broadcastComplaint(ctx, against); cerr != nil {
			sess.logWarn("failed to broadcast complaint", cerr)
		}
	}
	if err := sess.collectComplaints(ctx); err != nil {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, err
	}
	if verifyErr != nil {
		metrics.DKGSessionsTotal.WithLabelValues("abort").Inc()
		return nil, verifyErr
	}

	share := sess.Suite.G1().Scalar().Zero()
	for _, pair := range received {
		share = share.Add(share, pair[0])
	}
	// include the dealer's own share to itself
	selfS, selfT, _ := deal.ShareFor(sess.Self)
	_ = selfT
	share = share.Add(share, selfS)

	pub := sess.Suite.G2().Point().Null()
	for _, d := range sess.deals {
		pub = pub.Add(pub, d.Y)
	}

	metrics.DKGSessionsTotal.WithLabelValues("success").Inc()
	return &Result{Share: share, Public: pub}, nil
}

func combinedC0(s *curve.Suite, d *Deal) kyber.Point {
	g1 := s.G1()
	return g1.Point().Add(d.CommitF[0], d.CommitG[0])
}

func (sess *Session) broadcastRoundA(ctx context.Context, deal *Deal) error {
	w := &roundAWire{
		base:  transport.RoundABroadcast{PartyID: uint32(sess.Self), FCommits: marshalPoints(deal.CommitF), GCommits: marshalPoints(deal.CommitG)},
		y:     deal.Y,
		proof: deal.Proof,
	}
	buf, err := w.marshal(sess.Suite)
	if err != nil {
		return err
	}
	sess.logAppend(dkgstore.Key{Party: sess.Self, Round: 1, Kind: logKindRoundA}, buf)
	ctx, cancel := context.WithTimeout(ctx, sess.Deadline)
	defer cancel()
	return sess.Net.Broadcast(ctx, sess.Self, sess.Parties, buf)
}

func marshalPoints(pts []kyber.Point) [][]byte {
	out := make([][]byte, len(pts))
	for i, p := range pts {
		buf, _ := curve.MarshalPoint(p)
		out[i] = buf
	}
	return out
}

func unmarshalPoints(s *curve.Suite, g kyber.Group, bufs [][]byte) ([]kyber.Point, error) {
	out := make([]kyber.Point, len(bufs))
	for i, b := range bufs {
		p, err := curve.UnmarshalPoint(g, b)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// collectRoundA receives every other party's commitment broadcast,
// verifies its binding proof, and stores the resulting Deal.
func (sess *Session) collectRoundA(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sess.Deadline)
	defer cancel()

	for _, p := range sess.Parties {
		if p == sess.Self {
			continue
		}
		buf, err := sess.recv(ctx, envRoundA, p)
		if err != nil {
			return &errs.DkgError{Kind: errs.Timeout, Party: uint32(p), Round: 1}
		}
		sess.logAppend(dkgstore.Key{Party: p, Round: 1, Kind: logKindRoundA}, buf)
		w, err := unmarshalRoundA(sess.Suite, buf)
		if err != nil {
			return err
		}
		fCommits, err := unmarshalPoints(sess.Suite, sess.Suite.G1(), w.base.FCommits)
		if err != nil {
			return err
		}
		gCommits, err := unmarshalPoints(sess.Suite, sess.Suite.G1(), w.base.GCommits)
		if err != nil {
			return err
		}
		deal := &Deal{Dealer: p, CommitF: fCommits, CommitG: gCommits, Y: w.y, Proof: w.proof}
		sess.deals[p] = deal

		c0 := combinedC0(sess.Suite, deal)
		sess.combined[p] = c0
		if err := VerifyBinding(sess.Suite, w.y, c0, w.proof); err != nil {
			return errs.NewInconsistentShare(uint32(p), uint32(sess.Self))
		}
	}
	return nil
}

func (sess *Session) sendShares(ctx context.Context, deal *Deal) error {
	ctx, cancel := context.WithTimeout(ctx, sess.Deadline)
	defer cancel()

	for _, q := range sess.Parties {
		if q == sess.Self {
			continue
		}
		sVal, tVal, ok := deal.ShareFor(q)
		if !ok {
			return fmt.Errorf("vss: no share computed for party %d", q)
		}
		sBuf, err := curve.MarshalScalar(sVal)
		if err != nil {
			return err
		}
		tBuf, err := curve.MarshalScalar(tVal)
		if err != nil {
			return err
		}
		sSecret, tSecret := dkgstore.NewSecret(sBuf), dkgstore.NewSecret(tBuf)
		buf, err := roundBWire(sess.Self, q, sSecret.Bytes(), tSecret.Bytes())
		sSecret.Destroy()
		tSecret.Destroy()
		if err != nil {
			return err
		}
		if err := sess.Net.Unicast(ctx, sess.Self, q, buf); err != nil {
			return err
		}
	}
	return nil
}

// collectShares receives every dealer's private share to this party and
// verifies each against that dealer's already-collected commitments.
func (sess *Session) collectShares(ctx context.Context) (map[party.ID][2]kyber.Scalar, error) {
	ctx, cancel := context.WithTimeout(ctx, sess.Deadline)
	defer cancel()

	received := make(map[party.ID][2]kyber.Scalar, len(sess.Parties)-1)
	for _, p := range sess.Parties {
		if p == sess.Self {
			continue
		}
		buf, err := sess.recv(ctx, envRoundB, p)
		if err != nil {
			return nil, &errs.DkgError{Kind: errs.Timeout, Party: uint32(p), Round: 2}
		}
		m, err := unmarshalRoundB(buf)
		if err != nil {
			return nil, err
		}
		if party.ID(m.From) != p || party.ID(m.To) != sess.Self {
			return nil, errs.NewInconsistentShare(uint32(p), uint32(sess.Self))
		}
		sVal, err := curve.UnmarshalScalar(sess.Suite.G1(), m.SScalar)
		if err != nil {
			return nil, err
		}
		tVal, err := curve.UnmarshalScalar(sess.Suite.G1(), m.TScalar)
		if err != nil {
			return nil, err
		}
		received[p] = [2]kyber.Scalar{sVal, tVal}
	}
	return received, nil
}

func (sess *Session) verifyAll(received map[party.ID][2]kyber.Scalar) error {
	for p, pair := range received {
		deal, ok := sess.deals[p]
		if !ok {
			return &errs.DkgError{Kind: errs.MissingBroadcast, Party: uint32(p)}
		}
		if err := VerifyShare(sess.Suite, deal, sess.Self, pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

func (sess *Session) broadcastComplaint(ctx context.Context, against party.ID) error {
	buf, err := complaintWire(sess.Self, against)
	if err != nil {
		return err
	}
	sess.logAppend(dkgstore.Key{Party: sess.Self, Round: 3, Kind: logKindComplaint}, buf)
	ctx, cancel := context.WithTimeout(ctx, sess.Deadline)
	defer cancel()
	return sess.Net.Broadcast(ctx, sess.Self, sess.Parties, buf)
}

// collectComplaints drains the complaint round: any complaint from any
// party aborts the whole instance (spec.md §4.3 step 5, no recovery).
func (sess *Session) collectComplaints(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sess.Deadline)
	defer cancel()

	for _, p := range sess.Parties {
		if p == sess.Self {
			continue
		}
		buf, err := sess.recv(ctx, envComplaint, p)
		if err != nil {
			continue // no complaint from p within the window; that's the happy path
		}
		sess.logAppend(dkgstore.Key{Party: p, Round: 3, Kind: logKindComplaint}, buf)
		m, err := unmarshalComplaint(buf)
		if err != nil {
			return err
		}
		return errs.NewInconsistentShare(m.Against, m.PartyID)
	}
	return nil
}

// recv blocks until an envelope of kind from sender `from` is available,
// pulling from the network and buffering mismatched kinds for later
// phases (spec.md §5: per-sender order is guaranteed, global order is not).
func (sess *Session) recv(ctx context.Context, kind envelopeKind, from party.ID) ([]byte, error) {
	if buf, ok := sess.inbox[kind][from]; ok {
		delete(sess.inbox[kind], from)
		return buf, nil
	}
	ims, ok := sess.Net.(interface {
		Recv(context.Context, party.ID) (party.ID, []byte, error)
	})
	if !ok {
		return nil, fmt.Errorf("vss: network does not support Recv")
	}
	for {
		sender, payload, err := ims.Recv(ctx, sess.Self)
		if err != nil {
			return nil, err
		}
		if len(payload) == 0 {
			continue
		}
		gotKind := envelopeKind(payload[0])
		if gotKind == kind && sender == from {
			return payload, nil
		}
		if sess.inbox[gotKind] == nil {
			sess.inbox[gotKind] = map[party.ID][]byte{}
		}
		sess.inbox[gotKind][sender] = payload
	}
}

func (sess *Session) logWarn(msg string, err error) {
	if sess.Log != nil {
		sess.Log.Warnw(msg, "err", err)
	}
}

// logAppend records an entry in BroadcastLog, if one is configured. A
// write-once collision is logged at warn rather than aborting the session.
// Collisions are routine: the sender and every receiver sharing one Log
// append the same broadcast under the same key, and DKG instances sharing
// one Log reuse the same (party, round, kind) keys.
func (sess *Session) logAppend(key dkgstore.Key, payload []byte) {
	if sess.BroadcastLog == nil {
		return
	}
	if err := sess.BroadcastLog.Append(key, payload); err != nil {
		sess.logWarn("broadcast log append", err)
	}
}
