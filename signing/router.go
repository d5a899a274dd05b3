package signing

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilnsig/tbbs/party"
	"github.com/kilnsig/tbbs/transport"
)

// tagLen is the length of the (session_id, sub) prefix spec.md §6 requires
// on every signing sub-protocol message: 16-byte session id + 1-byte tag.
const tagLen = 17

type tag [tagLen]byte

func makeTag(sessionID [16]byte, sub byte) tag {
	var t tag
	copy(t[:16], sessionID[:])
	t[16] = sub
	return t
}

// router multiplexes a single shared transport.Network across the several
// sub-protocol instances one signing session runs concurrently against it
// (the e, s and rho sub-DKGs, the inversion product round, the e/s reveal
// round): every message is prefixed with a (session_id, sub) tag on the
// way out, and demultiplexed by that tag on the way back in. Messages that
// arrive for a tag nobody is waiting on yet are buffered per-tag rather
// than dropped, generalizing the same buffer-by-kind technique
// vss.Session.recv uses to cope with the per-sender (not global) ordering
// guarantee spec.md §5 gives broadcast channels.
type router struct {
	net  transport.Network
	self party.ID

	mu      sync.Mutex
	pending map[tag][][2]interface{} // tag -> []{sender party.ID, payload []byte}
}

func newRouter(net transport.Network, self party.ID) *router {
	return &router{net: net, self: self, pending: map[tag][][2]interface{}{}}
}

// channel returns a transport.Network view scoped to one (session, sub)
// tag, suitable for driving a vss.Session or any other round-based
// sub-protocol unmodified.
func (r *router) channel(t tag) transport.Network {
	return &taggedNetwork{router: r, tag: t}
}

func (r *router) broadcast(ctx context.Context, t tag, from party.ID, to []party.ID, msg []byte) error {
	return r.net.Broadcast(ctx, from, to, append(append([]byte(nil), t[:]...), msg...))
}

func (r *router) unicast(ctx context.Context, t tag, from, to party.ID, msg []byte) error {
	return r.net.Unicast(ctx, from, to, append(append([]byte(nil), t[:]...), msg...))
}

// recv blocks until a message tagged t arrives, either from the pending
// buffer or the underlying network.
func (r *router) recv(ctx context.Context, t tag) (party.ID, []byte, error) {
	r.mu.Lock()
	if q := r.pending[t]; len(q) > 0 {
		head := q[0]
		r.pending[t] = q[1:]
		r.mu.Unlock()
		return head[0].(party.ID), head[1].([]byte), nil
	}
	r.mu.Unlock()

	ims, ok := r.net.(interface {
		Recv(context.Context, party.ID) (party.ID, []byte, error)
	})
	if !ok {
		return 0, nil, fmt.Errorf("signing: network does not support Recv")
	}

	for {
		sender, payload, err := ims.Recv(ctx, r.self)
		if err != nil {
			return 0, nil, err
		}
		if len(payload) < tagLen {
			continue
		}
		var got tag
		copy(got[:], payload[:tagLen])
		rest := append([]byte(nil), payload[tagLen:]...)
		if got == t {
			return sender, rest, nil
		}
		r.mu.Lock()
		r.pending[got] = append(r.pending[got], [2]interface{}{sender, rest})
		r.mu.Unlock()
	}
}

// taggedNetwork is the transport.Network view a single sub-protocol
// instance sees: its own slice of the router's tag space.
type taggedNetwork struct {
	router *router
	tag    tag
}

func (n *taggedNetwork) Broadcast(ctx context.Context, from party.ID, to []party.ID, msg []byte) error {
	return n.router.broadcast(ctx, n.tag, from, to, msg)
}

func (n *taggedNetwork) Unicast(ctx context.Context, from, to party.ID, msg []byte) error {
	return n.router.unicast(ctx, n.tag, from, to, msg)
}

func (n *taggedNetwork) Recv(ctx context.Context, id party.ID) (party.ID, []byte, error) {
	return n.router.recv(ctx, n.tag)
}
