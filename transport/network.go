package transport

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/kilnsig/tbbs/party"
)

// Network is the messaging abstraction every protocol state machine is
// driven through, mirroring how the teacher's dkg.Handler is driven by an
// injected Network rather than owning its own I/O loop. Broadcast is
// authenticated and totally ordered per sender; Unicast is point-to-point,
// in-order and confidential, per spec.md §5.
type Network interface {
	// Broadcast delivers msg to every party in to except from, in parallel.
	Broadcast(ctx context.Context, from party.ID, to []party.ID, msg []byte) error
	// Unicast delivers msg privately to a single recipient.
	Unicast(ctx context.Context, from, to party.ID, msg []byte) error
}

// Send fans a broadcast out to each recipient concurrently and aggregates
// every failure via go-multierror, rather than returning only the first
// error as the teacher's GrpcNetwork.Send comment flags as a known gap
// ("Send currently sends sequentially (boo!)").
func Send(ctx context.Context, to []party.ID, from party.ID, action func(ctx context.Context, peer party.ID) error) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var result *multierror.Error

	for _, p := range to {
		if p == from {
			continue
		}
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := action(ctx, p); err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return result.ErrorOrNil()
}

// InMemory is a reference Network for single-process tests and
// simulation: every registered party's inbox is an in-process channel.
type InMemory struct {
	mu      sync.Mutex
	inboxes map[party.ID]chan inboundMessage
}

type inboundMessage struct {
	from    party.ID
	payload []byte
}

// NewInMemory builds an InMemory network with an inbox for every party id.
func NewInMemory(ids []party.ID) *InMemory {
	n := &InMemory{inboxes: make(map[party.ID]chan inboundMessage, len(ids))}
	for _, id := range ids {
		n.inboxes[id] = make(chan inboundMessage, 256)
	}
	return n
}

// Broadcast delivers msg to every recipient's inbox except from.
func (n *InMemory) Broadcast(ctx context.Context, from party.ID, to []party.ID, msg []byte) error {
	return Send(ctx, to, from, func(ctx context.Context, peer party.ID) error {
		return n.deliver(ctx, from, peer, msg)
	})
}

// Unicast delivers msg privately to a single recipient's inbox.
func (n *InMemory) Unicast(ctx context.Context, from, to party.ID, msg []byte) error {
	return n.deliver(ctx, from, to, msg)
}

func (n *InMemory) deliver(ctx context.Context, from, to party.ID, msg []byte) error {
	n.mu.Lock()
	inbox, ok := n.inboxes[to]
	n.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case inbox <- inboundMessage{from: from, payload: append([]byte(nil), msg...)}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks until a message arrives in id's inbox or ctx is cancelled.
func (n *InMemory) Recv(ctx context.Context, id party.ID) (party.ID, []byte, error) {
	n.mu.Lock()
	inbox := n.inboxes[id]
	n.mu.Unlock()
	select {
	case m := <-inbox:
		return m.from, m.payload, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}
