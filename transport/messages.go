// Package transport defines the wire message types exchanged by the DKG
// and distributed-signing state machines (spec.md §6) and the Network
// abstraction they are driven through. The spec treats parties as
// communicating over an idealized authenticated broadcast and private
// point-to-point channel; a real binding (gRPC, libp2p, ...) is out of
// scope, but the interface boundary and an in-memory reference
// implementation for tests/simulation are in scope.
package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/kilnsig/tbbs/common/errs"
)

// Kind tags the message types exchanged during a DKG or signing round.
type Kind uint8

const (
	KindRoundA Kind = iota
	KindRoundB
	KindComplaint
	KindProduct
	KindShareEmission
)

const scalarLen = 32
const g1Len = 48
const g2Len = 96

// RoundABroadcast is a dealer's Pedersen commitment broadcast, spec.md §6:
// (party_id:u32, kind:u8=0, commitments: G1[t] || G1[t]).
type RoundABroadcast struct {
	PartyID  uint32
	FCommits [][]byte // g1^{a_k}, k in [0,t)
	GCommits [][]byte // h0^{b_k}, same length; C_{p,k} = FCommits[k] . GCommits[k]
}

func (m *RoundABroadcast) MarshalBinary() ([]byte, error) {
	if len(m.FCommits) != len(m.GCommits) {
		return nil, fmt.Errorf("transport: mismatched commitment vector lengths")
	}
	buf := make([]byte, 0, 5+len(m.FCommits)*g1Len*2)
	buf = append(buf, le32(m.PartyID)...)
	buf = append(buf, byte(KindRoundA))
	for _, c := range m.FCommits {
		if len(c) != g1Len {
			return nil, &errs.SerializationError{Kind: errs.BadLength}
		}
		buf = append(buf, c...)
	}
	for _, c := range m.GCommits {
		if len(c) != g1Len {
			return nil, &errs.SerializationError{Kind: errs.BadLength}
		}
		buf = append(buf, c...)
	}
	return buf, nil
}

func (m *RoundABroadcast) UnmarshalBinary(buf []byte) error {
	if len(buf) < 5 || (len(buf)-5)%(2*g1Len) != 0 {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	m.PartyID = readLE32(buf[0:4])
	if Kind(buf[4]) != KindRoundA {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	t := (len(buf) - 5) / (2 * g1Len)
	body := buf[5:]
	m.FCommits = make([][]byte, t)
	m.GCommits = make([][]byte, t)
	for k := 0; k < t; k++ {
		m.FCommits[k] = append([]byte(nil), body[k*g1Len:(k+1)*g1Len]...)
	}
	offset := t * g1Len
	for k := 0; k < t; k++ {
		m.GCommits[k] = append([]byte(nil), body[offset+k*g1Len:offset+(k+1)*g1Len]...)
	}
	return nil
}

// RoundBUnicast privately delivers a dealer's shares to one recipient,
// spec.md §6: (from:u32, to:u32, kind:u8=1, s_scalar:32B, t_scalar:32B).
type RoundBUnicast struct {
	From    uint32
	To      uint32
	SScalar []byte
	TScalar []byte
}

func (m *RoundBUnicast) MarshalBinary() ([]byte, error) {
	if len(m.SScalar) != scalarLen || len(m.TScalar) != scalarLen {
		return nil, &errs.SerializationError{Kind: errs.BadLength}
	}
	buf := make([]byte, 0, 9+2*scalarLen)
	buf = append(buf, le32(m.From)...)
	buf = append(buf, le32(m.To)...)
	buf = append(buf, byte(KindRoundB))
	buf = append(buf, m.SScalar...)
	buf = append(buf, m.TScalar...)
	return buf, nil
}

func (m *RoundBUnicast) UnmarshalBinary(buf []byte) error {
	if len(buf) != 9+2*scalarLen {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	m.From = readLE32(buf[0:4])
	m.To = readLE32(buf[4:8])
	if Kind(buf[8]) != KindRoundB {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	m.SScalar = append([]byte(nil), buf[9:9+scalarLen]...)
	m.TScalar = append([]byte(nil), buf[9+scalarLen:9+2*scalarLen]...)
	return nil
}

// Complaint names an inconsistent dealer, spec.md §6:
// (party_id:u32, kind:u8=2, against:u32).
type Complaint struct {
	PartyID uint32
	Against uint32
}

func (m *Complaint) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 9)
	buf = append(buf, le32(m.PartyID)...)
	buf = append(buf, byte(KindComplaint))
	buf = append(buf, le32(m.Against)...)
	return buf, nil
}

func (m *Complaint) UnmarshalBinary(buf []byte) error {
	if len(buf) != 9 {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	m.PartyID = readLE32(buf[0:4])
	if Kind(buf[4]) != KindComplaint {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	m.Against = readLE32(buf[5:9])
	return nil
}

// SubDKGKind names which of the three signing sub-DKGs a message belongs
// to, spec.md §6's `sub ∈ {e, s, ρ}`.
type SubDKGKind uint8

const (
	SubDKGE SubDKGKind = iota
	SubDKGS
	SubDKGRho
)

// ProductBroadcast is the distributed-inversion gadget's alpha_i
// broadcast, spec.md §6: (session_id, party_id, alpha_scalar:32B).
type ProductBroadcast struct {
	SessionID  [16]byte
	PartyID    uint32
	AlphaScalar []byte
}

func (m *ProductBroadcast) MarshalBinary() ([]byte, error) {
	if len(m.AlphaScalar) != scalarLen {
		return nil, &errs.SerializationError{Kind: errs.BadLength}
	}
	buf := make([]byte, 0, 16+4+1+scalarLen)
	buf = append(buf, m.SessionID[:]...)
	buf = append(buf, le32(m.PartyID)...)
	buf = append(buf, byte(KindProduct))
	buf = append(buf, m.AlphaScalar...)
	return buf, nil
}

func (m *ProductBroadcast) UnmarshalBinary(buf []byte) error {
	if len(buf) != 16+4+1+scalarLen {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	copy(m.SessionID[:], buf[0:16])
	m.PartyID = readLE32(buf[16:20])
	if Kind(buf[20]) != KindProduct {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	m.AlphaScalar = append([]byte(nil), buf[21:21+scalarLen]...)
	return nil
}

// ShareEmission is a party's final signature-share output, spec.md §6:
// (session_id, party_id, A_i:48B, e_i:32B, s_i:32B).
type ShareEmission struct {
	SessionID [16]byte
	PartyID   uint32
	A         []byte
	E         []byte
	S         []byte
}

func (m *ShareEmission) MarshalBinary() ([]byte, error) {
	if len(m.A) != g1Len || len(m.E) != scalarLen || len(m.S) != scalarLen {
		return nil, &errs.SerializationError{Kind: errs.BadLength}
	}
	buf := make([]byte, 0, 16+4+1+g1Len+2*scalarLen)
	buf = append(buf, m.SessionID[:]...)
	buf = append(buf, le32(m.PartyID)...)
	buf = append(buf, byte(KindShareEmission))
	buf = append(buf, m.A...)
	buf = append(buf, m.E...)
	buf = append(buf, m.S...)
	return buf, nil
}

func (m *ShareEmission) UnmarshalBinary(buf []byte) error {
	const want = 16 + 4 + 1 + g1Len + 2*scalarLen
	if len(buf) != want {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	copy(m.SessionID[:], buf[0:16])
	m.PartyID = readLE32(buf[16:20])
	if Kind(buf[20]) != KindShareEmission {
		return &errs.SerializationError{Kind: errs.BadLength}
	}
	m.A = append([]byte(nil), buf[21:21+g1Len]...)
	m.E = append([]byte(nil), buf[21+g1Len:21+g1Len+scalarLen]...)
	m.S = append([]byte(nil), buf[21+g1Len+scalarLen:21+g1Len+2*scalarLen]...)
	return nil
}

func le32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func readLE32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}
