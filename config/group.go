// Package config holds the committee description every protocol package
// is parameterized by: the party list, the DKG threshold, and (once the
// DKG has finalized) the master public key — loaded from and saved to a
// TOML file in the teacher's common/key/group.go / keys.go style (a
// Tomler-like TOML()/FromTOML() pair encoded with BurntSushi/toml), with
// point/scalar hex-encoding following key/encoding.go's
// PointToString/StringToPoint helpers.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/drand/kyber"

	"github.com/kilnsig/tbbs/curve"
	"github.com/kilnsig/tbbs/party"
)

// PartyInfo names one committee member: its evaluation point and an
// operator-assigned, purely descriptive label.
type PartyInfo struct {
	Index party.ID
	Label string
}

// Group describes the committee running the threshold BBS+ protocol.
type Group struct {
	Threshold int
	Parties   []PartyInfo

	// PublicKey is W = g2^x, nil until the DKG finalizes (spec.md §3's
	// "once published, W is immutable").
	PublicKey kyber.Point
}

// PartyIDs returns the committee's evaluation points in ascending order.
func (g *Group) PartyIDs() []party.ID {
	ids := make([]party.ID, len(g.Parties))
	for i, p := range g.Parties {
		ids[i] = p.Index
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SigningQuorumSize is the |Q| >= 2t-1 the distributed-inversion gadget
// requires for a signing session, spec.md §4.5/§9.
func (g *Group) SigningQuorumSize() int {
	return 2*g.Threshold - 1
}

// Validate checks the group is internally consistent: enough parties for
// both its DKG threshold and its derived signing quorum, distinct nonzero
// indices, no duplicate labels required but indices must be unique.
func (g *Group) Validate() error {
	if g.Threshold < 1 {
		return fmt.Errorf("config: threshold must be >= 1, got %d", g.Threshold)
	}
	if len(g.Parties) < g.SigningQuorumSize() {
		return fmt.Errorf("config: need at least %d parties for threshold %d, have %d", g.SigningQuorumSize(), g.Threshold, len(g.Parties))
	}
	if _, err := party.NewSet(g.PartyIDs()...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// groupTOML is the TOML-serializable shadow of Group, following
// common/key/group.go's convention of a parallel *TOML struct with plain
// (string/int) fields.
type groupTOML struct {
	Threshold int
	Parties   []partyTOML
	PublicKey string `toml:"public_key,omitempty"`
}

type partyTOML struct {
	Index uint32
	Label string
}

// TOML returns a TOML-marshalable snapshot of g, mirroring
// common/key/keys.go's Pair.TOML()/Identity.TOML().
func (g *Group) TOML() interface{} {
	t := &groupTOML{Threshold: g.Threshold, Parties: make([]partyTOML, len(g.Parties))}
	for i, p := range g.Parties {
		t.Parties[i] = partyTOML{Index: uint32(p.Index), Label: p.Label}
	}
	if g.PublicKey != nil {
		buf, _ := curve.MarshalPoint(g.PublicKey)
		t.PublicKey = hex.EncodeToString(buf)
	}
	return t
}

// TOMLValue returns an empty value suitable as a toml.Decode target,
// mirroring common/key/keys.go's Identity.TOMLValue().
func (g *Group) TOMLValue() interface{} {
	return &groupTOML{}
}

// FromTOML populates g from a decoded groupTOML, unmarshaling the public
// key against suite's G2 group if present.
func (g *Group) FromTOML(s *curve.Suite, i interface{}) error {
	t, ok := i.(*groupTOML)
	if !ok {
		return fmt.Errorf("config: FromTOML expects *groupTOML, got %T", i)
	}
	g.Threshold = t.Threshold
	g.Parties = make([]PartyInfo, len(t.Parties))
	for i, p := range t.Parties {
		g.Parties[i] = PartyInfo{Index: party.ID(p.Index), Label: p.Label}
	}
	g.PublicKey = nil
	if t.PublicKey != "" {
		buf, err := hex.DecodeString(t.PublicKey)
		if err != nil {
			return fmt.Errorf("config: decoding public key: %w", err)
		}
		pk, err := curve.UnmarshalPoint(s.G2(), buf)
		if err != nil {
			return fmt.Errorf("config: decoding public key: %w", err)
		}
		g.PublicKey = pk
	}
	return nil
}

// Save writes g to path as TOML, mirroring FileStore.Save's
// toml.NewEncoder(fd).Encode(t.TOML()) pattern.
func Save(path string, g *Group) error {
	fd, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer fd.Close()
	return toml.NewEncoder(fd).Encode(g.TOML())
}

// Load reads a Group back from a TOML file written by Save, mirroring
// FileStore.Load's toml.DecodeFile(path, t.TOMLValue()) pattern.
func Load(s *curve.Suite, path string) (*Group, error) {
	g := &Group{}
	tv := g.TOMLValue()
	if _, err := toml.DecodeFile(path, tv); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := g.FromTOML(s, tv); err != nil {
		return nil, err
	}
	return g, nil
}
