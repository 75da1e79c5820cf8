// Package packet defines the network packet representation shared by
// every transport-facing stage: the packetizer, router, FEC writer/reader,
// depacketizer, and receiver orchestration.
//
// Grounded on the jitter buffer's packet node (pkg/jitter/packet.go) for
// the pooled-node shape, and on pion/rtp for the RTP attribute
// representation itself — the RTP wire parser/composer is an external
// collaborator per spec.md §1, so we consume pion/rtp's Header rather
// than lay out bytes ourselves.
package packet

import (
	"net"

	"github.com/pion/rtp"
)

// Flags records which attribute groups are populated and what role the
// packet plays in the pipeline.
type Flags uint16

const (
	FlagUDP     Flags = 1 << 0
	FlagRTP     Flags = 1 << 1
	FlagFEC     Flags = 1 << 2
	FlagAudio   Flags = 1 << 3
	FlagRepair  Flags = 1 << 4
	FlagParsed  Flags = 1 << 5
	FlagComposed Flags = 1 << 6
	// FlagRestored marks a source packet that was recovered by FEC
	// decoding rather than received directly.
	FlagRestored Flags = 1 << 7
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// UDPAttrs holds the optional UDP source/destination addresses.
type UDPAttrs struct {
	Src, Dst net.Addr
}

// RTPAttrs holds the optional RTP attributes. Header carries
// source-id/sequence/timestamp/payload-type; Duration is the number of
// samples per channel the payload represents; Payload is the raw audio
// payload slice (post RTP header).
type RTPAttrs struct {
	Header   rtp.Header
	Duration uint32
	Payload  []byte
}

// FECScheme identifies a registered FEC scheme (see pkg/fec).
type FECScheme string

// FECAttrs holds the optional FEC block-membership attributes.
type FECAttrs struct {
	Scheme            FECScheme
	BlockNumber       uint16
	PacketIndex       uint16
	SourceBlockLength uint16
	RepairBlockLength uint16
	PayloadID         uint32
}

// Packet is a tagged-variant network packet: a buffer plus whichever of
// UDP/RTP/FEC attribute groups Flags says are populated. It is allocated
// from a Pool, Composed (header laid out into Buffer) before send, and
// Parsed (attributes populated from Buffer) on receive.
type Packet struct {
	Flags  Flags
	Buffer []byte

	UDP UDPAttrs
	RTP RTPAttrs
	FEC FECAttrs

	pool    *Pool
	refs    int32
}

// IsAudio reports whether this packet carries audio payload (as opposed
// to a pure FEC repair packet).
func (p *Packet) IsAudio() bool {
	return p.Flags.Has(FlagAudio)
}

// IsRepair reports whether this packet is a FEC repair packet.
func (p *Packet) IsRepair() bool {
	return p.Flags.Has(FlagRepair)
}

// SequenceNumber is a convenience accessor for the RTP sequence number.
func (p *Packet) SequenceNumber() uint16 {
	return p.RTP.Header.SequenceNumber
}

// Timestamp is a convenience accessor for the RTP timestamp.
func (p *Packet) Timestamp() uint32 {
	return p.RTP.Header.Timestamp
}

// Clone returns a new packet (from the same pool, if any) with the same
// attributes and a copy of Buffer/Payload, for holding a packet across a
// boundary where the original will be reused or freed.
func (p *Packet) Clone() *Packet {
	var c *Packet
	if p.pool != nil {
		c = p.pool.Get()
	} else {
		c = &Packet{}
	}
	c.Flags = p.Flags
	c.UDP = p.UDP
	c.RTP = p.RTP
	c.FEC = p.FEC
	if len(p.Buffer) > 0 {
		c.Buffer = append(c.Buffer[:0], p.Buffer...)
	}
	if len(p.RTP.Payload) > 0 {
		c.RTP.Payload = append([]byte(nil), p.RTP.Payload...)
	}
	return c
}
