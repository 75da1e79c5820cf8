package receiver

import (
	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

// Protocol is a port's admission predicate, distinguishing the URI
// schemes of spec.md §6 (SPEC_FULL.md §C.5): a bare RTP stream, RTP
// carrying one of the FEC source protocols, and the two repair-only
// (footer-only, no RTP header) protocols.
type Protocol int

const (
	ProtoRTP Protocol = iota
	ProtoRTPReedSolomonM8
	ProtoRTPLDPCStaircase
	ProtoReedSolomonM8Repair
	ProtoLDPCStaircaseRepair
)

// Admits reports whether a packet's flags match what this protocol
// expects to receive on a port.
func (p Protocol) Admits(pkt *packet.Packet) bool {
	switch p {
	case ProtoRTP:
		return pkt.Flags.Has(packet.FlagRTP) && !pkt.Flags.Has(packet.FlagFEC)
	case ProtoRTPReedSolomonM8, ProtoRTPLDPCStaircase:
		return pkt.Flags.Has(packet.FlagRTP) && pkt.Flags.Has(packet.FlagFEC) && !pkt.IsRepair()
	case ProtoReedSolomonM8Repair, ProtoLDPCStaircaseRepair:
		return pkt.Flags.Has(packet.FlagFEC) && pkt.IsRepair()
	default:
		return false
	}
}

// FECScheme returns the FEC scheme this protocol implies, or "" if the
// protocol carries no FEC.
func (p Protocol) FECScheme() packet.FECScheme {
	switch p {
	case ProtoRTPReedSolomonM8, ProtoReedSolomonM8Repair:
		return "reed-solomon-m8"
	case ProtoRTPLDPCStaircase, ProtoLDPCStaircaseRepair:
		return "ldpc-staircase"
	default:
		return ""
	}
}

// IsRepairOnly reports whether this protocol carries repair packets
// with no accompanying RTP header.
func (p Protocol) IsRepairOnly() bool {
	return p == ProtoReedSolomonM8Repair || p == ProtoLDPCStaircaseRepair
}

// Port is a bound receive endpoint (spec.md §3), represented by the
// protocol it expects; it holds no local address. A packet is admitted
// only if some port's protocol Admits it.
type Port struct {
	Protocol Protocol
}
