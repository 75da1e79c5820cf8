package fec

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

type fifoReader struct {
	pkts []*packet.Packet
	i    int
}

func (f *fifoReader) ReadPacket() (*packet.Packet, error) {
	if f.i >= len(f.pkts) {
		return nil, nil
	}
	p := f.pkts[f.i]
	f.i++
	return p, nil
}

func mkSourcePacket(sn uint16, payload string) *packet.Packet {
	return &packet.Packet{
		Flags: packet.FlagAudio | packet.FlagRTP,
		RTP:   packet.RTPAttrs{Header: rtp.Header{SequenceNumber: sn}, Payload: []byte(payload)},
	}
}

// mkRTPSourcePacket builds a source packet with a realistic RTP
// timeline (SSRC/duration/timestamp all consistent with sn), for tests
// that check the timing a FEC-recovered packet is reconstructed with.
func mkRTPSourcePacket(sn uint16, dur uint32, payload string) *packet.Packet {
	return &packet.Packet{
		Flags: packet.FlagAudio | packet.FlagRTP,
		RTP: packet.RTPAttrs{
			Header:   rtp.Header{SequenceNumber: sn, Timestamp: uint32(sn) * dur, SSRC: 0xABCD, PayloadType: 11},
			Duration: dur,
			Payload:  []byte(payload),
		},
	}
}

func drainAll(r *Reader) []*packet.Packet {
	var out []*packet.Packet
	for {
		p, _ := r.ReadPacket()
		if p == nil {
			break
		}
		out = append(out, p)
	}
	return out
}

func TestFECNoLossRoundTrip(t *testing.T) {
	const n, m = 4, 1
	var routed []*packet.Packet
	w, err := NewWriter(WriterConfig{Scheme: SchemeXORParity, N: n, M: m, Downstream: packet.WriterFunc(func(p *packet.Packet) error {
		routed = append(routed, p)
		return nil
	})})
	require.NoError(t, err)

	payloads := []string{"aaaa", "bbbb", "cccc", "dddd"}
	for i, pl := range payloads {
		w.WritePacket(mkSourcePacket(uint16(i), pl))
	}

	require.Len(t, routed, n+m, "expected source+repair packets routed")

	var sources []*packet.Packet
	var repairs []*packet.Packet
	for _, p := range routed {
		if p.IsRepair() {
			repairs = append(repairs, p)
		} else {
			sources = append(sources, p)
		}
	}

	r, err := NewReader(ReaderConfig{Scheme: SchemeXORParity, N: n, M: m, Upstream: &fifoReader{pkts: sources}})
	require.NoError(t, err)
	for _, rp := range repairs {
		r.WriteRepair(rp)
	}

	got := drainAll(r)
	require.Len(t, got, n, "expected all source packets yielded")
	for i, p := range got {
		assert.Equal(t, payloads[i], string(p.RTP.Payload), "packet %d", i)
		assert.False(t, p.IsRepair(), "packet %d: repair packets must never be yielded", i)
	}
}

func TestFECRecoversOneLoss(t *testing.T) {
	const n, m = 4, 1
	const dur = 160
	var routed []*packet.Packet
	w, _ := NewWriter(WriterConfig{Scheme: SchemeXORParity, N: n, M: m, Downstream: packet.WriterFunc(func(p *packet.Packet) error {
		routed = append(routed, p)
		return nil
	})})

	payloads := []string{"aaaa", "bbbb", "cccc", "dddd"}
	for i, pl := range payloads {
		w.WritePacket(mkRTPSourcePacket(uint16(i), dur, pl))
	}

	var sources []*packet.Packet
	var repairs []*packet.Packet
	for _, p := range routed {
		if p.IsRepair() {
			repairs = append(repairs, p)
		} else if p.FEC.PacketIndex != 2 { // drop source index 2 ("cccc")
			sources = append(sources, p)
		}
	}
	// force the block to finalize: the block has only 3/4 source slots
	// filled, so it never auto-completes without a next-block arrival.
	next := mkRTPSourcePacket(uint16(n), dur, "eeee")
	next.Flags |= packet.FlagFEC
	next.FEC = packet.FECAttrs{Scheme: SchemeXORParity, BlockNumber: 1, PacketIndex: 0, SourceBlockLength: n, RepairBlockLength: m}
	sources = append(sources, next)

	r, _ := NewReader(ReaderConfig{Scheme: SchemeXORParity, N: n, M: m, Upstream: &fifoReader{pkts: sources}})
	for _, rp := range repairs {
		r.WriteRepair(rp)
	}

	got := drainAll(r)
	require.Len(t, got, n, "expected all source packets recovered")

	recovered := got[2]
	assert.Equal(t, "cccc", string(recovered.RTP.Payload))
	assert.True(t, recovered.Flags.Has(packet.FlagRestored), "expected recovered packet to carry FlagRestored")

	// the recovered packet must be usable by the depacketizer: it needs
	// a real Duration and a SequenceNumber/Timestamp consistent with its
	// position in the block, derived from a present neighbor.
	assert.EqualValues(t, dur, recovered.RTP.Duration, "recovered packet must carry the block's duration")
	assert.EqualValues(t, 2, recovered.SequenceNumber(), "recovered packet must carry the seqnum implied by its slot index")
	assert.EqualValues(t, 2*dur, recovered.Timestamp(), "recovered packet must carry the timestamp implied by its slot index")
}

func TestFECUnrecoverableYieldsPresentOnly(t *testing.T) {
	const n, m = 4, 1
	var routed []*packet.Packet
	w, _ := NewWriter(WriterConfig{Scheme: SchemeXORParity, N: n, M: m, Downstream: packet.WriterFunc(func(p *packet.Packet) error {
		routed = append(routed, p)
		return nil
	})})
	payloads := []string{"aaaa", "bbbb", "cccc", "dddd"}
	for i, pl := range payloads {
		w.WritePacket(mkSourcePacket(uint16(i), pl))
	}

	var sources []*packet.Packet
	for _, p := range routed {
		// drop two source packets: more losses than the XOR codec (M=1) can cover.
		if !p.IsRepair() && p.FEC.PacketIndex != 1 && p.FEC.PacketIndex != 2 {
			sources = append(sources, p)
		}
	}
	// a packet from the next block forces the first block to finalize
	// (spec.md §4.7: "...OR the first packet of the next block arrives").
	next := mkSourcePacket(uint16(n), "eeee")
	next.Flags |= packet.FlagFEC
	next.FEC = packet.FECAttrs{Scheme: SchemeXORParity, BlockNumber: 1, PacketIndex: 0, SourceBlockLength: n, RepairBlockLength: m}
	sources = append(sources, next)

	r, _ := NewReader(ReaderConfig{Scheme: SchemeXORParity, N: n, M: m, Upstream: &fifoReader{pkts: sources}})

	got := drainAll(r)
	assert.Len(t, got, 2, "expected only the 2 arrived source packets from the broken block")
}
