package fec

import (
	"github.com/gammazero/deque"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

// ReaderConfig configures a Reader.
type ReaderConfig struct {
	Scheme   packet.FECScheme
	N, M     int
	Upstream packet.Reader // validated source stream
	Pool     *packet.Pool
}

// Reader reconstructs the source stream from a validated source packet
// stream plus an unvalidated repair-packet feed (pushed via WriteRepair,
// typically wired from a router route). See spec.md §4.7 for the full
// block-tracking contract.
//
// Grounded on lars-sto-interceptor/pkg/flexfec's per-stream block
// accumulation (encoder_interceptor.go), mirrored on the decode side and
// generalized to roc's explicit block-number/index footer instead of
// FlexFEC's RTP-header-derived coverage.
type Reader struct {
	cfg   ReaderConfig
	codec Codec

	active      bool
	blockNo     uint16
	sourceSlots []*packet.Packet
	repairSlots []*packet.Packet

	lastPayloadID uint32
	havePayloadID bool

	pending deque.Deque[*packet.Packet]
}

// NewReader creates a Reader for the given scheme.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	factory := Lookup(cfg.Scheme)
	if factory == nil {
		return nil, unknownSchemeError{string(cfg.Scheme)}
	}
	return &Reader{
		cfg:         cfg,
		codec:       factory(cfg.N, cfg.M),
		sourceSlots: make([]*packet.Packet, cfg.N),
		repairSlots: make([]*packet.Packet, cfg.M),
	}, nil
}

// WriteRepair implements packet.Writer for the repair-packet route.
func (r *Reader) WriteRepair(pkt *packet.Packet) error {
	r.ingest(pkt)
	return nil
}

// ReadPacket implements packet.Reader: pulls validated source packets
// until either a packet becomes ready to yield (block completed or
// rolled over) or the upstream has nothing more to offer right now.
func (r *Reader) ReadPacket() (*packet.Packet, error) {
	for {
		if r.pending.Len() > 0 {
			return r.pending.PopFront(), nil
		}
		pkt, err := r.cfg.Upstream.ReadPacket()
		if err != nil {
			return nil, err
		}
		if pkt == nil {
			return nil, nil
		}
		r.ingest(pkt)
	}
}

func (r *Reader) ingest(pkt *packet.Packet) {
	// Repair packets arrive on their own route, interleaved arbitrarily
	// with the source stream, so only source packets feed the payload-ID
	// continuity check.
	restart := false
	if !pkt.IsRepair() {
		restart = r.havePayloadID && payloadIDRegressed(pkt.FEC.PayloadID, r.lastPayloadID)
		r.lastPayloadID = pkt.FEC.PayloadID
		r.havePayloadID = true
	}

	if !r.active {
		r.startBlock(pkt.FEC.BlockNumber)
	} else if restart || pkt.FEC.BlockNumber != r.blockNo {
		r.finalizeBlock()
		r.startBlock(pkt.FEC.BlockNumber)
	}

	idx := int(pkt.FEC.PacketIndex)
	if pkt.IsRepair() {
		ri := idx - r.cfg.N
		if ri >= 0 && ri < len(r.repairSlots) {
			r.repairSlots[ri] = pkt
		}
	} else {
		if idx >= 0 && idx < len(r.sourceSlots) {
			r.sourceSlots[idx] = pkt
		}
	}

	if r.blockComplete() {
		r.finalizeBlock()
		r.active = false
	}
}

func payloadIDRegressed(cur, last uint32) bool {
	const tolerance = 1 << 20
	return last-cur > 0 && last-cur < tolerance
}

func (r *Reader) startBlock(blockNo uint16) {
	r.active = true
	r.blockNo = blockNo
	for i := range r.sourceSlots {
		r.sourceSlots[i] = nil
	}
	for i := range r.repairSlots {
		r.repairSlots[i] = nil
	}
}

func (r *Reader) blockComplete() bool {
	for _, s := range r.sourceSlots {
		if s == nil {
			return false
		}
	}
	return true
}

// finalizeBlock attempts to fill missing source slots via the codec,
// yields the resulting (possibly partial) set of source packets in
// ascending index order, and releases repair packets — they are never
// yielded downstream.
func (r *Reader) finalizeBlock() {
	missing := 0
	for _, s := range r.sourceSlots {
		if s == nil {
			missing++
		}
	}

	if missing > 0 {
		sourcePayloads := make([][]byte, len(r.sourceSlots))
		payloadLen := 0
		for i, s := range r.sourceSlots {
			if s != nil {
				sourcePayloads[i] = s.RTP.Payload
				payloadLen = len(s.RTP.Payload)
			}
		}
		repairPayloads := make([][]byte, len(r.repairSlots))
		for i, rp := range r.repairSlots {
			if rp != nil {
				repairPayloads[i] = rp.RTP.Payload
			}
		}
		recovered := r.codec.Decoder.Decode(sourcePayloads, repairPayloads, payloadLen)
		if recovered != nil {
			for i, payload := range recovered {
				if r.sourceSlots[i] != nil || payload == nil {
					continue
				}
				r.sourceSlots[i] = r.wrapRestored(payload, i)
			}
		}
	}

	for _, s := range r.sourceSlots {
		if s != nil {
			r.pending.PushBack(s)
		}
	}
	for _, rp := range r.repairSlots {
		if rp != nil {
			rp.Release()
		}
	}
}

// neighborSlot returns any present source slot in the current block along
// with its index, preferring the nearest one to index so the derived
// sequence number/timestamp delta stays small. There is always at least
// one present slot when this is called: finalizeBlock only asks the codec
// to recover missing slots once it has observed missing > 0 and the codec
// itself requires at least N-M present packets to do so.
func (r *Reader) neighborSlot(index int) (*packet.Packet, int) {
	for dist := 1; dist < len(r.sourceSlots); dist++ {
		if j := index - dist; j >= 0 && r.sourceSlots[j] != nil {
			return r.sourceSlots[j], j
		}
		if j := index + dist; j < len(r.sourceSlots) && r.sourceSlots[j] != nil {
			return r.sourceSlots[j], j
		}
	}
	return nil, 0
}

func (r *Reader) wrapRestored(payload []byte, index int) *packet.Packet {
	var pk *packet.Packet
	if r.cfg.Pool != nil {
		pk = r.cfg.Pool.Get()
	}
	if pk == nil {
		pk = &packet.Packet{}
	}
	if len(pk.Buffer) < len(payload) {
		pk.Buffer = make([]byte, len(payload))
	}
	copy(pk.Buffer, payload)
	pk.RTP.Payload = pk.Buffer[:len(payload)]
	pk.Flags = packet.FlagAudio | packet.FlagRTP | packet.FlagFEC | packet.FlagRestored

	if neighbor, nIdx := r.neighborSlot(index); neighbor != nil {
		pk.RTP.Duration = neighbor.RTP.Duration
		pk.RTP.Header.SSRC = neighbor.RTP.Header.SSRC
		pk.RTP.Header.PayloadType = neighbor.RTP.Header.PayloadType
		delta := index - nIdx
		pk.RTP.Header.SequenceNumber = uint16(int(neighbor.RTP.Header.SequenceNumber) + delta)
		pk.RTP.Header.Timestamp = uint32(int64(neighbor.RTP.Header.Timestamp) + int64(delta)*int64(neighbor.RTP.Duration))
	}

	pk.FEC = packet.FECAttrs{
		Scheme:            r.cfg.Scheme,
		BlockNumber:       r.blockNo,
		PacketIndex:       uint16(index),
		SourceBlockLength: uint16(r.cfg.N),
		RepairBlockLength: uint16(r.cfg.M),
	}
	return pk
}
