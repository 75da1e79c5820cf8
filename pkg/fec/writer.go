package fec

import (
	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

// WriterConfig configures a Writer.
type WriterConfig struct {
	Scheme     packet.FECScheme
	N, M       int // source block length, repair block length
	Downstream packet.Writer
	Pool       *packet.Pool
}

// Writer accumulates N source packets; after the Nth, runs the
// registered encoder over the block and emits M repair packets. Every
// source packet gets block metadata; repair packets carry block
// metadata and an empty RTP shell. Block numbers are monotonic modulo
// 16 bits. See spec.md §4.7.
type Writer struct {
	cfg     WriterConfig
	codec   Codec
	block   []*packet.Packet
	blockNo uint16
	payloadID uint32
}

// NewWriter creates a Writer for the given scheme. Returns an error
// (§7 kind 1, construction error) if the scheme is not registered.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	factory := Lookup(cfg.Scheme)
	if factory == nil {
		return nil, unknownSchemeError{string(cfg.Scheme)}
	}
	return &Writer{cfg: cfg, codec: factory(cfg.N, cfg.M), block: make([]*packet.Packet, 0, cfg.N)}, nil
}

// WritePacket implements packet.Writer.
func (w *Writer) WritePacket(pkt *packet.Packet) error {
	idx := len(w.block)
	pkt.Flags |= packet.FlagFEC
	pkt.FEC = packet.FECAttrs{
		Scheme:            w.cfg.Scheme,
		BlockNumber:       w.blockNo,
		PacketIndex:       uint16(idx),
		SourceBlockLength: uint16(w.cfg.N),
		RepairBlockLength: uint16(w.cfg.M),
		PayloadID:         w.payloadID,
	}
	w.payloadID++
	w.block = append(w.block, pkt)

	if err := w.cfg.Downstream.WritePacket(pkt); err != nil {
		return err
	}

	if len(w.block) == w.cfg.N {
		w.emitRepair()
		w.block = w.block[:0]
		w.blockNo++
	}
	return nil
}

func (w *Writer) emitRepair() {
	source := make([][]byte, len(w.block))
	for i, p := range w.block {
		source[i] = p.RTP.Payload
	}
	repairs := w.codec.Encoder.Encode(source, w.cfg.M)
	for i, payload := range repairs {
		var rp *packet.Packet
		if w.cfg.Pool != nil {
			rp = w.cfg.Pool.Get()
		}
		if rp == nil {
			rp = &packet.Packet{}
		}
		if len(rp.Buffer) < len(payload) {
			rp.Buffer = make([]byte, len(payload))
		}
		copy(rp.Buffer, payload)
		rp.RTP.Payload = rp.Buffer[:len(payload)]
		rp.Flags = packet.FlagFEC | packet.FlagRepair | packet.FlagComposed
		rp.FEC = packet.FECAttrs{
			Scheme:            w.cfg.Scheme,
			BlockNumber:       w.blockNo,
			PacketIndex:       uint16(w.cfg.N + i),
			SourceBlockLength: uint16(w.cfg.N),
			RepairBlockLength: uint16(w.cfg.M),
			PayloadID:         w.payloadID,
		}
		w.payloadID++
		w.cfg.Downstream.WritePacket(rp)
	}
}

type unknownSchemeError struct{ scheme string }

func (e unknownSchemeError) Error() string { return "fec: unknown scheme " + e.scheme }
