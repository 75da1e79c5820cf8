// Package packetize implements the Packetizer (frame writer -> packet
// writer) and Depacketizer (packet reader -> frame reader), spec.md
// §4.1/§4.3.
//
// Grounded on the teacher's partition-tracking jitter buffer
// (pkg/jitter/buffer.go) for the "accumulate until a boundary, then
// hand off" shape, generalized from RTP-partition reassembly (many
// packets -> one sample) to audio packetization (one frame -> one or
// more fixed-duration packets, and the reverse).
package packetize

import (
	"math/rand"

	"github.com/pion/rtp"
	"go.uber.org/atomic"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/pcm"
)

// Packetizer is an alias for Depacketizer: both the frame-slicing
// (WriteFrame) and frame-assembling (ReadFrame) roles are implemented
// on the same type, selected at construction time by which of
// Config.Downstream/Config.Upstream is set.
type Packetizer = Depacketizer

// Config configures a Packetizer or a Depacketizer, depending on
// whether Downstream (packetizer role) or Upstream (depacketizer role)
// is set.
type Config struct {
	Spec             audio.SampleSpec
	SamplesPerPacket uint32
	PayloadType      uint8
	Pool             *packet.Pool
	Downstream       packet.Writer

	Upstream packet.Reader
	// Beep enables diagnostic tone generation instead of silence for gaps.
	Beep bool
}

// New creates a Packetizer/Depacketizer. Source-id, initial sequence
// number, and initial timestamp are chosen randomly, per spec.md §4.1.
func New(cfg Config) *Depacketizer {
	return &Depacketizer{
		spec:             cfg.Spec,
		samplesPerPacket: cfg.SamplesPerPacket,
		payloadType:      cfg.PayloadType,
		pool:             cfg.Pool,
		downstream:       cfg.Downstream,
		sourceID:         rand.Uint32(),
		seq:              *atomic.NewUint32(uint32(uint16(rand.Uint32()))),
		timestamp:        *atomic.NewUint32(rand.Uint32()),
		enc:              pcm.NewEncoder(cfg.Spec),

		upstream: cfg.Upstream,
		beep:     cfg.Beep,
	}
}

// WriteFrame implements audio.Writer: consumes the frame, filling the
// in-progress packet and emitting it (and any further full packets)
// downstream.
func (p *Depacketizer) WriteFrame(f *audio.Frame) error {
	chans := p.spec.NumChannels()
	total := f.SamplesPerChannel()
	var consumed uint32
	for consumed < total {
		if p.inProgress == nil {
			if err := p.beginPacket(); err != nil {
				return nil // pool exhaustion: §7 kind 3, drop remainder
			}
		}
		room := p.samplesPerPacket - p.position
		take := total - consumed
		if take > room {
			take = room
		}

		start := int(consumed) * chans
		end := int(consumed+take) * chans
		p.enc.Write(p.spec, f.Samples[start:end], take)
		p.position += take
		consumed += take

		if p.position == p.samplesPerPacket {
			p.finalize(p.samplesPerPacket)
		}
	}
	return nil
}

func (p *Depacketizer) beginPacket() error {
	var pkt *packet.Packet
	if p.pool != nil {
		pkt = p.pool.Get()
		if pkt == nil {
			return errPoolExhausted
		}
	} else {
		pkt = &packet.Packet{Buffer: make([]byte, pcm.EncodedSize(p.spec, p.samplesPerPacket))}
	}
	need := pcm.EncodedSize(p.spec, p.samplesPerPacket)
	if len(pkt.Buffer) < need {
		pkt.Buffer = make([]byte, need)
	}
	pkt.RTP.Payload = pkt.Buffer[:need]
	pkt.RTP.Header = rtp.Header{
		Version:        2,
		PayloadType:    p.payloadType,
		SequenceNumber: uint16(p.seq.Load()),
		Timestamp:      p.timestamp.Load(),
		SSRC:           p.sourceID,
	}
	pkt.Flags = packet.FlagRTP | packet.FlagAudio | packet.FlagComposed

	p.inProgress = pkt
	p.position = 0
	p.enc.Begin(pkt.RTP.Payload)
	return nil
}

// Flush finalizes a partially filled in-progress packet, padding its
// payload to full size but recording duration = actual samples written,
// per spec.md §4.1.
func (p *Depacketizer) Flush() {
	if p.inProgress == nil {
		return
	}
	p.finalize(p.position)
}

func (p *Depacketizer) finalize(duration uint32) {
	pkt := p.inProgress
	p.inProgress = nil
	p.enc.End()
	pkt.RTP.Duration = duration

	p.seq.Add(1)
	p.timestamp.Add(p.samplesPerPacket)

	p.downstream.WritePacket(pkt)
}

type poolExhaustedError struct{}

func (poolExhaustedError) Error() string { return "packetizer: packet pool exhausted" }

var errPoolExhausted = poolExhaustedError{}
