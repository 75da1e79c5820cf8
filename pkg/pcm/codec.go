// Package pcm implements the L16 (signed big-endian 16-bit) frame codec,
// spec.md §4.2/§6: a begin/write/end encoder pairs with a single decode
// call, and channel remapping drops/zero-fills channels when the wire
// mask differs from the frame's mask.
//
// Grounded on harperreed-resonate-go's pkg/audio/encode/pcm.go and
// pkg/audio/decode/pcm.go for the sample<->byte conversion shape
// (generalized from their single-shot little-endian Encode/Decode to the
// begin/write/end streaming contract spec.md §4.2 requires, and from
// little-endian to the network-order big-endian L16 format the RTP
// profile specifies in spec.md §6).
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
)

const bytesPerSample = 2

// EncodedSize returns the payload byte size for samplesPerChannel
// samples on each of the spec's channels.
func EncodedSize(spec audio.SampleSpec, samplesPerChannel uint32) int {
	return int(samplesPerChannel) * spec.NumChannels() * bytesPerSample
}

// Encoder implements the spec.md §4.2 begin/write/end contract: Begin
// must precede any Write, and End must follow the last Write before the
// buffer is considered complete. Calling Write without an active Begin,
// or Begin twice without an intervening End, is a programmer error
// (§7 kind 5) and panics.
type Encoder struct {
	wireSpec audio.SampleSpec
	buf      []byte
	pos      int
	active   bool
}

// NewEncoder creates an encoder that packs samples into the given wire
// channel mask/rate.
func NewEncoder(wireSpec audio.SampleSpec) *Encoder {
	return &Encoder{wireSpec: wireSpec}
}

// Begin starts encoding into buf. buf must be at least EncodedSize bytes
// for the number of samples that will be written.
func (e *Encoder) Begin(buf []byte) {
	if e.active {
		panic("pcm: Begin called while already encoding (missing End)")
	}
	e.buf = buf
	e.pos = 0
	e.active = true
}

// Write encodes n frames worth of interleaved samples from src, which
// must be laid out per srcSpec's channel mask. Channels present in
// srcSpec but absent from the wire mask are dropped; channels present in
// the wire mask but absent from srcSpec are filled with zero.
func (e *Encoder) Write(srcSpec audio.SampleSpec, src []audio.Sample, framesPerChannel uint32) {
	if !e.active {
		panic("pcm: Write called without an active Begin")
	}
	srcChans := srcSpec.NumChannels()
	wireChans := e.wireSpec.NumChannels()
	if srcChans == 0 || wireChans == 0 {
		panic("pcm: zero-channel spec")
	}
	if uint32(len(src)) < framesPerChannel*uint32(srcChans) {
		panic("pcm: source buffer shorter than declared frame count")
	}

	for frame := uint32(0); frame < framesPerChannel; frame++ {
		srcBase := int(frame) * srcChans
		srcCh := 0
		for wireCh := 0; wireCh < 32; wireCh++ {
			if !e.wireSpec.ChannelMask.Has(wireCh) {
				if srcSpec.ChannelMask.Has(wireCh) {
					srcCh++
				}
				continue
			}
			var s audio.Sample
			if srcSpec.ChannelMask.Has(wireCh) {
				s = src[srcBase+srcCh]
				srcCh++
			}
			putSample(e.buf[e.pos:], s)
			e.pos += bytesPerSample
		}
	}
}

// End finalizes encoding, padding any remaining buffer space with
// silence (so a short final packet still occupies its full payload
// size, per spec.md §4.1's flush() contract). It returns nothing;
// callers needing "actual samples" track that themselves via
// framesPerChannel passed to Write; End just closes the begin/write
// pairing.
func (e *Encoder) End() {
	if !e.active {
		panic("pcm: End called without an active Begin")
	}
	for e.pos < len(e.buf) {
		e.buf[e.pos] = 0
		e.pos++
	}
	e.active = false
}

func putSample(dst []byte, s audio.Sample) {
	v := s
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	i16 := int16(math.Round(float64(v) * math.MaxInt16))
	binary.BigEndian.PutUint16(dst, uint16(i16))
}

func getSample(src []byte) audio.Sample {
	i16 := int16(binary.BigEndian.Uint16(src))
	return audio.Sample(i16) / math.MaxInt16
}

// Decode unpacks a wire-format payload (encoded at wireSpec) directly
// into dst, which must be laid out per dstSpec's channel mask, applying
// the same drop/zero-fill remap as Encoder.Write in reverse.
func Decode(wireSpec, dstSpec audio.SampleSpec, payload []byte, dst []audio.Sample, framesPerChannel uint32) error {
	wireChans := wireSpec.NumChannels()
	need := int(framesPerChannel) * wireChans * bytesPerSample
	if len(payload) < need {
		return fmt.Errorf("pcm: payload too short: have %d bytes, need %d", len(payload), need)
	}
	dstChans := dstSpec.NumChannels()

	pos := 0
	for frame := uint32(0); frame < framesPerChannel; frame++ {
		dstBase := int(frame) * dstChans
		dstCh := 0
		for wireCh := 0; wireCh < 32; wireCh++ {
			if !wireSpec.ChannelMask.Has(wireCh) {
				if dstSpec.ChannelMask.Has(wireCh) {
					dst[dstBase+dstCh] = 0
					dstCh++
				}
				continue
			}
			s := getSample(payload[pos:])
			pos += bytesPerSample
			if dstSpec.ChannelMask.Has(wireCh) {
				dst[dstBase+dstCh] = s
				dstCh++
			}
		}
	}
	return nil
}
