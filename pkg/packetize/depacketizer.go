package packetize

import (
	"math"

	"go.uber.org/atomic"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/pcm"
	"github.com/soapdogg/roc-toolkit/pkg/seq"
)

// Depacketizer pulls packets one at a time from an upstream packet
// reader, decoding them into caller-supplied frame buffers while
// tracking a monotonic playout timestamp. See spec.md §4.3 for the full
// contract (gap-filling, stale-packet drop, partial decode across frame
// boundaries, optional beep mode).
//
// The same type also implements the Packetizer role (WriteFrame/Flush,
// see packetizer.go): Config.Downstream selects the packetizer role,
// Config.Upstream selects this depacketizer role.
type Depacketizer struct {
	spec       audio.SampleSpec
	upstream   packet.Reader

	playout    uint32
	started    bool
	cur        *packet.Packet
	curPos     uint32 // samples-per-channel already consumed from cur

	beep       bool
	beepPhase  float64

	deficit    uint64 // cumulative silence samples generated, for the latency monitor

	// Packetizer-role fields; see packetizer.go.
	samplesPerPacket uint32
	payloadType      uint8
	pool             *packet.Pool
	downstream       packet.Writer

	sourceID  uint32
	seq       atomic.Uint32 // stored as uint32, truncated to uint16 on use
	timestamp atomic.Uint32

	inProgress *packet.Packet
	position   uint32
	enc        *pcm.Encoder
}

// DeficitSamples returns the cumulative number of samples (per channel)
// that have been synthesized due to missing packets, consumed by the
// latency monitor's actual_latency computation (spec.md §4.9).
func (d *Depacketizer) DeficitSamples() uint64 {
	return d.deficit
}

// ReadFrame implements audio.Reader.
func (d *Depacketizer) ReadFrame(f *audio.Frame) error {
	f.Spec = d.spec
	need := f.SamplesPerChannel()
	chans := d.spec.NumChannels()
	f.Flags = 0

	var filled uint32
	for filled < need {
		if d.cur == nil {
			pkt, err := d.upstream.ReadPacket()
			if err != nil {
				return err
			}
			if pkt == nil {
				// no packet available: silence-fill the rest of this frame.
				d.fillSynthetic(f, filled, need-filled, chans)
				filled = need
				break
			}
			if !d.started {
				d.playout = pkt.Timestamp()
				d.started = true
			}
			if seq.LessU32(pkt.Timestamp(), d.playout) {
				// stale packet: predates current playout position, drop.
				pkt.Release()
				continue
			}
			d.cur = pkt
			d.curPos = 0
		}

		pktStart := d.cur.Timestamp()
		gapSamples := uint32(0)
		if seq.LessU32(d.playout, pktStart) {
			gapSamples = pktStart - d.playout
		}
		if gapSamples > 0 {
			take := gapSamples
			if take > need-filled {
				take = need - filled
			}
			d.fillSynthetic(f, filled, take, chans)
			filled += take
			d.playout += take
			if filled == need {
				break
			}
			continue
		}

		avail := d.cur.RTP.Duration - d.curPos
		take := avail
		if take > need-filled {
			take = need - filled
		}
		if take > 0 {
			dstStart := int(filled) * chans
			dst := f.Samples[dstStart : dstStart+int(take)*chans]
			wireSpec := audio.SampleSpec{SampleRate: d.spec.SampleRate, ChannelMask: d.spec.ChannelMask}
			byteOffset := pcm.EncodedSize(wireSpec, d.curPos)
			if err := pcm.Decode(wireSpec, d.spec, d.cur.RTP.Payload[byteOffset:], dst, take); err != nil {
				// corrupt/short payload: treat the remainder as a gap.
				d.fillSynthetic(f, filled, take, chans)
			}
			filled += take
			d.curPos += take
			d.playout += take
		}

		if d.curPos >= d.cur.RTP.Duration {
			d.cur.Release()
			d.cur = nil
		}
	}

	return nil
}

func (d *Depacketizer) fillSynthetic(f *audio.Frame, offsetFrames, countFrames uint32, chans int) {
	if countFrames == 0 {
		return
	}
	start := int(offsetFrames) * chans
	end := int(offsetFrames+countFrames) * chans
	if d.beep {
		const freq = 440.0
		step := freq * 2 * math.Pi / float64(d.spec.SampleRate)
		for i := start; i < end; i += chans {
			v := audio.Sample(0.1 * math.Sin(d.beepPhase))
			for c := 0; c < chans; c++ {
				f.Samples[i+c] = v
			}
			d.beepPhase += step
		}
	} else {
		for i := start; i < end; i++ {
			f.Samples[i] = 0
		}
	}
	f.Flags |= audio.FlagHasGap
	if countFrames == f.SamplesPerChannel() {
		f.Flags |= audio.FlagIsFilled
	}
	d.deficit += uint64(countFrames)
}
