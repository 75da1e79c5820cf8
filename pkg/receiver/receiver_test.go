package receiver

import (
	"net"
	"testing"

	"github.com/go-logr/logr"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
	"github.com/soapdogg/roc-toolkit/pkg/latency"
	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/session"
	"github.com/soapdogg/roc-toolkit/pkg/validate"
	"github.com/soapdogg/roc-toolkit/pkg/watchdog"
)

func mkPacket(src net.Addr, sn uint16, payload []byte) *packet.Packet {
	return &packet.Packet{
		Flags: packet.FlagUDP | packet.FlagRTP | packet.FlagAudio,
		UDP:   packet.UDPAttrs{Src: src},
		RTP:   packet.RTPAttrs{Header: rtp.Header{SequenceNumber: sn}, Payload: payload, Duration: uint32(len(payload) / 2)},
	}
}

func testReceiver() *Receiver {
	spec := audio.SampleSpec{SampleRate: 44100, ChannelMask: audio.ChannelMono}
	cfg := Config{
		Spec: spec,
		SessionConfig: func(pkt *packet.Packet, proto Protocol) session.Config {
			return session.Config{
				Spec:          spec,
				QueueCapacity: 32,
				Validator:     validate.Config{MaxSNJump: 1000, MaxTSJump: 44100, Logger: logr.Discard()},
				Watchdog:      watchdog.Config{FrameStatusWindow: 8},
				Latency:       latency.Config{},
			}
		},
		Logger: logr.Discard(),
	}
	r := New(cfg)
	r.AddPort(Port{Protocol: ProtoRTP})
	return r
}

func TestReceiverCreatesSessionAndProducesFrame(t *testing.T) {
	r := testReceiver()
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4000}
	payload := make([]byte, 20)
	require.NoError(t, r.WritePacket(mkPacket(addr, 0, payload)))

	f := &audio.Frame{Samples: make([]audio.Sample, 10)}
	require.NoError(t, r.ReadFrame(f))
	assert.Len(t, r.sessions, 1, "expected exactly one session created")
}

func TestReceiverDropsRepairOnlyPacketWithNoSession(t *testing.T) {
	r := testReceiver()
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4001}
	repair := &packet.Packet{
		Flags: packet.FlagUDP | packet.FlagFEC | packet.FlagRepair,
		UDP:   packet.UDPAttrs{Src: addr},
	}
	require.NoError(t, r.WritePacket(repair))
	f := &audio.Frame{Samples: make([]audio.Sample, 10)}
	require.NoError(t, r.ReadFrame(f))
	assert.Empty(t, r.sessions, "expected no session created from a repair-only packet")
}

func TestReceiverDropsPacketWithNoMatchingPort(t *testing.T) {
	r := New(Config{Spec: audio.SampleSpec{SampleRate: 44100, ChannelMask: audio.ChannelMono}, Logger: logr.Discard()})
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4002}
	require.NoError(t, r.WritePacket(mkPacket(addr, 0, make([]byte, 4))))
	f := &audio.Frame{Samples: make([]audio.Sample, 10)}
	require.NoError(t, r.ReadFrame(f))
	assert.Empty(t, r.sessions, "expected no port to admit the packet, so no session")
}

func TestReceiverWaitActiveUnblocksOnWrite(t *testing.T) {
	r := testReceiver()
	done := make(chan struct{})
	go func() {
		r.WaitActive()
		close(done)
	}()
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4003}
	r.WritePacket(mkPacket(addr, 0, make([]byte, 4)))
	<-done
}
