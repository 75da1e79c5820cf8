package session

import (
	"net"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
	"github.com/soapdogg/roc-toolkit/pkg/latency"
	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/validate"
	"github.com/soapdogg/roc-toolkit/pkg/watchdog"
)

func mkAudioPacket(sn uint16, ts uint32, payload []byte) *packet.Packet {
	return &packet.Packet{
		Flags: packet.FlagAudio | packet.FlagRTP,
		RTP:   packet.RTPAttrs{Header: rtp.Header{SequenceNumber: sn, Timestamp: ts}, Payload: payload, Duration: uint32(len(payload) / 2)},
	}
}

func testConfig() Config {
	spec := audio.SampleSpec{SampleRate: 44100, ChannelMask: audio.ChannelMono}
	return Config{
		SourceAddr:    &net.UDPAddr{},
		Spec:          spec,
		QueueCapacity: 64,
		Validator:     validate.Config{MaxSNJump: 1000, MaxTSJump: 44100, Logger: logr.Discard()},
		Watchdog:      watchdog.Config{FrameStatusWindow: 8},
		Latency:       latency.Config{},
	}
}

func TestSessionDeliversAudioWithoutFEC(t *testing.T) {
	cfg := testConfig()
	s, err := New(cfg)
	require.NoError(t, err)

	payload := make([]byte, 20) // 10 samples big-endian
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, s.WritePacket(mkAudioPacket(0, 0, payload)))

	f := &audio.Frame{Spec: cfg.Spec, Samples: make([]audio.Sample, 10)}
	require.NoError(t, s.ReadFrame(f))
	assert.False(t, f.HasGap(), "expected no gap when the packet for this position is present")
}

func TestSessionUpdateFailsOnLatencyBreach(t *testing.T) {
	cfg := testConfig()
	cfg.Latency = latency.Config{TargetLatency: 1000, MinLatency: 900, MaxLatency: 1100, FailureWindow: time.Nanosecond}
	s, err := New(cfg)
	require.NoError(t, err)
	s.Update(time.Now())
	time.Sleep(2 * time.Millisecond)
	assert.False(t, s.Update(time.Now()), "expected session update to fail once latency leaves bounds past the failure window")
	assert.True(t, s.Failed(), "expected session to be marked failed")
}

func TestSessionRepairPacketWithoutFECIsDropped(t *testing.T) {
	cfg := testConfig()
	s, err := New(cfg)
	require.NoError(t, err)
	repair := &packet.Packet{Flags: packet.FlagFEC | packet.FlagRepair}
	assert.NoError(t, s.WriteRepairPacket(repair))
}
