package validate

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

func mkPacket(ssrc uint32, sn uint16, ts uint32) *packet.Packet {
	return &packet.Packet{RTP: packet.RTPAttrs{Header: rtp.Header{SSRC: ssrc, SequenceNumber: sn, Timestamp: ts}}}
}

func TestValidatorAcceptsSmallJump(t *testing.T) {
	v := New(Config{MaxSNJump: 100, MaxTSJump: 100000})
	assert.True(t, v.Validate(mkPacket(1, 0, 0)), "expected first packet to be admitted")
	assert.True(t, v.Validate(mkPacket(1, 5, 200)), "expected small jump to be admitted")
	assert.False(t, v.Broken(), "validator should not be broken after small jump")
}

func TestValidatorRejectsLargeSeqJump(t *testing.T) {
	v := New(Config{MaxSNJump: 50, MaxTSJump: 1000000})
	v.Validate(mkPacket(1, 0, 0))
	assert.False(t, v.Validate(mkPacket(1, 1000, 40)), "expected large jump to be rejected")
	assert.True(t, v.Broken(), "validator should be broken after rejection")
	// subsequent packets, even normal ones, are rejected too.
	assert.False(t, v.Validate(mkPacket(1, 1001, 80)), "expected validator to stay broken")
}

func TestValidatorRejectsSourceChange(t *testing.T) {
	v := New(Config{MaxSNJump: 100, MaxTSJump: 1000000})
	v.Validate(mkPacket(1, 0, 0))
	assert.False(t, v.Validate(mkPacket(2, 1, 40)), "expected source-id change to be rejected")
}
