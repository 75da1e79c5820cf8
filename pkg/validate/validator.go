// Package validate implements the RTP validator, spec.md §4.6: once a
// packet is rejected, the validator is permanently broken and rejects
// everything after, forcing the enclosing session to be torn down.
//
// Grounded on the teacher's jitter buffer drop conditions (before/
// outsideRange in pkg/jitter/buffer.go) and the per-stream last-seen
// state pattern in pkg/interceptor/nackgenerator.go.
package validate

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/seq"
)

// Config configures a Validator.
//
// There is no sample-rate field here: the packet model (pkg/packet)
// carries no wire sample-rate attribute to compare against — RTP itself
// conveys rate only implicitly via the negotiated payload type, which is
// out of scope per spec.md §1. A declared-rate mismatch check would have
// nothing on the wire to check against, so it is not implemented.
type Config struct {
	MaxSNJump uint32
	MaxTSJump uint64 // in samples
	Logger    logr.Logger
}

// Validator rejects packets that violate seqnum/timestamp/source-id
// bounds relative to the last accepted packet; the sample rate is not
// checked (see Config). Grounded on spec.md §4.6: rejection is fatal —
// Broken() becomes permanently true.
type Validator struct {
	cfg Config
	log logr.Logger

	initialized bool
	broken      bool

	lastSeq  uint16
	lastTS   uint32
	sourceID uint32
}

// New creates a Validator. Without an injected Logger, rejections are
// logged through a stdr.Logger rather than discarded, since a validator
// tripping is the signal that its session is about to be torn down.
func New(cfg Config) *Validator {
	v := &Validator{cfg: cfg, log: cfg.Logger}
	if v.log.GetSink() == nil {
		v.log = stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	}
	return v
}

// Broken reports whether a prior rejection has permanently disabled this
// validator.
func (v *Validator) Broken() bool {
	return v.broken
}

// Validate reports whether pkt should be admitted. Once it returns
// false, every subsequent call also returns false (§4.6: "subsequent
// packets are rejected until the session is torn down").
func (v *Validator) Validate(pkt *packet.Packet) bool {
	if v.broken {
		return false
	}

	if !v.initialized {
		v.initialized = true
		v.lastSeq = pkt.SequenceNumber()
		v.lastTS = pkt.Timestamp()
		v.sourceID = pkt.RTP.Header.SSRC
		return true
	}

	if pkt.RTP.Header.SSRC != v.sourceID {
		v.reject(pkt, "source-id changed")
		return false
	}
	if seq.AbsDiffU16(pkt.SequenceNumber(), v.lastSeq) > v.cfg.MaxSNJump {
		v.reject(pkt, "sequence number jump exceeds bound")
		return false
	}
	if v.cfg.MaxTSJump > 0 && seq.AbsDiffU32(pkt.Timestamp(), v.lastTS) > uint64(v.cfg.MaxTSJump) {
		v.reject(pkt, "timestamp jump exceeds bound")
		return false
	}

	v.lastSeq = pkt.SequenceNumber()
	v.lastTS = pkt.Timestamp()
	return true
}

func (v *Validator) reject(pkt *packet.Packet, reason string) {
	v.broken = true
	v.log.Error(nil, "rtp validator rejected packet, session will be torn down",
		"reason", reason,
		"seq", pkt.SequenceNumber(),
		"ts", pkt.Timestamp())
}
