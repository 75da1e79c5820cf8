// Package sender implements sender orchestration, spec.md §4.13: it
// assembles the frame-writer chain in dependency order and exposes a
// single write(frame) entry point, optionally paced by an internal
// clock.
//
// Grounded on the teacher's pkg/media local-track chain assembly
// (construct encoder → packetizer → RTP sender in order at Subscribe
// time, then drive it from one Write call per outgoing frame).
package sender

import (
	"time"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
	"github.com/soapdogg/roc-toolkit/pkg/fec"
	"github.com/soapdogg/roc-toolkit/pkg/interleave"
	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/packetize"
	"github.com/soapdogg/roc-toolkit/pkg/poison"
	"github.com/soapdogg/roc-toolkit/pkg/resample"
	"github.com/soapdogg/roc-toolkit/pkg/router"
)

// Config configures a Sender's chain. Downstream is the final packet
// writer (the transport); the rest of the chain is assembled around it
// in the order packet writer ← router ← [interleaver] ← [FEC writer] ←
// packetizer ← [resampler writer] ← [poisoner], per spec.md §4.13.
type Config struct {
	Spec             audio.SampleSpec
	SamplesPerPacket uint32
	PayloadType      uint8
	Pool             *packet.Pool
	Downstream       packet.Writer

	EnableFEC   bool
	FECScheme   packet.FECScheme
	FECN, FECM  int

	EnableInterleave bool

	EnableResample  bool
	ResampleProfile resample.Profile
	ResampleWindow  int
	ResampleChunk   int

	Debug bool // wrap the chain head in a poisoner stage

	// ClockInterval, if non-zero, makes write(frame) block the ticker to
	// the next sample slot before pushing downstream.
	ClockInterval time.Duration
}

// Sender owns the assembled frame-writer chain and the sender-side
// playout timestamp.
type Sender struct {
	cfg     Config
	router  *router.Router
	head    audio.Writer
	playout uint64

	lastTick time.Time
}

// New assembles a Sender's chain per Config.
func New(cfg Config) (*Sender, error) {
	s := &Sender{cfg: cfg}

	s.router = router.New()
	s.router.AddRoute(cfg.Downstream, packet.FlagAudio)
	if cfg.EnableFEC {
		s.router.AddRoute(cfg.Downstream, packet.FlagRepair)
	}

	var pktWriter packet.Writer = s.router
	if cfg.EnableInterleave && cfg.EnableFEC {
		// the interleaver's point is decorrelating FEC-block loss from
		// network-burst loss; without FEC there is no block to protect.
		pktWriter = interleave.New(cfg.FECN+cfg.FECM, pktWriter)
	}
	if cfg.EnableFEC {
		w, err := fec.NewWriter(fec.WriterConfig{Scheme: cfg.FECScheme, N: cfg.FECN, M: cfg.FECM, Downstream: pktWriter, Pool: cfg.Pool})
		if err != nil {
			return nil, err
		}
		pktWriter = w
	}

	pk := packetize.New(packetize.Config{
		Spec:             cfg.Spec,
		SamplesPerPacket: cfg.SamplesPerPacket,
		PayloadType:      cfg.PayloadType,
		Pool:             cfg.Pool,
		Downstream:       pktWriter,
	})

	var head audio.Writer = audio.WriterFunc(func(f *audio.Frame) error {
		return pk.WriteFrame(f)
	})
	if cfg.EnableResample {
		head = resample.NewWriter(cfg.ResampleProfile, cfg.Spec, cfg.ResampleWindow, cfg.ResampleChunk, head)
	}
	if cfg.Debug {
		head = poison.NewWriter(head)
	}
	s.head = head

	return s, nil
}

// WriteFrame implements audio.Writer: if an internal clock is
// configured, blocks the ticker to the next sample slot, then pushes
// the frame through the chain and advances the sender's playout
// timestamp.
func (s *Sender) WriteFrame(f *audio.Frame) error {
	if s.cfg.ClockInterval > 0 {
		s.waitTick()
	}
	if err := s.head.WriteFrame(f); err != nil {
		return err
	}
	s.playout += uint64(f.SamplesPerChannel())
	return nil
}

func (s *Sender) waitTick() {
	now := time.Now()
	if s.lastTick.IsZero() {
		s.lastTick = now
		return
	}
	next := s.lastTick.Add(s.cfg.ClockInterval)
	if d := next.Sub(now); d > 0 {
		time.Sleep(d)
	}
	s.lastTick = next
}
