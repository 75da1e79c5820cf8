// Package session implements the per-source receiver state described in
// spec.md §3 and §4.12: the chain of validator, FEC reader, decoder,
// depacketizer, watchdog, resampler, and latency monitor that exists
// once per UDP source address.
//
// Grounded on pkg/media/pcmlocaltrack.go for owning a small fixed set of
// substages behind one update/read entry point, generalized here from a
// single local track to a processing chain per network source.
package session

import (
	"net"
	"time"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
	"github.com/soapdogg/roc-toolkit/pkg/delay"
	"github.com/soapdogg/roc-toolkit/pkg/fec"
	"github.com/soapdogg/roc-toolkit/pkg/latency"
	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/packetize"
	"github.com/soapdogg/roc-toolkit/pkg/queue"
	"github.com/soapdogg/roc-toolkit/pkg/resample"
	"github.com/soapdogg/roc-toolkit/pkg/validate"
	"github.com/soapdogg/roc-toolkit/pkg/watchdog"
)

// Config holds the per-session construction parameters, derived from
// the admitting packet's payload type and FEC flags (spec.md §4.12
// step 3).
type Config struct {
	SourceAddr net.Addr
	Spec       audio.SampleSpec

	QueueCapacity int
	DelaySamples  uint32

	Validator validate.Config

	FECScheme packet.FECScheme // empty disables FEC
	FECN, FECM int

	Watchdog watchdog.Config
	Latency  latency.Config

	ResampleProfile resample.Profile
	ResampleWindow  int
	EnableResample  bool

	Beep bool
}

// Session owns one source's full receive-side chain: sorted queue →
// delayed reader → validator → FEC reader → depacketizer → [resampler]
// → watchdog/latency bookkeeping. It implements audio.Reader so a Mixer
// can pull directly from it.
type Session struct {
	cfg Config

	sourceQueue *queue.SortedQueue
	delayed     *delay.Reader
	validator   *validate.Validator
	fecReader   *fec.Reader
	depkt       *packetize.Depacketizer
	resampler   *resample.Reader
	watchdog    *watchdog.Watchdog
	latencyMon  *latency.Monitor

	reader audio.Reader // depkt, or resampler wrapping it

	failed bool
}

// New constructs a Session chain per Config.
func New(cfg Config) (*Session, error) {
	s := &Session{cfg: cfg}

	s.sourceQueue = queue.New(queue.OrderBySequenceNumber, cfg.QueueCapacity)

	s.validator = validate.New(cfg.Validator)
	s.delayed = delay.New(s.sourceQueue, cfg.DelaySamples)

	sourceForFEC := packet.ReaderFunc(func() (*packet.Packet, error) {
		pkt, err := s.delayed.ReadPacket()
		if err != nil || pkt == nil {
			return nil, err
		}
		if s.validator.Broken() || !s.validator.Validate(pkt) {
			return nil, nil
		}
		return pkt, nil
	})

	var pktReader packet.Reader = sourceForFEC
	if cfg.FECScheme != "" {
		r, err := fec.NewReader(fec.ReaderConfig{Scheme: cfg.FECScheme, N: cfg.FECN, M: cfg.FECM, Upstream: sourceForFEC})
		if err != nil {
			return nil, err
		}
		s.fecReader = r
		pktReader = r
	}

	s.depkt = packetize.New(packetize.Config{Spec: cfg.Spec, Upstream: pktReader, Beep: cfg.Beep})
	s.reader = s.depkt

	if cfg.EnableResample {
		s.resampler = resample.NewReader(cfg.ResampleProfile, cfg.Spec, cfg.ResampleWindow, s.depkt)
		s.reader = s.resampler
	}

	s.watchdog = watchdog.New(cfg.Watchdog)
	s.latencyMon = latency.New(cfg.Latency)

	return s, nil
}

// WritePacket admits a source packet into the session's queue. Non-FEC
// packets and FEC source packets both land here; repair packets go to
// WriteRepairPacket instead.
func (s *Session) WritePacket(pkt *packet.Packet) error {
	if evicted := s.sourceQueue.Push(pkt); evicted != nil {
		evicted.Release()
	}
	return nil
}

// WriteRepairPacket admits a FEC repair packet, if this session uses
// FEC.
func (s *Session) WriteRepairPacket(pkt *packet.Packet) error {
	if s.fecReader == nil {
		pkt.Release()
		return nil
	}
	return s.fecReader.WriteRepair(pkt)
}

// Update advances the session's health bookkeeping for the current
// playout tick. It returns false once the session must be torn down
// (spec.md §4.12 step 4).
func (s *Session) Update(now time.Time) bool {
	if s.failed {
		return false
	}
	scaling, ok := s.latencyMon.Update(latency.Sample{
		QueueDepth:       s.sourceQueue.DurationSamples(),
		SilenceGenerated: uint32(s.depkt.DeficitSamples()),
	})
	if !ok {
		s.failed = true
		return false
	}
	if s.resampler != nil {
		s.resampler.SetScaling(scaling)
	}
	return true
}

// ReadFrame implements audio.Reader, delegating to the tail of the
// chain (resampler if enabled, else the depacketizer directly), and
// feeding the result back into the watchdog.
func (s *Session) ReadFrame(f *audio.Frame) error {
	if err := s.reader.ReadFrame(f); err != nil {
		return err
	}
	if !s.watchdog.Update(f) {
		s.failed = true
	}
	return nil
}

// Failed reports whether the session's watchdog or latency monitor has
// condemned it for removal.
func (s *Session) Failed() bool {
	return s.failed
}
