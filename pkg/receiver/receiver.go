// Package receiver implements receiver orchestration, spec.md §4.12:
// port/session lifecycle, a pending-packet queue fed from I/O threads,
// and the Inactive/Active state machine signaled to wait_active()
// callers.
//
// Grounded on the teacher's dual-lock, condition-variable-guarded
// lifecycle in pkg/media's local-participant bookkeeping (a control
// path mutating subscriber/track lists under one lock, a separate path
// doing the actual media pump), generalized to the spec's explicit
// pipeline-then-control lock order.
package receiver

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/google/uuid"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
	"github.com/soapdogg/roc-toolkit/pkg/mixer"
	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/session"
)

// State is the receiver's coarse activity state.
type State int

const (
	Inactive State = iota
	Active
)

// SessionConfigFunc derives a new session's Config from the admitting
// packet and the port protocol that accepted it (spec.md §4.12 step 3:
// "session sample-spec and FEC scheme derive from the packet's payload
// type and FEC flags").
type SessionConfigFunc func(pkt *packet.Packet, proto Protocol) session.Config

// Config configures a Receiver.
type Config struct {
	Spec          audio.SampleSpec
	SessionConfig SessionConfigFunc
	Logger        logr.Logger

	// ClockInterval, if non-zero, makes read(frame) block until the
	// internal ticker reaches the playout timestamp (spec.md §4.12
	// step 1), ticking once per ClockInterval.
	ClockInterval time.Duration
}

type sessionEntry struct {
	addr    string
	session *session.Session
	handle  mixer.Handle
	log     logr.Logger
}

// Receiver owns the ports list, pending-packet queue, sessions list,
// mixer, and timestamp counter for one receive pipeline.
type Receiver struct {
	cfg Config
	log logr.Logger

	// control mutex: ports, sessions, pending queue, state.
	controlMu sync.Mutex
	cond      *sync.Cond
	ports     []Port
	sessions  map[string]*sessionEntry
	pending   []*packet.Packet
	state     State

	// pipeline mutex: the audio processing chain itself.
	pipelineMu sync.Mutex
	mix        *mixer.Mixer
	playout    uint64

	lastTick time.Time
}

// New creates a Receiver. Without an injected Logger, diagnostics go
// through a stdr.Logger rather than logr.Discard(), so session creation
// failures and teardowns are visible by default.
func New(cfg Config) *Receiver {
	l := cfg.Logger
	if l.GetSink() == nil {
		l = stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	}
	r := &Receiver{
		cfg:      cfg,
		log:      l,
		sessions: make(map[string]*sessionEntry),
		mix:      mixer.New(),
	}
	r.cond = sync.NewCond(&r.controlMu)
	return r
}

// AddPort appends a port. Idempotency is not required (spec.md §4.12).
func (r *Receiver) AddPort(p Port) {
	r.controlMu.Lock()
	defer r.controlMu.Unlock()
	r.ports = append(r.ports, p)
}

// WritePacket is an O(1) enqueue under the control lock; it signals
// wait_active() waiters when the receiver transitions Inactive→Active.
func (r *Receiver) WritePacket(pkt *packet.Packet) error {
	r.controlMu.Lock()
	r.pending = append(r.pending, pkt)
	if r.state == Inactive {
		r.state = Active
		r.cond.Broadcast()
	}
	r.controlMu.Unlock()
	return nil
}

// WaitActive blocks until the receiver has at least one pending packet
// or session, i.e. until it transitions into Active.
func (r *Receiver) WaitActive() {
	r.controlMu.Lock()
	defer r.controlMu.Unlock()
	for r.state != Active {
		r.cond.Wait()
	}
}

// ReadFrame produces one frame: drains the pending-packet queue,
// routes each packet to a port/session, updates every session, asks the
// mixer to sum them, and advances the playout timestamp. Lock order is
// strictly pipeline-then-control, per spec.md §5.
func (r *Receiver) ReadFrame(f *audio.Frame) error {
	r.pipelineMu.Lock()
	defer r.pipelineMu.Unlock()

	if r.cfg.ClockInterval > 0 {
		r.waitTick()
	}

	r.drainPending()
	r.updateSessions(time.Now())

	f.Spec = r.cfg.Spec
	if err := r.mix.ReadFrame(f); err != nil {
		return err
	}
	r.playout += uint64(f.SamplesPerChannel())
	return nil
}

func (r *Receiver) waitTick() {
	now := time.Now()
	if r.lastTick.IsZero() {
		r.lastTick = now
		return
	}
	next := r.lastTick.Add(r.cfg.ClockInterval)
	if d := next.Sub(now); d > 0 {
		time.Sleep(d)
	}
	r.lastTick = next
}

func (r *Receiver) drainPending() {
	r.controlMu.Lock()
	batch := r.pending
	r.pending = nil
	ports := r.ports
	r.controlMu.Unlock()

	for _, pkt := range batch {
		proto, ok := r.matchPort(ports, pkt)
		if !ok {
			pkt.Release()
			continue
		}
		r.routeToSession(pkt, proto)
	}
}

func (r *Receiver) matchPort(ports []Port, pkt *packet.Packet) (Protocol, bool) {
	for _, p := range ports {
		if p.Protocol.Admits(pkt) {
			return p.Protocol, true
		}
	}
	return 0, false
}

func (r *Receiver) routeToSession(pkt *packet.Packet, proto Protocol) {
	addr := ""
	if pkt.UDP.Src != nil {
		addr = pkt.UDP.Src.String()
	}

	r.controlMu.Lock()
	entry, ok := r.sessions[addr]
	r.controlMu.Unlock()

	if !ok {
		if proto.IsRepairOnly() || pkt.IsRepair() || !pkt.Flags.Has(packet.FlagUDP) || !pkt.Flags.Has(packet.FlagRTP) {
			// spec.md §4.12 step 3: session creation requires a
			// UDP-and-RTP packet that is not a pure repair packet.
			pkt.Release()
			return
		}
		entry = r.createSession(addr, pkt, proto)
		if entry == nil {
			pkt.Release()
			return
		}
	}

	if proto.IsRepairOnly() || pkt.IsRepair() {
		entry.session.WriteRepairPacket(pkt)
		return
	}
	entry.session.WritePacket(pkt)
}

func (r *Receiver) createSession(addr string, pkt *packet.Packet, proto Protocol) *sessionEntry {
	if r.cfg.SessionConfig == nil {
		return nil
	}
	// A short random id disambiguates sessions from the same source
	// address across reconnects in the log stream, the same pattern the
	// teacher uses for room/track names (uuid.New().String()[:8]).
	sessLog := r.log.WithValues("session", uuid.New().String()[:8], "addr", addr)

	cfg := r.cfg.SessionConfig(pkt, proto)
	cfg.SourceAddr = pkt.UDP.Src
	s, err := session.New(cfg)
	if err != nil {
		sessLog.Error(err, "failed to create session")
		return nil
	}
	sessLog.Info("session created")
	entry := &sessionEntry{addr: addr, session: s, log: sessLog}
	entry.handle = r.mix.AddReader(s)

	r.controlMu.Lock()
	r.sessions[addr] = entry
	r.controlMu.Unlock()
	return entry
}

func (r *Receiver) updateSessions(now time.Time) {
	r.controlMu.Lock()
	entries := make([]*sessionEntry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.controlMu.Unlock()

	var failed []*sessionEntry
	for _, e := range entries {
		if !e.session.Update(now) {
			failed = append(failed, e)
		}
	}
	if len(failed) == 0 {
		return
	}

	r.controlMu.Lock()
	for _, e := range failed {
		e.log.Info("session torn down")
		r.mix.RemoveReader(e.handle)
		delete(r.sessions, e.addr)
	}
	if len(r.sessions) == 0 && len(r.pending) == 0 {
		r.state = Inactive
	}
	r.controlMu.Unlock()
}
