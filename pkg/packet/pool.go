package packet

import (
	"sync"

	"go.uber.org/atomic"
)

// Pool is a reference-counted, fixed-size packet allocator. A packet is
// freed back to the pool when its last reference is released (Release
// once its refcount reaches zero). Grounded on the jitter buffer's explicit
// free-list pool (pkg/jitter/packet.go) rather than a bare sync.Pool,
// because we need refcounting across queues/decoders/FEC blocks, not
// just single-owner reuse.
type Pool struct {
	bufSize int

	mu   sync.Mutex
	free []*Packet

	// exhausted counts allocations that missed the free list and had to
	// allocate fresh; exposed for tests/diagnostics, not load-bearing.
	exhausted atomic.Uint64
}

// NewPool creates a pool that pre-allocates n packets, each with a
// buffer of bufSize bytes.
func NewPool(n, bufSize int) *Pool {
	p := &Pool{bufSize: bufSize}
	p.free = make([]*Packet, 0, n)
	for i := 0; i < n; i++ {
		p.free = append(p.free, &Packet{Buffer: make([]byte, bufSize), pool: p})
	}
	return p
}

// Get returns a packet from the pool, resetting its fields. If the free
// list is empty it falls back to a fresh allocation (never returns nil)
// and bumps ExhaustedCount, so a caller can surface repeated exhaustion
// as the §7 kind-3 transient chain diagnostic without ever needing a
// nil check on the hot path.
func (p *Pool) Get() *Packet {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		p.exhausted.Inc()
		buf := make([]byte, p.bufSize)
		return &Packet{Buffer: buf, pool: p, refs: 1}
	}
	pk := p.free[n-1]
	p.free = p.free[:n-1]
	p.mu.Unlock()

	pk.Flags = 0
	pk.UDP = UDPAttrs{}
	pk.RTP = RTPAttrs{}
	pk.FEC = FECAttrs{}
	pk.Buffer = pk.Buffer[:cap(pk.Buffer)]
	pk.refs = 1
	return pk
}

// Retain increments the packet's refcount. Call once per additional
// owner (a queue, a FEC block slot, a decoder) beyond the one implied by
// Get/Clone.
func (p *Packet) Retain() {
	p.refs++
}

// Release decrements the packet's refcount and returns it to its pool
// once the count reaches zero. Releasing a packet with no pool (e.g.
// constructed directly by a test) is a no-op beyond the refcount.
func (p *Packet) Release() {
	p.refs--
	if p.refs > 0 {
		return
	}
	if p.pool == nil {
		return
	}
	pool := p.pool
	pool.mu.Lock()
	pool.free = append(pool.free, p)
	pool.mu.Unlock()
}

// ExhaustedCount reports how many Get calls missed the free list.
func (p *Pool) ExhaustedCount() uint64 {
	return p.exhausted.Load()
}
