// Package interleave implements the optional packet interleaver of
// spec.md §4.14: it holds a fixed-size permutation buffer so that a
// burst of network loss does not take out many packets from the same
// FEC block.
//
// Grounded on pkg/samplebuilder's fixed-capacity reorder buffer
// (packets land in a slot derived from their position and are later
// drained in a different order than they arrived), adapted from
// sequence-number-keyed reordering to position-keyed permutation.
package interleave

import (
	"github.com/soapdogg/roc-toolkit/pkg/packet"
)

// permutation is a fixed, deterministic permutation of [0, size), applied
// identically to every buffer-full, so the emission order is stable and
// reproducible. For an even size no position maps to itself (a
// power-of-two size is fully reversed); for an odd size the last
// position stays in place.
func permutation(size int) []int {
	perm := make([]int, size)
	for i := range perm {
		perm[i] = i
	}
	// A simple fixed, deterministic shuffle: reverse in blocks of
	// increasing stride. Good enough to decorrelate adjacent positions
	// without pulling in a PRNG dependency for what is a static table.
	for stride := 2; stride <= size; stride *= 2 {
		for start := 0; start+stride <= size; start += stride {
			half := stride / 2
			for i := 0; i < half; i++ {
				perm[start+i], perm[start+half+i] = perm[start+half+i], perm[start+i]
			}
		}
	}
	return perm
}

// Writer buffers exactly Size packets, then emits them downstream in
// permuted order.
type Writer struct {
	downstream packet.Writer
	size       int
	perm       []int
	buf        []*packet.Packet
	pos        int
}

// New creates an interleaving Writer with a permutation buffer of
// length size (normally N+M, the FEC block length).
func New(size int, downstream packet.Writer) *Writer {
	return &Writer{
		downstream: downstream,
		size:       size,
		perm:       permutation(size),
		buf:        make([]*packet.Packet, size),
	}
}

// WritePacket implements packet.Writer.
func (w *Writer) WritePacket(pkt *packet.Packet) error {
	w.buf[w.pos] = pkt
	w.pos++
	if w.pos < w.size {
		return nil
	}
	for _, idx := range w.perm {
		if err := w.downstream.WritePacket(w.buf[idx]); err != nil {
			return err
		}
		w.buf[idx] = nil
	}
	w.pos = 0
	return nil
}

// Flush emits any partially filled buffer in arrival order, for chain
// teardown.
func (w *Writer) Flush() error {
	for i := 0; i < w.pos; i++ {
		if err := w.downstream.WritePacket(w.buf[i]); err != nil {
			return err
		}
		w.buf[i] = nil
	}
	w.pos = 0
	return nil
}
