// Package mixer implements the frame-summing combiner of spec.md §4.11.
//
// Grounded on the teacher's pkg/media track-fan-in shape (a slice of
// upstream sources pulled in sequence into a shared scratch buffer), but
// summing rather than writing each to its own destination.
package mixer

import (
	"github.com/soapdogg/roc-toolkit/pkg/audio"
)

// Handle identifies a reader previously added to a Mixer, for later
// removal. Readers are not compared by value (some, like
// audio.ReaderFunc, are not comparable) so AddReader hands back an
// opaque handle instead.
type Handle int

type slot struct {
	handle Handle
	reader audio.Reader
}

// Mixer holds an ordered set of upstream frame readers and sums their
// output into a single frame on each Read.
type Mixer struct {
	slots   []slot
	nextID  Handle
	scratch audio.Frame
}

// New creates an empty Mixer.
func New() *Mixer {
	return &Mixer{}
}

// AddReader appends an upstream reader to the mix. Order is significant
// only for determinism in tests; the sum is commutative.
func (m *Mixer) AddReader(r audio.Reader) Handle {
	m.nextID++
	h := m.nextID
	m.slots = append(m.slots, slot{handle: h, reader: r})
	return h
}

// RemoveReader removes a previously added reader by its handle, if
// still present.
func (m *Mixer) RemoveReader(h Handle) {
	for i, s := range m.slots {
		if s.handle == h {
			m.slots = append(m.slots[:i], m.slots[i+1:]...)
			return
		}
	}
}

// ReadFrame implements audio.Reader: zeroes the output buffer, then for
// each upstream reader pulls an equally-sized frame into a scratch
// buffer and adds it in. No saturation is performed; callers are
// expected to keep the number of concurrent sessions low enough that
// clipping stays improbable. HasGap on the output is the OR over all
// inputs that contributed.
func (m *Mixer) ReadFrame(f *audio.Frame) error {
	f.Zero()

	if len(m.scratch.Samples) != len(f.Samples) {
		m.scratch.Samples = make([]audio.Sample, len(f.Samples))
	}
	m.scratch.Spec = f.Spec

	for _, s := range m.slots {
		m.scratch.Flags = 0
		if err := s.reader.ReadFrame(&m.scratch); err != nil {
			return err
		}
		for i, s := range m.scratch.Samples {
			f.Samples[i] += s
		}
		f.Flags |= m.scratch.Flags & audio.FlagHasGap
	}
	return nil
}
