// Package delay implements the delayed reader, spec.md §4.5: it buffers
// packets until accumulated payload duration reaches a configured delay,
// giving the receiver an initial latency cushion against jitter.
//
// Grounded on the teacher's jitter.Buffer "accumulate until enough depth"
// posture, generalized from partition-completeness to raw queued
// duration.
package delay

import (
	"github.com/soapdogg/roc-toolkit/pkg/packet"
	"github.com/soapdogg/roc-toolkit/pkg/queue"
)

// Reader wraps a SortedQueue, withholding packets until DelaySamples
// worth of payload duration has accumulated.
type Reader struct {
	q            *queue.SortedQueue
	delaySamples uint32
	warmed       bool
}

// New creates a delayed reader over q, with delay expressed in samples
// (converted from nanoseconds by the caller via SampleSpec.SamplesPerChannel).
func New(q *queue.SortedQueue, delaySamples uint32) *Reader {
	return &Reader{q: q, delaySamples: delaySamples}
}

// Warmed reports whether the initial latency cushion has been reached.
func (r *Reader) Warmed() bool {
	return r.warmed
}

// ReadPacket implements packet.Reader: returns the next packet in queue
// order, or (nil, nil) — "no packet" — while still warming up or when
// the queue is empty.
func (r *Reader) ReadPacket() (*packet.Packet, error) {
	if !r.warmed {
		if r.q.DurationSamples() < r.delaySamples {
			return nil, nil
		}
		r.warmed = true
	}
	return r.q.Pop(), nil
}
