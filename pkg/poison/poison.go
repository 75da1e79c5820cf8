// Package poison implements the debug-only buffer poisoning stage
// mentioned in spec.md §7: a frame writer/reader wrapper that overwrites
// the underlying buffer with a sentinel pattern after a real stage has
// consumed or before it produces into it, to surface use-after-free or
// stale-read bugs quickly. It never participates in the error taxonomy;
// it only panics, since catching it silently would defeat its purpose.
//
// Grounded on the teacher's test-only instrumentation pattern in
// pkg/interceptor's mock interceptors, which wrap a real stage to
// observe/mutate traffic without changing its contract.
package poison

import (
	"github.com/soapdogg/roc-toolkit/pkg/audio"
)

// DefaultPattern is the sentinel value written into poisoned buffers.
const DefaultPattern audio.Sample = -999

// Writer wraps a downstream audio.Writer. After forwarding a frame, it
// overwrites the caller's buffer with Pattern, so that any code that
// wrongly keeps reading from a frame after writing it panics on
// nonsense data rather than silently reading stale samples.
type Writer struct {
	downstream audio.Writer
	Pattern    audio.Sample
}

// NewWriter creates a poisoning Writer with DefaultPattern.
func NewWriter(downstream audio.Writer) *Writer {
	return &Writer{downstream: downstream, Pattern: DefaultPattern}
}

// WriteFrame implements audio.Writer.
func (w *Writer) WriteFrame(f *audio.Frame) error {
	err := w.downstream.WriteFrame(f)
	for i := range f.Samples {
		f.Samples[i] = w.Pattern
	}
	return err
}

// Reader wraps an upstream audio.Reader. Before pulling a frame, it
// poisons the destination buffer, so a downstream consumer that reads
// beyond what the upstream actually filled sees sentinel values instead
// of leftover data from a previous frame.
type Reader struct {
	upstream audio.Reader
	Pattern  audio.Sample
}

// NewReader creates a poisoning Reader with DefaultPattern.
func NewReader(upstream audio.Reader) *Reader {
	return &Reader{upstream: upstream, Pattern: DefaultPattern}
}

// ReadFrame implements audio.Reader.
func (r *Reader) ReadFrame(f *audio.Frame) error {
	for i := range f.Samples {
		f.Samples[i] = r.Pattern
	}
	return r.upstream.ReadFrame(f)
}
