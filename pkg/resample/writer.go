package resample

import (
	"github.com/soapdogg/roc-toolkit/pkg/audio"
)

// Writer is the frame-writer form: it accumulates input frames into the
// window and pushes resampled output frames to a downstream
// audio.Writer as soon as enough scaled output samples accumulate.
type Writer struct {
	core       *Core
	downstream audio.Writer
	spec       audio.SampleSpec

	outChunk int // samples per channel flushed to downstream at a time
	outBuf   audio.Frame
	outPos   int
}

// NewWriter creates a resampling Writer. outChunkFrames controls how
// many samples per channel are batched before flushing to downstream.
func NewWriter(profile Profile, spec audio.SampleSpec, framesPerWindow, outChunkFrames int, downstream audio.Writer) *Writer {
	w := &Writer{
		core:       NewCore(profile, spec, framesPerWindow),
		downstream: downstream,
		spec:       spec,
		outChunk:   outChunkFrames,
	}
	w.outBuf.Spec = spec
	w.outBuf.Samples = make([]audio.Sample, outChunkFrames*spec.NumChannels())
	return w
}

// SetScaling forwards to the underlying Core.
func (w *Writer) SetScaling(scaling float64) error { return w.core.SetScaling(scaling) }

// WriteFrame implements audio.Writer: feeds f into the window, rotating
// in exactly one input frame at a time (f must match the window's
// framesPerChannel), and flushes completed output chunks downstream.
func (w *Writer) WriteFrame(f *audio.Frame) error {
	chans := w.core.chans
	w.core.rotate(f.Samples)

	out := make([]audio.Sample, chans)
	for {
		needsMore := w.core.Step(out)
		copy(w.outBuf.Samples[w.outPos*chans:(w.outPos+1)*chans], out)
		w.outPos++
		if w.outPos == w.outChunk {
			if err := w.downstream.WriteFrame(&w.outBuf); err != nil {
				return err
			}
			w.outPos = 0
		}
		if needsMore {
			return nil
		}
	}
}
