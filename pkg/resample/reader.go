package resample

import (
	"github.com/soapdogg/roc-toolkit/pkg/audio"
)

// Reader is the frame-reader form: it pulls input frames from an
// upstream audio.Reader on demand as the window rotates, and produces
// output frames at the scaled rate.
type Reader struct {
	core     *Core
	upstream audio.Reader
	spec     audio.SampleSpec

	inBuf  audio.Frame
	fresh  []audio.Sample
}

// NewReader creates a resampling Reader. framesPerWindow sets the ring
// buffer size (samples per channel); it should match the frame size
// requested from upstream.
func NewReader(profile Profile, spec audio.SampleSpec, framesPerWindow int, upstream audio.Reader) *Reader {
	r := &Reader{
		core:     NewCore(profile, spec, framesPerWindow),
		upstream: upstream,
		spec:     spec,
	}
	r.inBuf.Spec = spec
	r.inBuf.Samples = make([]audio.Sample, framesPerWindow*spec.NumChannels())
	r.fresh = make([]audio.Sample, framesPerWindow*spec.NumChannels())
	// Prime curr/next so the first Step has real data rather than
	// silence on both sides.
	r.pullInto(r.core.curr)
	r.pullInto(r.core.next)
	return r
}

// SetScaling forwards to the underlying Core.
func (r *Reader) SetScaling(scaling float64) error { return r.core.SetScaling(scaling) }

func (r *Reader) pullInto(dst []audio.Sample) {
	r.inBuf.Flags = 0
	if err := r.upstream.ReadFrame(&r.inBuf); err != nil {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	n := copy(dst, r.inBuf.Samples)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// ReadFrame implements audio.Reader, producing samplesPerChannel(f)
// scaled output samples per channel.
func (r *Reader) ReadFrame(f *audio.Frame) error {
	chans := r.core.chans
	perChan := int(f.SamplesPerChannel())
	if len(f.Samples) < perChan*chans {
		f.Samples = make([]audio.Sample, perChan*chans)
	}
	f.Spec = r.spec
	f.Flags = 0

	out := make([]audio.Sample, chans)
	for i := 0; i < perChan; i++ {
		needsMore := r.core.Step(out)
		copy(f.Samples[i*chans:(i+1)*chans], out)
		if needsMore {
			r.pullInto(r.fresh)
			r.core.rotate(r.fresh)
		}
	}
	return nil
}
