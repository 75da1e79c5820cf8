// Package resample implements arbitrary, dynamically adjustable sample
// rate conversion via a windowed-sinc interpolator with fixed-point
// phase accumulators, spec.md §4.8.
//
// Grounded on the teacher's fixed-width media buffer handling in
// pkg/media/pcmlocaltrack.go (ring of frame buffers feeding a writer at
// a fixed cadence) and on pkg/samplebuilder for jitter-buffer-like
// windowed accumulation; the Q8.24 phase-accumulator arithmetic and taps
// table follow the description carried over unchanged from
// original_source/ (SPEC_FULL.md §C.3).
package resample

import (
	"math"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
)

const fracBits = 24
const fracOne = int64(1) << fracBits

// Profile selects a preset window size / interpolation table trade-off
// between CPU cost and quality (SPEC_FULL.md §C.3).
type Profile int

const (
	ProfileLow Profile = iota
	ProfileMedium
	ProfileHigh
)

// windowSize (taps per side) and interpolation table resolution per
// profile, carried over from the original implementation.
func (p Profile) params() (windowSize, interp int) {
	switch p {
	case ProfileHigh:
		return 64, 512
	case ProfileMedium:
		return 32, 256
	default:
		return 16, 128
	}
}

const cutoff = 0.9

// table holds a precomputed windowed-sinc lookup; NewCore builds a fresh
// one for each Core.
type table struct {
	windowSize int
	interp     int
	values     []float64 // (windowSize*interp + 1) entries
}

func buildTable(windowSize, interp int) *table {
	n := windowSize*interp + 1
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(interp)
		values[i] = sinc(math.Pi*t/float64(windowSize)) * hann(t/float64(windowSize)) * cutoff
	}
	return &table{windowSize: windowSize, interp: interp, values: values}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}

// hann evaluates the Hann window for u in [0,1] half-width units; tapers
// to zero at u=1 (the window's far edge) and peaks at u=0.
func hann(u float64) float64 {
	if u < -1 || u > 1 {
		return 0
	}
	return 0.5 + 0.5*math.Cos(math.Pi*u)
}

func (t *table) lookup(tapOffset int, frac int64) float64 {
	// tapOffset in [-windowSize, windowSize]; frac in [0, fracOne).
	pos := float64(tapOffset) + float64(frac)/float64(fracOne)
	if pos < 0 {
		pos = -pos
	}
	idx := pos * float64(t.interp)
	i0 := int(idx)
	if i0 >= len(t.values)-1 {
		return 0
	}
	f := idx - float64(i0)
	return t.values[i0]*(1-f) + t.values[i0+1]*f
}

// Core is the shared windowed-sinc state machine used by both the
// reader and writer forms.
type Core struct {
	spec    audio.SampleSpec
	tbl     *table
	chans   int
	framesz int // samples per channel per window frame

	prev, curr, next []audio.Sample // each framesz*chans, interleaved

	qtSample int64 // Q8.24, offset into curr, in input-sample units
	qtDT     int64 // Q8.24, step per output sample
}

// NewCore builds a Core for the given profile and channel layout.
// framesPerWindow is the size (samples per channel) of each of the
// three ring buffers; it should be at least the reader/writer's normal
// frame length.
func NewCore(profile Profile, spec audio.SampleSpec, framesPerWindow int) *Core {
	ws, interp := profile.params()
	return &Core{
		spec:    spec,
		tbl:     buildTable(ws, interp),
		chans:   spec.NumChannels(),
		framesz: framesPerWindow,
		prev:    make([]audio.Sample, framesPerWindow*spec.NumChannels()),
		curr:    make([]audio.Sample, framesPerWindow*spec.NumChannels()),
		next:    make([]audio.Sample, framesPerWindow*spec.NumChannels()),
		qtDT:    fracOne,
	}
}

// errScalingOutOfRange is returned by SetScaling when the requested
// factor would make the effective window wider than window_size.
type errScalingOutOfRange struct{ scaling float64 }

func (e errScalingOutOfRange) Error() string {
	return "resample: scaling factor out of supported range"
}

// SetScaling updates the output/input rate ratio. scaling > 1 means the
// resampler produces output faster than it consumes input (upsampling from
// the reader's perspective feeding a slower consumer); the convention
// here matches spec.md §4.8: qt_dt = 1/scaling in Q8.24.
func (c *Core) SetScaling(scaling float64) error {
	if scaling <= 0 {
		return errScalingOutOfRange{scaling}
	}
	// Extreme downsampling widens the effective kernel span beyond
	// window_size taps; reject it rather than silently truncating.
	if scaling < 1.0/4 || scaling > 4 {
		return errScalingOutOfRange{scaling}
	}
	c.qtDT = int64(float64(fracOne) / scaling)
	return nil
}

// rotate slides the three-frame ring forward by one window and resets
// qtSample relative to the new curr.
func (c *Core) rotate(freshNext []audio.Sample) {
	copy(c.prev, c.curr)
	copy(c.curr, c.next)
	copy(c.next, freshNext)
	c.qtSample -= int64(c.framesz) << fracBits
}

// sampleAt resolves channel ch's value at a signed input-sample index
// relative to curr, reading across prev/curr/next as needed.
func (c *Core) sampleAt(idx int, ch int) float64 {
	switch {
	case idx < 0:
		i := idx + c.framesz
		if i < 0 || i >= c.framesz {
			return 0
		}
		return float64(c.prev[i*c.chans+ch])
	case idx < c.framesz:
		return float64(c.curr[idx*c.chans+ch])
	default:
		i := idx - c.framesz
		if i >= c.framesz {
			return 0
		}
		return float64(c.next[i*c.chans+ch])
	}
}

// Step produces one interleaved output frame (one sample per channel)
// and advances qt_sample by qt_dt. needsMore is true when the read
// pointer has moved past curr and the caller must rotate in a fresh
// input frame via rotate() before calling Step again.
func (c *Core) Step(out []audio.Sample) (needsMore bool) {
	whole := int(c.qtSample >> fracBits)
	frac := c.qtSample & (fracOne - 1)
	ws := c.tbl.windowSize

	for ch := 0; ch < c.chans; ch++ {
		var acc float64
		for tap := -ws; tap <= ws; tap++ {
			weight := c.tbl.lookup(tap, frac)
			if weight == 0 {
				continue
			}
			acc += c.sampleAt(whole+tap, ch) * weight
		}
		out[ch] = audio.Sample(acc)
	}

	c.qtSample += c.qtDT
	return int(c.qtSample>>fracBits) >= c.framesz
}
