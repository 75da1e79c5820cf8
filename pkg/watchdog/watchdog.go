// Package watchdog implements the per-session liveness monitor, spec.md
// §4.10, extended with the original implementation's partial-gap
// weighting (SPEC_FULL.md §C.2).
//
// Grounded on the per-stream state-tracking shape common to
// pkg/interceptor's nackgenerator.go/rttinteceptor.go (small ring/sliding
// window of recent observations, timers measured against wall time).
package watchdog

import (
	"time"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
)

// Config configures a Watchdog. A zero duration disables the
// corresponding check, per spec.md §4.10.
type Config struct {
	NoPlaybackTimeout     time.Duration
	BrokenPlaybackTimeout time.Duration
	FrameStatusWindow     int
	BrokenRatioThreshold  float64
	// PartialGapWeight is the weight a frame with FlagHasGap-but-not-
	// FlagIsFilled contributes to the broken ratio, vs 1.0 for a fully
	// filled frame. Default (zero value treated as) 0.5, per the
	// original implementation (SPEC_FULL.md §C.2).
	PartialGapWeight float64

	Now func() time.Time // overridable for tests
}

// Watchdog tracks per-session frame-level health via a sliding window of
// recent frame statuses.
type Watchdog struct {
	cfg Config
	now func() time.Time

	window []float64 // broken-weight per recent frame, ring buffer
	pos    int
	filled int

	lastNormal        time.Time
	brokenSince        time.Time
	brokenActive       bool
	terminateRequested bool

	started bool
}

// New creates a Watchdog.
func New(cfg Config) *Watchdog {
	if cfg.PartialGapWeight == 0 {
		cfg.PartialGapWeight = 0.5
	}
	if cfg.FrameStatusWindow <= 0 {
		cfg.FrameStatusWindow = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Watchdog{cfg: cfg, now: cfg.Now, window: make([]float64, cfg.FrameStatusWindow)}
}

// RequestTermination marks the session for explicit teardown, honored on
// the next Update call.
func (w *Watchdog) RequestTermination() {
	w.terminateRequested = true
}

// Update records the status of the most recently produced frame and
// reports whether the session remains healthy. A false return means the
// session must be torn down.
func (w *Watchdog) Update(f *audio.Frame) bool {
	now := w.now()
	if !w.started {
		w.started = true
		w.lastNormal = now
	}

	if w.terminateRequested {
		return false
	}

	weight := 0.0
	switch {
	case f.IsFilled():
		weight = 1.0
	case f.HasGap():
		weight = w.cfg.PartialGapWeight
	default:
		w.lastNormal = now
	}
	w.pushWindow(weight)

	if w.cfg.NoPlaybackTimeout > 0 && weight == 0 {
		w.lastNormal = now
	}
	if w.cfg.NoPlaybackTimeout > 0 && now.Sub(w.lastNormal) > w.cfg.NoPlaybackTimeout {
		return false
	}

	if w.cfg.BrokenPlaybackTimeout > 0 {
		ratio := w.brokenRatio()
		if ratio > w.cfg.BrokenRatioThreshold {
			if !w.brokenActive {
				w.brokenActive = true
				w.brokenSince = now
			}
			if now.Sub(w.brokenSince) > w.cfg.BrokenPlaybackTimeout {
				return false
			}
		} else {
			w.brokenActive = false
		}
	}

	return true
}

func (w *Watchdog) pushWindow(weight float64) {
	w.window[w.pos] = weight
	w.pos = (w.pos + 1) % len(w.window)
	if w.filled < len(w.window) {
		w.filled++
	}
}

func (w *Watchdog) brokenRatio() float64 {
	if w.filled == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.filled; i++ {
		sum += w.window[i]
	}
	return sum / float64(w.filled)
}
