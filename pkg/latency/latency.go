// Package latency implements the PID-like backlog controller described
// in spec.md §4.9: it watches queue depth and silence-insertion, and
// drives the resampler's scaling factor to hold the buffer near a
// target depth.
//
// Grounded on pkg/interceptor's bandwidth-estimation/pacer control loops
// (periodic sample → bounded correction → push to a downstream
// actuator), adapted from bitrate control to latency control.
package latency

import "time"

// Config configures a Monitor.
type Config struct {
	TargetLatency uint32 // samples
	MinLatency    uint32
	MaxLatency    uint32
	K             float64 // controller gain
	FailureWindow time.Duration

	Now func() time.Time
}

// Sample is one update's worth of measurements, per spec.md §4.9.
type Sample struct {
	QueueDepth      uint32
	CodecInFlight   uint32
	SilenceGenerated uint32
}

// Monitor drives scaling toward TargetLatency from repeated Update
// calls.
type Monitor struct {
	cfg Config
	now func() time.Time

	outOfBoundsSince time.Time
	outOfBounds      bool
}

// New creates a Monitor.
func New(cfg Config) *Monitor {
	if cfg.K == 0 {
		cfg.K = 1.0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Monitor{cfg: cfg, now: cfg.Now}
}

// ActualLatency computes the current actual_latency measurement from a
// Sample, per spec.md §4.9.
func ActualLatency(s Sample) int64 {
	return int64(s.QueueDepth) + int64(s.CodecInFlight) - int64(s.SilenceGenerated)
}

// Update consumes one measurement and returns the new scaling factor to
// push to the resampler, or ok=false if the failure window has elapsed
// while out of bounds (the caller must tear the session down).
func (m *Monitor) Update(s Sample) (scaling float64, ok bool) {
	actual := ActualLatency(s)
	now := m.now()

	inBounds := actual >= int64(m.cfg.MinLatency) && actual <= int64(m.cfg.MaxLatency)
	if !inBounds {
		if !m.outOfBounds {
			m.outOfBounds = true
			m.outOfBoundsSince = now
		}
		if m.cfg.FailureWindow > 0 && now.Sub(m.outOfBoundsSince) > m.cfg.FailureWindow {
			return 1.0, false
		}
	} else {
		m.outOfBounds = false
	}

	target := float64(m.cfg.TargetLatency)
	if target == 0 {
		return 1.0, true
	}
	scaling = 1 + m.cfg.K*(target-float64(actual))/target
	scaling = clamp(scaling, 1.0/4, 4)
	return scaling, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
