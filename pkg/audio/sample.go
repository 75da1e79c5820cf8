// Package audio defines the sample, frame, and sample-spec types shared
// by every stage of the streaming pipeline.
package audio

import "math/bits"

// Sample is a single interleaved PCM sample, normalized to [-1.0, 1.0].
type Sample float32

// ChannelMask enumerates the channels present in a frame or sample spec.
// Bit i set means channel i is present; NumChannels is the popcount.
type ChannelMask uint32

const (
	ChannelMono  ChannelMask = 1 << 0
	ChannelLeft  ChannelMask = 1 << 0
	ChannelRight ChannelMask = 1 << 1
	ChannelStereo            = ChannelLeft | ChannelRight
)

// NumChannels returns the number of channels present in the mask.
func (m ChannelMask) NumChannels() int {
	return bits.OnesCount32(uint32(m))
}

// Has reports whether channel index ch (0-based, LSB first) is present.
func (m ChannelMask) Has(ch int) bool {
	return m&(1<<uint(ch)) != 0
}

// SampleSpec pairs a sample rate with a channel mask. It is immutable
// once constructed and shared by value across a chain segment.
type SampleSpec struct {
	SampleRate  uint32
	ChannelMask ChannelMask
}

// NumChannels is a convenience accessor.
func (s SampleSpec) NumChannels() int {
	return s.ChannelMask.NumChannels()
}

// SamplesPerChannel converts a duration in nanoseconds to a per-channel
// sample count at this spec's rate, rounding down.
func (s SampleSpec) SamplesPerChannel(durationNs uint64) uint32 {
	return uint32(durationNs * uint64(s.SampleRate) / 1e9)
}

// NsPerSample converts a per-channel sample count to a duration in
// nanoseconds at this spec's rate.
func (s SampleSpec) NsPerSample(samplesPerChannel uint32) uint64 {
	if s.SampleRate == 0 {
		return 0
	}
	return uint64(samplesPerChannel) * 1e9 / uint64(s.SampleRate)
}
