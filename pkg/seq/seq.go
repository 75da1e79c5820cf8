// Package seq implements wrap-aware comparisons for 16-bit sequence
// numbers and 32-bit timestamps, following the same signed-difference
// convention throughout: diff(a, b) is positive when a is "after" b.
//
// Grounded on the jitter buffer's before/outsideRange helpers in the
// teacher (pkg/jitter/buffer.go), generalized to both 16- and 32-bit
// widths and exposed as named comparisons instead of buffer-local ones.
package seq

// DiffU16 returns the signed wrap-aware difference a-b for 16-bit
// sequence numbers.
func DiffU16(a, b uint16) int32 {
	return int32(int16(a - b))
}

// LessU16 reports whether a precedes b in wrap-aware order.
func LessU16(a, b uint16) bool {
	return DiffU16(a, b) < 0
}

// DiffU32 returns the signed wrap-aware difference a-b for 32-bit
// timestamps.
func DiffU32(a, b uint32) int64 {
	return int64(int32(a - b))
}

// LessU32 reports whether a precedes b in wrap-aware order.
func LessU32(a, b uint32) bool {
	return DiffU32(a, b) < 0
}

// AbsDiffU16 returns the absolute value of DiffU16, as the magnitude of
// the jump between a and b regardless of direction.
func AbsDiffU16(a, b uint16) uint32 {
	d := DiffU16(a, b)
	if d < 0 {
		d = -d
	}
	return uint32(d)
}

// AbsDiffU32 returns the absolute value of DiffU32.
func AbsDiffU32(a, b uint32) uint64 {
	d := DiffU32(a, b)
	if d < 0 {
		d = -d
	}
	return uint64(d)
}

// OutsideRangeU16 reports whether a and b are far enough apart, in both
// directions, that wrap-around ambiguity can be ruled out — mirroring
// the teacher's outsideRange guard used to stop treating very old
// sequence numbers as "still pending."
func OutsideRangeU16(a, b uint16, threshold uint16) bool {
	return a-b > threshold && b-a > threshold
}
