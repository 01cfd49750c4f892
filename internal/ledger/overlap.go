package ledger

import "time"

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// overlapMinutes is the length of the shared part of two intervals,
// clamped at zero.
func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) float64 {
	lo := aStart
	if bStart.After(lo) {
		lo = bStart
	}
	hi := aEnd
	if bEnd.Before(hi) {
		hi = bEnd
	}
	m := hi.Sub(lo).Minutes()
	if m < 0 {
		return 0
	}
	return m
}
