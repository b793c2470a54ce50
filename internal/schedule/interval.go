// Package schedule holds the interval arithmetic shared by trainer session
// booking and equipment reservations. All intervals are half-open [start, end):
// two intervals that only touch at an endpoint do not conflict.
package schedule

import "time"

// MinutesPerDay bounds same-day minute intervals.
const MinutesPerDay = 24 * 60

// Interval is a wall-clock time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// MinuteInterval is a same-day range in minutes since midnight.
type MinuteInterval struct {
	Start int
	End   int
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// OverlapsMinutes is Overlaps for minutes-since-midnight intervals.
func OverlapsMinutes(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// HasConflict reports whether the candidate overlaps any existing interval.
func HasConflict(candidate Interval, existing []Interval) bool {
	for _, iv := range existing {
		if Overlaps(candidate.Start, candidate.End, iv.Start, iv.End) {
			return true
		}
	}
	return false
}

// HasConflictMinutes is HasConflict for minute intervals.
func HasConflictMinutes(candidate MinuteInterval, existing []MinuteInterval) bool {
	for _, iv := range existing {
		if OverlapsMinutes(candidate.Start, candidate.End, iv.Start, iv.End) {
			return true
		}
	}
	return false
}

// CountOverlapping returns how many existing intervals overlap the candidate.
// Callers using it as a capacity check get a conservative answer: the count of
// reservations touching the window anywhere, not the peak concurrency inside
// it. It never under-counts, so capacity is never over-allocated.
func CountOverlapping(candidate Interval, existing []Interval) int {
	n := 0
	for _, iv := range existing {
		if Overlaps(candidate.Start, candidate.End, iv.Start, iv.End) {
			n++
		}
	}
	return n
}
