// Package timing defines simulated time and the schedule queue that orders
// executors by the time they next want to act.
package timing

import (
	"math"
	"strconv"
)

// VTimeInSec defines the time in the simulated space in the unit of second.
type VTimeInSec = float64

// Infinity is the request time of something that never fires on its own.
var Infinity = VTimeInSec(math.Inf(1))

// Epsilon is the tolerance used when comparing two points in simulated time.
const Epsilon = 1e-9

// IsInfinite tells if a time is unbounded.
func IsInfinite(t VTimeInSec) bool {
	return math.IsInf(t, 1)
}

// Equal compares two times within Epsilon. Two infinite times are equal.
func Equal(a, b VTimeInSec) bool {
	if IsInfinite(a) || IsInfinite(b) {
		return IsInfinite(a) && IsInfinite(b)
	}

	return math.Abs(a-b) <= Epsilon
}

// Before tells if a happens strictly before b, beyond the tolerance.
func Before(a, b VTimeInSec) bool {
	return a < b && !Equal(a, b)
}

// Min returns the earlier of two times.
func Min(a, b VTimeInSec) VTimeInSec {
	if a < b {
		return a
	}

	return b
}

// OnGrid tells if t is a multiple of resolution, counting from start.
func OnGrid(t, start, resolution VTimeInSec) bool {
	if IsInfinite(t) || resolution <= 0 {
		return true
	}

	steps := (t - start) / resolution

	return math.Abs(steps-math.Round(steps))*resolution <= Epsilon
}

// FormatTime renders a time as text. Unlike JSON numbers, the text form can
// carry Infinity.
func FormatTime(t VTimeInSec) string {
	return strconv.FormatFloat(t, 'g', -1, 64)
}

// ParseTime reads a time written by FormatTime.
func ParseTime(s string) (VTimeInSec, error) {
	return strconv.ParseFloat(s, 64)
}

// A TimeTeller can tell the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}
