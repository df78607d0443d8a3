package utils

import (
	"math"
	"time"
)

// RoundHours rounds an hour quantity to 2 decimal places (half away from zero
// on the scaled integer). Applied at every point hours are computed or summed.
func RoundHours(v float64) float64 {
	return math.Round(v*100) / 100
}

// HoursBetween returns the elapsed duration between two instants in hours,
// rounded to 2 decimal places.
func HoursBetween(from, to time.Time) float64 {
	return RoundHours(to.Sub(from).Hours())
}
