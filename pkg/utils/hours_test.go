package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundHours(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{2.25, 2.25},
		{2.2549, 2.25},
		{2.256, 2.26},
		{0.004, 0.0},
		{0.005, 0.01},
		{3.0, 3.0},
		{0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundHours(tc.in), "RoundHours(%v)", tc.in)
	}
}

func TestHoursBetween(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 2.25, HoursBetween(base, base.Add(2*time.Hour+15*time.Minute)))
	assert.Equal(t, 2.5, HoursBetween(base, base.Add(2*time.Hour+30*time.Minute)))
	assert.Equal(t, 0.0, HoursBetween(base, base))
	assert.Equal(t, 0.02, HoursBetween(base, base.Add(1*time.Minute)))
}
