package location

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// north returns a fix m metres due north of f.
func north(f Fix, m float64) Fix {
	f.Lat += m / orb.EarthRadius * 180 / math.Pi
	return f
}

var origin = Fix{Lat: 18.85, Lon: -99.2}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 50.0, Distance(origin, north(origin, 50)), 1e-6)
	assert.Equal(t, 0.0, Distance(origin, origin))
}

func TestFilter_Accept(t *testing.T) {
	f := DefaultFilter()
	tests := []struct {
		m    float64
		want bool
	}{
		{0, false},
		{1.5, false},
		{2, false},
		{2.01, true},
		{50, true},
		{99.99, true},
		{100, false},
		{150, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Accept(tt.m), "increment %v", tt.m)
	}
}

func TestAccumulator_IncrementSequence(t *testing.T) {
	acc := NewAccumulator(DefaultFilter())

	fix := origin
	_, accepted := acc.Add(fix)
	assert.False(t, accepted, "first fix has nothing to compare against")

	var got []float64
	for _, m := range []float64{1.5, 6, 150, 3} {
		fix = north(fix, m)
		inc, ok := acc.Add(fix)
		if ok {
			got = append(got, math.Round(inc*1000)/1000)
		}
	}

	assert.Equal(t, []float64{6, 3}, got)
	assert.InDelta(t, 0.009, acc.TotalKm(), 1e-9)

	last, ok := acc.LastFix()
	require.True(t, ok)
	assert.Equal(t, fix, last, "last fix is replaced even when the increment is rejected")
}

func TestAccumulator_RejectedFixStillReplacesLast(t *testing.T) {
	acc := NewAccumulator(DefaultFilter())
	acc.Add(origin)

	jump := north(origin, 500)
	_, ok := acc.Add(jump)
	assert.False(t, ok)

	// 10 m from the jump point, not from the origin
	inc, ok := acc.Add(north(jump, 10))
	assert.True(t, ok)
	assert.InDelta(t, 10, inc, 1e-6)
	assert.InDelta(t, 0.01, acc.TotalKm(), 1e-9)
}

func TestAccumulator_NonDecreasing(t *testing.T) {
	acc := NewAccumulator(DefaultFilter())
	fix := origin
	acc.Add(fix)
	prev := acc.TotalKm()
	for _, m := range []float64{3, 0.5, 250, 40, 99, 2, 7} {
		fix = north(fix, m)
		acc.Add(fix)
		assert.GreaterOrEqual(t, acc.TotalKm(), prev)
		prev = acc.TotalKm()
	}
}

func TestAccumulator_HasDistanceAndReset(t *testing.T) {
	acc := NewAccumulator(DefaultFilter())
	acc.Add(origin)
	assert.False(t, acc.HasDistance(), "a single fix is not distance")
	acc.Add(north(origin, 1))
	assert.False(t, acc.HasDistance(), "jitter is not distance")
	acc.Add(north(origin, 6))
	assert.True(t, acc.HasDistance())

	acc.Reset()
	assert.False(t, acc.HasDistance())
	_, ok := acc.LastFix()
	assert.False(t, ok)
	assert.Equal(t, 0.0, acc.TotalKm())
}

func TestStepDistanceKm(t *testing.T) {
	assert.InDelta(t, 3.0, StepDistanceKm(4000, DefaultStrideM), 1e-12)
	assert.Equal(t, 0.0, StepDistanceKm(0, DefaultStrideM))
	assert.Equal(t, 0.0, StepDistanceKm(-5, DefaultStrideM))
	assert.Equal(t, 0.0, StepDistanceKm(100, 0))
}

func TestParsePriority(t *testing.T) {
	for p, name := range priorityNames {
		got, err := ParsePriority(name)
		require.NoError(t, err)
		assert.Equal(t, p, got)
		assert.Equal(t, name, p.String())
	}
	_, err := ParsePriority("warp")
	assert.Error(t, err)
}

func TestDefaultRequest(t *testing.T) {
	req := DefaultRequest()
	assert.Equal(t, PriorityHighAccuracy, req.Priority)
	assert.Equal(t, 5.0, req.MinDistanceM)
	assert.Equal(t, "5s", req.Interval.String())
	assert.Equal(t, "3s", req.MinInterval.String())
}
