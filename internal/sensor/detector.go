package sensor

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// DefaultAccelThreshold is the acceleration magnitude, in m/s², above which a
// sample counts as a step.
const DefaultAccelThreshold = 12.0

// Detector converts readings of one Kind into step deltas.
type Detector interface {
	// Detect returns the number of new steps the reading represents.
	Detect(r Reading) int
	// Reset forgets all state so the next reading starts a new run.
	Reset()
}

// CounterDetector derives deltas from a cumulative hardware counter. The
// first reading of a run only captures the baseline, which holds across
// pauses until Reset.
type CounterDetector struct {
	baseline float64
	lastRaw  float64
	seeded   bool
}

// Detect implements Detector. Zero and negative deltas are dropped without
// moving lastRaw, so a counter that glitches backwards cannot double count.
func (d *CounterDetector) Detect(r Reading) int {
	raw := r.Values[0]
	if !d.seeded {
		d.baseline, d.lastRaw, d.seeded = raw, raw, true
		return 0
	}
	delta := raw - d.lastRaw
	if delta <= 0 {
		return 0
	}
	d.lastRaw = raw
	return int(math.Round(delta))
}

// Reset implements Detector.
func (d *CounterDetector) Reset() { *d = CounterDetector{} }

// Baseline returns the raw counter captured at the first reading of the run.
func (d *CounterDetector) Baseline() (float64, bool) {
	return d.baseline, d.seeded
}

// ThresholdDetector emits one step for every accelerometer sample whose
// magnitude exceeds Threshold. It is a coarse heuristic: a single stride
// typically produces several samples above the threshold. MinInterval, when
// positive, suppresses samples that arrive too soon after the last step.
type ThresholdDetector struct {
	Threshold   float64
	MinInterval time.Duration

	lastStep time.Time
}

// Magnitude returns the Euclidean norm of an acceleration vector.
func Magnitude(v [3]float64) float64 {
	return floats.Norm(v[:], 2)
}

// Detect implements Detector.
func (d *ThresholdDetector) Detect(r Reading) int {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultAccelThreshold
	}
	if Magnitude(r.Values) <= threshold {
		return 0
	}
	if d.MinInterval > 0 && !d.lastStep.IsZero() && r.Time.Sub(d.lastStep) < d.MinInterval {
		return 0
	}
	d.lastStep = r.Time
	return 1
}

// Reset implements Detector.
func (d *ThresholdDetector) Reset() { d.lastStep = time.Time{} }
