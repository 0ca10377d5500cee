package location

// Default increment band in metres. Increments at or below the minimum are
// treated as GPS jitter, increments at or above the maximum as jumps.
const (
	DefaultMinIncrementM = 2.0
	DefaultMaxIncrementM = 100.0
)

// DefaultStrideM is the stride used for step-based distance.
const DefaultStrideM = 0.75

// Filter is the open interval of accepted increments.
type Filter struct {
	MinM float64
	MaxM float64
}

// DefaultFilter returns the (2 m, 100 m) band.
func DefaultFilter() Filter {
	return Filter{MinM: DefaultMinIncrementM, MaxM: DefaultMaxIncrementM}
}

// Accept reports whether an increment of m metres counts as movement.
func (f Filter) Accept(m float64) bool {
	return m > f.MinM && m < f.MaxM
}

// StepDistanceKm estimates distance from a step count.
func StepDistanceKm(steps int, strideM float64) float64 {
	if steps <= 0 || strideM <= 0 {
		return 0
	}
	return float64(steps) * strideM / 1000
}

// Accumulator sums accepted increments between consecutive fixes. It is not
// safe for concurrent use; the owner serialises access.
type Accumulator struct {
	filter Filter
	last   *Fix
	totalM float64
}

// NewAccumulator returns an empty accumulator using filter.
func NewAccumulator(filter Filter) *Accumulator {
	return &Accumulator{filter: filter}
}

// Add records f. With a previous fix present it computes the increment and
// reports whether it was accepted. The new fix always becomes the last fix.
func (a *Accumulator) Add(f Fix) (incrementM float64, accepted bool) {
	prev := a.last
	a.last = &f
	if prev == nil {
		return 0, false
	}
	d := Distance(*prev, f)
	if !a.filter.Accept(d) {
		return d, false
	}
	a.totalM += d
	return d, true
}

// LastFix returns the most recent fix, accepted or not.
func (a *Accumulator) LastFix() (Fix, bool) {
	if a.last == nil {
		return Fix{}, false
	}
	return *a.last, true
}

// TotalKm returns the sum of accepted increments in kilometres.
func (a *Accumulator) TotalKm() float64 { return a.totalM / 1000 }

// HasDistance reports whether any increment has been accepted.
func (a *Accumulator) HasDistance() bool { return a.totalM > 0 }

// Reset clears the last fix and the total.
func (a *Accumulator) Reset() {
	a.last = nil
	a.totalM = 0
}
