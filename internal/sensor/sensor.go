// Package sensor turns raw step-counter or accelerometer readings into
// step-delta events. A Source probes the attached Hardware once, picks the
// hardware step counter when present and otherwise falls back to
// accelerometer thresholding.
package sensor

import (
	"errors"
	"time"
)

// Kind identifies a step-signal strategy.
type Kind int

const (
	KindNone Kind = iota
	KindStepCounter
	KindAccelerometer
)

func (k Kind) String() string {
	switch k {
	case KindStepCounter:
		return "step_counter"
	case KindAccelerometer:
		return "accelerometer"
	default:
		return "none"
	}
}

// Reading is one raw sample. Step counters report the cumulative count since
// boot in Values[0]; accelerometers report x, y, z in m/s².
type Reading struct {
	Kind   Kind
	Values [3]float64
	Time   time.Time
}

// Hardware is the device-side boundary: it reports which sensors exist and
// streams their readings. Subscribe channels are closed by Unsubscribe.
type Hardware interface {
	Has(kind Kind) bool
	Subscribe(kind Kind) (string, <-chan Reading, error)
	Unsubscribe(id string)
}

var (
	// ErrUnavailable is returned by Source.Start when no step sensor exists.
	ErrUnavailable = errors.New("no step sensor available")
	// ErrUnsupported is returned by Hardware.Subscribe for a missing sensor.
	ErrUnsupported = errors.New("sensor kind not supported by hardware")
)
