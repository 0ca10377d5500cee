// Package location accumulates travelled distance from a stream of position
// fixes and defines the boundary to whatever produces those fixes.
package location

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ErrPermissionDenied is returned by a Provider when location access has not
// been granted.
var ErrPermissionDenied = errors.New("location permission denied")

// Fix is one position report.
type Fix struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Accuracy float64   `json:"accuracy_m"`
	Time     time.Time `json:"time"`
}

// Point returns the fix as an orb point (lon, lat).
func (f Fix) Point() orb.Point { return orb.Point{f.Lon, f.Lat} }

// Distance returns the great-circle distance between two fixes in metres.
func Distance(a, b Fix) float64 {
	return geo.Distance(a.Point(), b.Point())
}

// Priority is the accuracy/power trade-off requested from the provider.
type Priority int

const (
	PriorityHighAccuracy Priority = iota
	PriorityBalanced
	PriorityLowPower
	PriorityPassive
)

var priorityNames = map[Priority]string{
	PriorityHighAccuracy: "high_accuracy",
	PriorityBalanced:     "balanced",
	PriorityLowPower:     "low_power",
	PriorityPassive:      "passive",
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority maps a config name to a Priority.
func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return PriorityHighAccuracy, fmt.Errorf("unknown location priority %q", s)
}

// Request describes how often the provider should report.
type Request struct {
	Interval     time.Duration
	MinInterval  time.Duration
	MinDistanceM float64
	Priority     Priority
}

// DefaultRequest returns the request used when nothing is configured.
func DefaultRequest() Request {
	return Request{
		Interval:     5 * time.Second,
		MinInterval:  3 * time.Second,
		MinDistanceM: 5,
		Priority:     PriorityHighAccuracy,
	}
}

// Provider produces position fixes. RemoveUpdates closes the channel
// returned by RequestUpdates.
type Provider interface {
	RequestUpdates(req Request) (string, <-chan Fix, error)
	RemoveUpdates(id string)
}
