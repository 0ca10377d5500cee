package sensor

import (
	"fmt"
	"sync"
	"time"

	"github.com/fitlife/tracker/internal/monitoring"
)

// StepEvent is delivered to a Source handler. The first reading of a
// step-counter run produces an event with Delta 0 that only carries the
// baseline; every other event has Delta > 0.
type StepEvent struct {
	Delta       int
	Baseline    float64
	HasBaseline bool
	Time        time.Time
}

// Handler consumes step events. Returned errors and panics are logged and
// do not stop the stream.
type Handler func(StepEvent) error

// Options tune the accelerometer fallback.
type Options struct {
	AccelThreshold  float64
	MinStepInterval time.Duration
}

// Source is the step-signal source. The strategy is chosen once by NewSource
// and never changes; Start and Stop are idempotent.
type Source struct {
	hw   Hardware
	kind Kind

	detMu    sync.Mutex
	detector Detector

	mu        sync.Mutex
	listening bool
	subID     string
	stop      chan struct{}
	done      chan struct{}
}

// NewSource probes hw for a step counter, then an accelerometer.
func NewSource(hw Hardware, opts Options) *Source {
	s := &Source{hw: hw}
	switch {
	case hw != nil && hw.Has(KindStepCounter):
		s.kind = KindStepCounter
		s.detector = &CounterDetector{}
	case hw != nil && hw.Has(KindAccelerometer):
		s.kind = KindAccelerometer
		s.detector = &ThresholdDetector{Threshold: opts.AccelThreshold, MinInterval: opts.MinStepInterval}
	default:
		s.kind = KindNone
	}
	monitoring.Logf("[sensor] step source: %s", s.kind)
	return s
}

// Kind reports the selected strategy.
func (s *Source) Kind() Kind { return s.kind }

// Available reports whether any usable step sensor exists.
func (s *Source) Available() bool { return s.kind != KindNone }

// Listening reports whether the source is currently subscribed.
func (s *Source) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Start subscribes to the hardware and delivers step events to handler on a
// dedicated goroutine, in arrival order. Starting an already listening
// source is a no-op.
func (s *Source) Start(handler Handler) error {
	if !s.Available() {
		return ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listening {
		return nil
	}

	id, readings, err := s.hw.Subscribe(s.kind)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.kind, err)
	}

	s.subID = id
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.listening = true
	go s.pump(readings, handler, s.stop, s.done)
	return nil
}

// Stop unsubscribes from the hardware and waits for the delivery goroutine
// to exit, so no handler call is in flight once Stop returns. Stopping an
// idle source is a no-op.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.listening {
		return
	}
	close(s.stop)
	s.hw.Unsubscribe(s.subID)
	<-s.done
	s.listening = false
	s.subID = ""
}

// Reset clears detector state so the next reading starts a new run.
func (s *Source) Reset() {
	if s.detector == nil {
		return
	}
	s.detMu.Lock()
	defer s.detMu.Unlock()
	s.detector.Reset()
}

func (s *Source) pump(readings <-chan Reading, handler Handler, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case r, ok := <-readings:
			if !ok {
				return
			}
			ev, emit := s.detect(r)
			if !emit {
				continue
			}
			// stop may have closed while detect ran
			select {
			case <-stop:
				return
			default:
			}
			deliver(handler, ev)
		}
	}
}

func (s *Source) detect(r Reading) (StepEvent, bool) {
	s.detMu.Lock()
	defer s.detMu.Unlock()

	ev := StepEvent{Time: r.Time}
	counter, isCounter := s.detector.(*CounterDetector)
	wasSeeded := isCounter && counter.seeded

	ev.Delta = s.detector.Detect(r)
	if isCounter {
		ev.Baseline, ev.HasBaseline = counter.Baseline()
		if !wasSeeded && ev.HasBaseline {
			return ev, true
		}
	}
	return ev, ev.Delta > 0
}

func deliver(handler Handler, ev StepEvent) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("[sensor] step handler panic: %v", r)
		}
	}()
	if err := handler(ev); err != nil {
		monitoring.Logf("[sensor] step handler error: %v", err)
	}
}
