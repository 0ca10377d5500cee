// Package board adapts the sensor board's serial line protocol into the step
// sensor and location provider boundaries used by the tracking engine.
//
// A Board subscribes once to the serial mux, parses every line and fans the
// readings out to its own subscribers. A stream is switched on at the board
// when its first subscriber arrives and switched off when the last one leaves.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fitlife/tracker/internal/location"
	"github.com/fitlife/tracker/internal/monitoring"
	"github.com/fitlife/tracker/internal/sensor"
	"github.com/fitlife/tracker/internal/serialmux"
	"github.com/fitlife/tracker/internal/timeutil"
)

var logf = monitoring.Prefixed("board")

// ErrNoLocation is returned by RequestUpdates when the board has no
// location receiver.
var ErrNoLocation = errors.New("board has no location receiver")

// subscriberBuffer bounds how far a consumer may lag before readings are
// dropped for it.
const subscriberBuffer = 64

type stream int

const (
	streamSteps stream = iota
	streamAccel
	streamFix
)

type subscriber struct {
	stream   stream
	readings chan sensor.Reading
	fixes    chan location.Fix
}

func (s *subscriber) close() {
	if s.readings != nil {
		close(s.readings)
	}
	if s.fixes != nil {
		close(s.fixes)
	}
}

// Status is a point-in-time view of the board link.
type Status struct {
	Capabilities []string       `json:"capabilities"`
	Probed       bool           `json:"probed"`
	Streams      map[string]int `json:"streams"`
	Lines        int64          `json:"lines"`
	ParseErrors  int64          `json:"parse_errors"`
	Dropped      int64          `json:"dropped"`
	LastError    string         `json:"last_error,omitempty"`
}

// Board implements sensor.Hardware and location.Provider over a serial mux.
type Board struct {
	mux   serialmux.SerialMuxInterface
	clock timeutil.Clock

	lineID string
	lines  chan string
	capsCh chan []string

	mu          sync.Mutex
	caps        map[string]bool
	probed      bool
	subscribers map[string]*subscriber
	lastRequest location.Request
	nLines      int64
	nParseErrs  int64
	nDropped    int64
	lastErr     string
	closed      bool
}

var (
	_ sensor.Hardware   = (*Board)(nil)
	_ location.Provider = (*Board)(nil)
)

// New subscribes to mux. Lines are not processed until Run is called.
func New(mux serialmux.SerialMuxInterface, clock timeutil.Clock) *Board {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	id, lines := mux.Subscribe()
	return &Board{
		mux:         mux,
		clock:       clock,
		lineID:      id,
		lines:       lines,
		capsCh:      make(chan []string, 1),
		caps:        make(map[string]bool),
		subscribers: make(map[string]*subscriber),
	}
}

// Run dispatches board lines until ctx is done or the mux closes the line
// channel.
func (b *Board) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-b.lines:
			if !ok {
				return nil
			}
			b.handleLine(line)
		}
	}
}

// Probe asks the board for its capabilities and waits for the answer. Run
// must be running for the reply to be seen.
func (b *Board) Probe(ctx context.Context) ([]string, error) {
	// discard a stale reply from an earlier probe
	select {
	case <-b.capsCh:
	default:
	}
	if err := b.mux.SendCommand(serialmux.CmdCapabilities); err != nil {
		return nil, fmt.Errorf("request capabilities: %w", err)
	}
	select {
	case caps := <-b.capsCh:
		return caps, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for capabilities: %w", ctx.Err())
	}
}

func (b *Board) handleLine(line string) {
	ev, err := serialmux.ParseEvent(line)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nLines++
	if err != nil {
		b.nParseErrs++
		logf("ignoring line: %v", err)
		return
	}

	now := b.clock.Now()
	switch ev.Type {
	case serialmux.EventTypeCapabilities:
		b.caps = make(map[string]bool, len(ev.Caps))
		for _, c := range ev.Caps {
			b.caps[c] = true
		}
		b.probed = true
		select {
		case b.capsCh <- ev.Caps:
		default:
		}
	case serialmux.EventTypeStep:
		b.publishReading(streamSteps, sensor.Reading{
			Kind:   sensor.KindStepCounter,
			Values: [3]float64{ev.Values[0]},
			Time:   now,
		})
	case serialmux.EventTypeAccel:
		b.publishReading(streamAccel, sensor.Reading{
			Kind:   sensor.KindAccelerometer,
			Values: [3]float64{ev.Values[0], ev.Values[1], ev.Values[2]},
			Time:   now,
		})
	case serialmux.EventTypeFix:
		b.publishFix(location.Fix{
			Lat:      ev.Values[0],
			Lon:      ev.Values[1],
			Accuracy: ev.Values[2],
			Time:     now,
		})
	case serialmux.EventTypeError:
		b.lastErr = ev.Message
		logf("board error: %s", ev.Message)
	}
}

func (b *Board) publishReading(st stream, r sensor.Reading) {
	for _, s := range b.subscribers {
		if s.stream != st {
			continue
		}
		select {
		case s.readings <- r:
		default:
			b.nDropped++
		}
	}
}

func (b *Board) publishFix(f location.Fix) {
	for _, s := range b.subscribers {
		if s.stream != streamFix {
			continue
		}
		select {
		case s.fixes <- f:
		default:
			b.nDropped++
		}
	}
}

// Has reports whether the board announced the given sensor. Before a
// successful Probe no sensor is reported.
func (b *Board) Has(kind sensor.Kind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch kind {
	case sensor.KindStepCounter:
		return b.caps[serialmux.CapStepCounter]
	case sensor.KindAccelerometer:
		return b.caps[serialmux.CapAccelerometer]
	}
	return false
}

// HasLocation reports whether the board announced a location receiver.
func (b *Board) HasLocation() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caps[serialmux.CapLocation]
}

func streamFor(kind sensor.Kind) (stream, string, string, bool) {
	switch kind {
	case sensor.KindStepCounter:
		return streamSteps, serialmux.CmdStepCounterOn, serialmux.CmdStepCounterOff, true
	case sensor.KindAccelerometer:
		return streamAccel, serialmux.CmdAccelOn, serialmux.CmdAccelOff, true
	}
	return 0, "", "", false
}

// Subscribe switches the sensor stream on and returns its readings.
func (b *Board) Subscribe(kind sensor.Kind) (string, <-chan sensor.Reading, error) {
	st, on, _, ok := streamFor(kind)
	if !ok || !b.Has(kind) {
		return "", nil, sensor.ErrUnsupported
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", nil, sensor.ErrUnavailable
	}
	if b.countLocked(st) == 0 {
		if err := b.mux.SendCommand(on); err != nil {
			return "", nil, fmt.Errorf("start %s stream: %w", kind, err)
		}
	}
	id := uuid.NewString()
	s := &subscriber{stream: st, readings: make(chan sensor.Reading, subscriberBuffer)}
	b.subscribers[id] = s
	return id, s.readings, nil
}

// Unsubscribe closes the subscription and switches the stream off when it
// was the last one.
func (b *Board) Unsubscribe(id string) {
	b.remove(id)
}

// RequestUpdates switches location fixes on with req's cadence. A later
// request replaces the cadence for every location subscriber.
func (b *Board) RequestUpdates(req location.Request) (string, <-chan location.Fix, error) {
	if !b.HasLocation() {
		return "", nil, ErrNoLocation
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", nil, ErrNoLocation
	}
	cmd := serialmux.LocationCommand(req.Interval, req.MinInterval, req.MinDistanceM, req.Priority.String())
	if err := b.mux.SendCommand(cmd); err != nil {
		return "", nil, fmt.Errorf("start location updates: %w", err)
	}
	b.lastRequest = req
	id := uuid.NewString()
	s := &subscriber{stream: streamFix, fixes: make(chan location.Fix, subscriberBuffer)}
	b.subscribers[id] = s
	return id, s.fixes, nil
}

// RemoveUpdates closes the location subscription.
func (b *Board) RemoveUpdates(id string) {
	b.remove(id)
}

func (b *Board) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subscribers[id]
	if !ok {
		return
	}
	s.close()
	delete(b.subscribers, id)
	if b.closed || b.countLocked(s.stream) > 0 {
		return
	}

	off := serialmux.CmdLocationOff
	switch s.stream {
	case streamSteps:
		off = serialmux.CmdStepCounterOff
	case streamAccel:
		off = serialmux.CmdAccelOff
	}
	if err := b.mux.SendCommand(off); err != nil {
		logf("failed to stop stream with %q: %v", off, err)
	}
}

func (b *Board) countLocked(st stream) int {
	n := 0
	for _, s := range b.subscribers {
		if s.stream == st {
			n++
		}
	}
	return n
}

// Status returns counters describing the link.
func (b *Board) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Status{
		Probed:      b.probed,
		Streams:     map[string]int{},
		Lines:       b.nLines,
		ParseErrors: b.nParseErrs,
		Dropped:     b.nDropped,
		LastError:   b.lastErr,
	}
	for c := range b.caps {
		st.Capabilities = append(st.Capabilities, c)
	}
	sort.Strings(st.Capabilities)
	for _, s := range b.subscribers {
		switch s.stream {
		case streamSteps:
			st.Streams["step_counter"]++
		case streamAccel:
			st.Streams["accelerometer"]++
		case streamFix:
			st.Streams["location"]++
		}
	}
	return st
}

// Close releases every subscription and detaches from the mux. The board's
// streams are switched off first.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, s := range b.subscribers {
		s.close()
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	for _, cmd := range []string{serialmux.CmdStepCounterOff, serialmux.CmdAccelOff, serialmux.CmdLocationOff} {
		if err := b.mux.SendCommand(cmd); err != nil {
			logf("failed to send %q on close: %v", cmd, err)
		}
	}
	b.mux.Unsubscribe(b.lineID)
}
