// Package tracking owns the live activity session. A Controller fuses step
// events, location fixes and a periodic tick into one mutex-guarded session
// and publishes immutable snapshots of it.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitlife/tracker/internal/activity"
	"github.com/fitlife/tracker/internal/config"
	"github.com/fitlife/tracker/internal/location"
	"github.com/fitlife/tracker/internal/monitoring"
	"github.com/fitlife/tracker/internal/sensor"
	"github.com/fitlife/tracker/internal/timeutil"
	"github.com/fitlife/tracker/internal/units"
)

var (
	// ErrStepSourceUnavailable means the device has no usable step sensor.
	ErrStepSourceUnavailable = errors.New("step source unavailable")
	// ErrStepPermissionDenied means step recognition has not been granted.
	ErrStepPermissionDenied = errors.New("step permission denied")
	// ErrEmptySession is returned by Save when nothing has been tracked.
	ErrEmptySession = errors.New("session has no activity to save")
	// ErrNoRepository is returned by Save when no repository is configured.
	ErrNoRepository = errors.New("no activity repository configured")
)

var logf = monitoring.Prefixed("tracking")

// Availability is the step capability as seen by Start.
type Availability string

const (
	Available        Availability = "available"
	Unavailable      Availability = "unavailable"
	PermissionDenied Availability = "permission_denied"
)

// StartResult describes the outcome of Start.
type StartResult struct {
	Started        bool         `json:"started"`
	AlreadyRunning bool         `json:"already_running,omitempty"`
	Availability   Availability `json:"availability"`
	LocationActive bool         `json:"location_active"`
	LocationError  string       `json:"location_error,omitempty"`
}

// Options configure a Controller. Zero values select defaults.
type Options struct {
	Clock       timeutil.Clock
	Config      *config.TrackingConfig
	Permissions PermissionChecker
	Repository  activity.Repository
	// DayLabel names the day a saved session belongs to. Defaults to the
	// short weekday name in UTC.
	DayLabel func(time.Time) string
}

// Controller orchestrates start/stop/reset of the single tracking session.
// lifecycleMu serialises Start, Stop, Reset and Save; mu guards the session
// and is the only lock producers take.
type Controller struct {
	clock    timeutil.Clock
	steps    *sensor.Source
	location *location.Listener
	perms    PermissionChecker
	repo     activity.Repository
	dayLabel func(time.Time) string

	strideM      float64
	tickInterval time.Duration
	locRequest   location.Request

	lifecycleMu sync.Mutex
	tickStop    chan struct{}
	tickDone    chan struct{}

	mu             sync.Mutex
	sess           session
	acc            *location.Accumulator
	gen            uint64
	locationActive bool

	broadcaster *Broadcaster
}

// NewController wires a controller to its step source and location
// listener. Either may be nil-safe: a nil source reports unavailable and a
// nil listener degrades distance to the step estimate.
func NewController(steps *sensor.Source, loc *location.Listener, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Config == nil {
		opts.Config = config.EmptyTrackingConfig()
	}
	if opts.Permissions == nil {
		opts.Permissions = GrantAll()
	}
	if opts.DayLabel == nil {
		opts.DayLabel = func(t time.Time) string { return t.UTC().Format("Mon") }
	}
	if steps == nil {
		steps = sensor.NewSource(nil, sensor.Options{})
	}
	if loc == nil {
		loc = location.NewListener(nil)
	}

	cfg := opts.Config
	priority, err := location.ParsePriority(cfg.GetLocationPriority())
	if err != nil {
		logf("%v, using %s", err, priority)
	}

	c := &Controller{
		clock:        opts.Clock,
		steps:        steps,
		location:     loc,
		perms:        opts.Permissions,
		repo:         opts.Repository,
		dayLabel:     opts.DayLabel,
		strideM:      cfg.GetStrideLengthM(),
		tickInterval: cfg.GetTickInterval(),
		locRequest: location.Request{
			Interval:     cfg.GetLocationInterval(),
			MinInterval:  cfg.GetLocationMinInterval(),
			MinDistanceM: cfg.GetLocationMinDistanceM(),
			Priority:     priority,
		},
		acc: location.NewAccumulator(location.Filter{
			MinM: cfg.GetMinIncrementM(),
			MaxM: cfg.GetMaxIncrementM(),
		}),
	}
	c.broadcaster = NewBroadcaster(c.snapshotLocked())
	return c
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives snapshots as the session
// changes. The channel holds only the latest unread snapshot.
func (c *Controller) Subscribe() (string, <-chan Snapshot) {
	return c.broadcaster.Subscribe()
}

// Unsubscribe closes a channel returned by Subscribe.
func (c *Controller) Unsubscribe(id string) {
	c.broadcaster.Unsubscribe(id)
}

// Start begins or resumes tracking. Calling Start while running is a no-op.
// A missing sensor or a denied step permission leaves the session idle and
// returns ErrStepSourceUnavailable or ErrStepPermissionDenied. A denied or
// failing location provider does not prevent the start; distance then comes
// from the step estimate.
func (c *Controller) Start() (StartResult, error) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	if c.sess.running {
		res := StartResult{AlreadyRunning: true, Availability: Available, LocationActive: c.locationActive}
		c.mu.Unlock()
		return res, nil
	}
	c.mu.Unlock()

	if !c.steps.Available() {
		return StartResult{Availability: Unavailable}, ErrStepSourceUnavailable
	}
	perms := c.perms.Permissions()
	if !perms.Steps {
		return StartResult{Availability: PermissionDenied}, ErrStepPermissionDenied
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	now := c.clock.Now()
	prevStartedAt, prevRunID := c.sess.startedAt, c.sess.runID
	c.sess.running = true
	c.sess.startedAt = now.Add(-c.sess.elapsed)
	if c.sess.runID == "" {
		c.sess.runID = uuid.NewString()
	}
	c.mu.Unlock()

	if err := c.steps.Start(func(ev sensor.StepEvent) error { return c.onStep(gen, ev) }); err != nil {
		c.mu.Lock()
		c.gen++
		c.sess.running = false
		c.sess.startedAt, c.sess.runID = prevStartedAt, prevRunID
		c.mu.Unlock()
		return StartResult{Availability: Available}, fmt.Errorf("start step source: %w", err)
	}

	res := StartResult{Started: true, Availability: Available}
	if !perms.Location {
		res.LocationError = location.ErrPermissionDenied.Error()
	} else if err := c.location.Start(c.locRequest, func(f location.Fix) error { return c.onFix(gen, f) }); err != nil {
		logf("location unavailable, using step distance: %v", err)
		res.LocationError = err.Error()
	} else {
		res.LocationActive = true
	}

	ticker := c.clock.NewTicker(c.tickInterval)
	c.tickStop = make(chan struct{})
	c.tickDone = make(chan struct{})
	go c.runTicker(gen, ticker, c.tickStop, c.tickDone)

	c.mu.Lock()
	c.locationActive = res.LocationActive
	c.publishLocked()
	c.mu.Unlock()

	logf("started run %s (source=%s, location=%t)", c.Snapshot().RunID, c.steps.Kind(), res.LocationActive)
	return res, nil
}

// Stop pauses tracking and keeps the counters. Both sources are
// unsubscribed and the tick cancelled before Stop returns. Stop reports
// whether a running session was stopped.
func (c *Controller) Stop() bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	return c.stopLocked()
}

// stopLocked requires lifecycleMu.
func (c *Controller) stopLocked() bool {
	c.mu.Lock()
	if !c.sess.running {
		c.mu.Unlock()
		return false
	}
	// bumping the generation first drops callbacks already in flight
	c.gen++
	c.sess.running = false
	if d := c.clock.Now().Sub(c.sess.startedAt); d > c.sess.elapsed {
		c.sess.elapsed = d
	}
	c.mu.Unlock()

	c.steps.Stop()
	c.location.Stop()
	if c.tickStop != nil {
		close(c.tickStop)
		<-c.tickDone
		c.tickStop, c.tickDone = nil, nil
	}

	c.mu.Lock()
	c.locationActive = false
	c.publishLocked()
	c.mu.Unlock()
	return true
}

// Reset stops tracking if needed and zeroes the session.
func (c *Controller) Reset() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.stopLocked()
	c.steps.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.sess = session{}
	c.acc.Reset()
	c.publishLocked()
}

// Save stops the session, stores it as an activity and resets. When the
// repository fails the session is left stopped with its counters intact so
// the save can be retried.
func (c *Controller) Save(ctx context.Context) (activity.Activity, error) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.repo == nil {
		return activity.Activity{}, ErrNoRepository
	}
	c.stopLocked()

	c.mu.Lock()
	snap := c.snapshotLocked()
	day := c.sess.startedAt
	c.mu.Unlock()

	if snap.Steps == 0 && snap.DistanceKm == 0 && snap.ElapsedMs == 0 {
		return activity.Activity{}, ErrEmptySession
	}
	if day.IsZero() {
		day = c.clock.Now()
	}

	rec, err := c.repo.Create(ctx, activity.Activity{
		Day:        c.dayLabel(day),
		Steps:      snap.Steps,
		DistanceKm: snap.DistanceKm,
		ActiveTime: units.FormatElapsed(snap.Elapsed()),
	})
	if err != nil {
		return activity.Activity{}, fmt.Errorf("save activity: %w", err)
	}

	c.resetLocked()
	logf("saved run %s as activity %s (%d steps, %s)", snap.RunID, rec.ID, rec.Steps, units.FormatDistance(rec.DistanceKm))
	return rec, nil
}

// Close stops tracking and closes all subscriber channels.
func (c *Controller) Close() {
	c.Stop()
	c.broadcaster.Close()
}

func (c *Controller) onStep(gen uint64, ev sensor.StepEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.sess.running {
		return nil
	}
	if ev.HasBaseline && c.sess.baseline == nil {
		b := ev.Baseline
		c.sess.baseline = &b
	}
	if ev.Delta <= 0 {
		c.publishLocked()
		return nil
	}
	c.sess.steps += ev.Delta
	if !c.acc.HasDistance() {
		if d := location.StepDistanceKm(c.sess.steps, c.strideM); d > c.sess.distanceKm {
			c.sess.distanceKm = d
		}
	}
	c.publishLocked()
	return nil
}

func (c *Controller) onFix(gen uint64, f location.Fix) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.sess.running {
		return nil
	}
	incM, accepted := c.acc.Add(f)
	if accepted {
		c.sess.distanceKm += incM / 1000
	}
	c.publishLocked()
	return nil
}

func (c *Controller) runTicker(gen uint64, ticker timeutil.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			c.tick(gen)
		}
	}
}

func (c *Controller) tick(gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			logf("tick panic: %v", r)
		}
	}()
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.sess.running {
		return
	}
	if d := c.clock.Now().Sub(c.sess.startedAt); d > c.sess.elapsed {
		c.sess.elapsed = d
	}
	c.publishLocked()
}

// publishLocked requires mu. Publishing under mu keeps subscribers from
// observing snapshots out of order.
func (c *Controller) publishLocked() {
	if c.broadcaster != nil {
		c.broadcaster.Publish(c.snapshotLocked())
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Running:        c.sess.running,
		Steps:          c.sess.steps,
		DistanceKm:     c.sess.distanceKm,
		ElapsedMs:      c.sess.elapsed.Milliseconds(),
		GPSDistance:    c.acc.HasDistance(),
		GPSDistanceKm:  c.acc.TotalKm(),
		Available:      c.steps.Available(),
		Source:         c.steps.Kind().String(),
		LocationActive: c.locationActive,
		RunID:          c.sess.runID,
		UpdatedAt:      c.clock.Now(),
	}
	if !c.sess.startedAt.IsZero() {
		t := c.sess.startedAt
		s.StartedAt = &t
	}
	if c.sess.baseline != nil {
		b := *c.sess.baseline
		s.SensorBaseline = &b
	}
	if fix, ok := c.acc.LastFix(); ok {
		s.LastFix = &fix
	}
	return s
}
