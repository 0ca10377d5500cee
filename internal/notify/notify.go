// Package notify renders tracking snapshots into the ongoing "tracking
// activity" notification and delivers it to presenters: the log, and a Redis
// channel other processes can follow.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fitlife/tracker/internal/monitoring"
	"github.com/fitlife/tracker/internal/timeutil"
	"github.com/fitlife/tracker/internal/tracking"
	"github.com/fitlife/tracker/internal/units"
)

var logf = monitoring.Prefixed("notify")

// Title is the fixed notification title.
const Title = "FitLife - Tracking activity"

// ActionStop is offered while a run is in progress.
const ActionStop = "stop"

// Notification is the rendered view of one snapshot.
type Notification struct {
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Ongoing  bool              `json:"ongoing"`
	Actions  []string          `json:"actions"`
	Snapshot tracking.Snapshot `json:"snapshot"`
}

// Render formats s as "{steps} steps | {km} km | {elapsed}".
func Render(s tracking.Snapshot) Notification {
	n := Notification{
		Title:    Title,
		Text:     fmt.Sprintf("%d steps | %.2f km | %s", s.Steps, s.DistanceKm, units.FormatElapsed(s.Elapsed())),
		Ongoing:  s.Running,
		Actions:  []string{},
		Snapshot: s,
	}
	if s.Running {
		n.Actions = append(n.Actions, ActionStop)
	}
	return n
}

// Presenter shows a notification somewhere.
type Presenter interface {
	Present(ctx context.Context, n Notification) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, n Notification) error

func (f PresenterFunc) Present(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogPresenter writes the notification text to the log when it changes.
// While a run continues, lines are spaced at least MinInterval apart; a
// start or stop is always logged. A nil Clock uses the wall clock.
type LogPresenter struct {
	MinInterval time.Duration
	Clock       timeutil.Clock

	mu      sync.Mutex
	last    string
	ongoing bool
	at      time.Time
}

func (p *LogPresenter) Present(_ context.Context, n Notification) error {
	line := n.Text
	if !n.Ongoing {
		line += " (paused)"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return nil
	}
	clock := p.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	now := clock.Now()
	if n.Ongoing == p.ongoing && p.MinInterval > 0 && now.Sub(p.at) < p.MinInterval {
		return nil
	}
	p.last, p.ongoing, p.at = line, n.Ongoing, now
	logf("%s: %s", n.Title, line)
	return nil
}

// Source is anything that streams snapshots, such as *tracking.Controller.
type Source interface {
	Subscribe() (string, <-chan tracking.Snapshot)
	Unsubscribe(id string)
}

// Run renders every snapshot from src and hands it to each presenter until
// ctx is done or src closes the subscription. Presenter errors are logged
// and do not stop the loop.
func Run(ctx context.Context, src Source, presenters ...Presenter) error {
	id, snapshots := src.Subscribe()
	defer src.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-snapshots:
			if !ok {
				return nil
			}
			n := Render(s)
			for _, p := range presenters {
				if err := p.Present(ctx, n); err != nil {
					logf("presenter failed: %v", err)
				}
			}
		}
	}
}
