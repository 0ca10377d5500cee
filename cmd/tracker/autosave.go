package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fitlife/tracker/internal/activity"
	"github.com/fitlife/tracker/internal/tracking"
)

type saver interface {
	Save(ctx context.Context) (activity.Activity, error)
}

// autosaveJob stores the current session. An empty session is skipped.
func autosaveJob(s saver, timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rec, err := s.Save(ctx)
		switch {
		case errors.Is(err, tracking.ErrEmptySession):
			return
		case err != nil:
			log.Printf("autosave failed: %v", err)
		default:
			log.Printf("autosaved activity %s (%d steps)", rec.ID, rec.Steps)
		}
	}
}

// startAutosave runs autosaveJob on the cron schedule spec.
func startAutosave(spec string, s saver) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, autosaveJob(s, 10*time.Second)); err != nil {
		return nil, fmt.Errorf("invalid autosave schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
