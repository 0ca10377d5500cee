package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlife/tracker/internal/activity"
	"github.com/fitlife/tracker/internal/testutil"
	"github.com/fitlife/tracker/internal/tracking"
)

func TestServiceEndToEnd(t *testing.T) {
	o := &options{
		Dev:          true,
		DB:           filepath.Join(t.TempDir(), "activities.db"),
		Timezone:     "UTC",
		ProbeTimeout: 2 * time.Second,
		Seed:         true,
	}
	svc, err := newService(context.Background(), o)
	require.NoError(t, err)
	defer svc.Close()

	assert.ElementsMatch(t, []string{"accel", "gps", "step"}, svc.board.Status().Capabilities)

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		svc.handler.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	w := do(http.MethodGet, "/api/activities")
	var acts []activity.Activity
	testutil.DecodeJSON(t, w, &acts)
	assert.Len(t, acts, 7, "seeded week")

	w = do(http.MethodPost, "/api/session/start")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	testutil.Eventually(t, 5*time.Second, func() bool { return svc.ctrl.Snapshot().Steps >= 2 },
		"simulated board never produced steps")
	snap := svc.ctrl.Snapshot()
	assert.Equal(t, "step_counter", snap.Source)
	assert.True(t, snap.LocationActive)

	w = do(http.MethodPost, "/api/session/save")
	testutil.AssertStatusCode(t, w.Code, http.StatusCreated)
	var rec activity.Activity
	testutil.DecodeJSON(t, w, &rec)
	assert.GreaterOrEqual(t, rec.Steps, 2)

	w = do(http.MethodGet, "/api/activities")
	acts = nil
	testutil.DecodeJSON(t, w, &acts)
	assert.Len(t, acts, 8)

	w = do(http.MethodGet, "/api/board")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
}

func TestServiceDisabledSensors(t *testing.T) {
	o := &options{
		DisableSensors: true,
		DB:             filepath.Join(t.TempDir(), "activities.db"),
		Timezone:       "UTC",
	}
	svc, err := newService(context.Background(), o)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.ctrl.Start()
	assert.ErrorIs(t, err, tracking.ErrStepSourceUnavailable)
	assert.False(t, svc.ctrl.Snapshot().Available)
}

func TestServiceRejectsBadSettings(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		o    options
	}{
		{name: "timezone", o: options{DisableSensors: true, DB: filepath.Join(dir, "a.db"), Timezone: "Mars/Olympus"}},
		{name: "config", o: options{DisableSensors: true, DB: filepath.Join(dir, "b.db"), Config: filepath.Join(dir, "missing.json")}},
		{name: "cron", o: options{DisableSensors: true, DB: filepath.Join(dir, "c.db"), AutosaveCron: "every now and then"}},
		{name: "redis url", o: options{DisableSensors: true, DB: filepath.Join(dir, "d.db"), RedisURL: "http://nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(context.Background(), &tt.o)
			assert.Error(t, err)
		})
	}
}

type fakeSaver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSaver) Save(ctx context.Context) (activity.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return activity.Activity{}, errors.New("autosave must bound the save")
	}
	return activity.Activity{ID: "a1", Steps: 10}, f.err
}

func (f *fakeSaver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestAutosave(t *testing.T) {
	s := &fakeSaver{}
	autosaveJob(s, time.Second)()
	assert.Equal(t, 1, s.Calls())

	s.err = tracking.ErrEmptySession
	autosaveJob(s, time.Second)()
	assert.Equal(t, 2, s.Calls())

	_, err := startAutosave("not a schedule", s)
	assert.Error(t, err)

	c, err := startAutosave("@every 1s", &fakeSaver{})
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 1)
}
