package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlife/tracker/internal/monitoring"
	"github.com/fitlife/tracker/internal/timeutil"
	"github.com/fitlife/tracker/internal/tracking"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		snap tracking.Snapshot
		text string
	}{
		{name: "idle", snap: tracking.Snapshot{}, text: "0 steps | 0.00 km | 0s"},
		{name: "short walk", snap: tracking.Snapshot{Running: true, Steps: 5, DistanceKm: 0.009, ElapsedMs: 65_000}, text: "5 steps | 0.01 km | 1m 05s"},
		{name: "long walk", snap: tracking.Snapshot{Steps: 4000, DistanceKm: 3, ElapsedMs: 3_720_000}, text: "4000 steps | 3.00 km | 1h 02m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Render(tt.snap)
			assert.Equal(t, Title, n.Title)
			assert.Equal(t, tt.text, n.Text)
			assert.Equal(t, tt.snap.Running, n.Ongoing)
			if tt.snap.Running {
				assert.Equal(t, []string{ActionStop}, n.Actions)
			} else {
				assert.Empty(t, n.Actions)
			}
		})
	}
}

func TestLogPresenterSkipsRepeats(t *testing.T) {
	var buf bytes.Buffer
	prev := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) { fmt.Fprintf(&buf, format+"\n", v...) })
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	var p LogPresenter
	ctx := context.Background()
	n := Render(tracking.Snapshot{Running: true, Steps: 3})
	require.NoError(t, p.Present(ctx, n))
	require.NoError(t, p.Present(ctx, n))
	n.Ongoing = false
	require.NoError(t, p.Present(ctx, n))

	assert.Equal(t,
		"[notify] FitLife - Tracking activity: 3 steps | 0.00 km | 0s\n"+
			"[notify] FitLife - Tracking activity: 3 steps | 0.00 km | 0s (paused)\n",
		buf.String())
}

func TestRedisPublisher(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	ctx := context.Background()

	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	p := NewRedisPublisher(client)
	n := Render(tracking.Snapshot{Running: true, Steps: 42, DistanceKm: 0.03, ElapsedMs: 30_000, RunID: "run-1"})
	require.NoError(t, p.Present(ctx, n))

	select {
	case msg := <-sub.Channel():
		var got Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "42 steps | 0.03 km | 30s", got.Text)
		assert.Equal(t, "run-1", got.Snapshot.RunID)
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}

	raw, err := s.Get(DefaultKey)
	require.NoError(t, err)
	var latest Notification
	require.NoError(t, json.Unmarshal([]byte(raw), &latest))
	assert.Equal(t, n.Text, latest.Text)
	assert.Equal(t, 10*time.Minute, s.TTL(DefaultKey))
}

func TestRedisPublisherError(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	err := NewRedisPublisher(client).Present(context.Background(), Render(tracking.Snapshot{}))
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	c, err := Connect("")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = Connect("redis://localhost:6379/2")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, 2, c.Options().DB)

	_, err = Connect("http://nope")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	b := tracking.NewBroadcaster(tracking.Snapshot{})
	var mu sync.Mutex
	var texts []string
	collect := PresenterFunc(func(_ context.Context, n Notification) error {
		mu.Lock()
		defer mu.Unlock()
		texts = append(texts, n.Text)
		return nil
	})
	failing := PresenterFunc(func(context.Context, Notification) error { return errors.New("screen off") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, b, failing, collect) }()

	// the primed snapshot shows Run has subscribed
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(texts) > 0
	}, time.Second, 5*time.Millisecond)
	for i := 1; i <= 3; i++ {
		b.Publish(tracking.Snapshot{Steps: i})
		want := fmt.Sprintf("%d steps | 0.00 km | 0s", i)
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(texts) > 0 && texts[len(texts)-1] == want
		}, time.Second, 5*time.Millisecond)
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// a closed source ends Run cleanly
	b.Close()
	assert.NoError(t, Run(context.Background(), b))
}

func TestLogPresenterThrottle(t *testing.T) {
	var lines []string
	prev := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) { lines = append(lines, fmt.Sprintf(format, v...)) })
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	clock := timeutil.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	p := LogPresenter{MinInterval: 30 * time.Second, Clock: clock}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Present(ctx, Render(tracking.Snapshot{Running: true, Steps: i})))
		clock.Advance(10 * time.Second)
	}
	// 50s after the first line, so the step count at 30s was logged too
	require.NoError(t, p.Present(ctx, Render(tracking.Snapshot{Steps: 5})))

	assert.Equal(t, []string{
		"[notify] FitLife - Tracking activity: 0 steps | 0.00 km | 0s",
		"[notify] FitLife - Tracking activity: 3 steps | 0.00 km | 0s",
		"[notify] FitLife - Tracking activity: 5 steps | 0.00 km | 0s (paused)",
	}, lines)
}
