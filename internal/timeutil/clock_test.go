package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)

	if d := clock.Since(past); d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	clock := RealClock{}
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(200 * time.Millisecond):
		t.Error("ticker did not fire")
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(time.Hour)
	if want := start.Add(time.Hour); !clock.Now().Equal(want) {
		t.Errorf("got %v, want %v", clock.Now(), want)
	}

	later := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Errorf("got %v, want %v", clock.Now(), later)
	}
	if d := clock.Since(later.Add(-5 * time.Minute)); d != 5*time.Minute {
		t.Errorf("Since() = %v, want 5m", d)
	}
}

func TestMockClock_Ticker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(time.Second)

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its interval")
	default:
	}

	clock.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired at half interval")
	default:
	}

	clock.Advance(500 * time.Millisecond)
	select {
	case got := <-ticker.C():
		if want := start.Add(time.Second); !got.Equal(want) {
			t.Errorf("tick time = %v, want %v", got, want)
		}
	default:
		t.Fatal("ticker did not fire after one interval")
	}

	// a large jump delivers one tick and re-arms past the new time
	clock.Advance(10 * time.Second)
	<-ticker.C()
	clock.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired early after a large jump")
	default:
	}
}

func TestMockClock_TickerStop(t *testing.T) {
	clock := NewMockClock(time.Now())
	ticker := clock.NewTicker(time.Second)
	if n := clock.ActiveTickers(); n != 1 {
		t.Fatalf("ActiveTickers() = %d, want 1", n)
	}

	ticker.Stop()
	clock.Advance(5 * time.Second)

	select {
	case <-ticker.C():
		t.Error("stopped ticker should not tick")
	default:
	}
	if n := clock.ActiveTickers(); n != 0 {
		t.Errorf("ActiveTickers() = %d after Stop, want 0", n)
	}
}

func TestMockTicker_Trigger(t *testing.T) {
	clock := NewMockClock(time.Now())
	ticker := clock.NewTicker(time.Hour).(*MockTicker)
	now := clock.Now()
	ticker.Trigger(now)

	select {
	case received := <-ticker.C():
		if !received.Equal(now) {
			t.Errorf("got %v, want %v", received, now)
		}
	default:
		t.Error("Trigger did not send tick")
	}

	ticker.Stop()
	ticker.Trigger(now)
	select {
	case <-ticker.C():
		t.Error("Trigger on a stopped ticker should not send")
	default:
	}
}

func TestMockClock_NewTickerPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero interval")
		}
	}()
	NewMockClock(time.Now()).NewTicker(0)
}
