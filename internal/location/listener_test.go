package location

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlife/tracker/internal/testutil"
)

func TestListener_DeliversInOrder(t *testing.T) {
	p := NewMockProvider()
	l := NewListener(p)

	var mu sync.Mutex
	var got []float64
	require.NoError(t, l.Start(DefaultRequest(), func(f Fix) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, f.Lat)
		return nil
	}))
	assert.Equal(t, DefaultRequest(), p.LastRequest())

	for i := 1; i <= 5; i++ {
		p.Emit(Fix{Lat: float64(i)})
	}
	testutil.Eventually(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, "five fixes")
	l.Stop()

	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got)
	assert.Equal(t, 0, p.Subscribers())
}

func TestListener_PermissionDenied(t *testing.T) {
	p := NewMockProvider()
	p.SetDenied(true)
	l := NewListener(p)

	err := l.Start(DefaultRequest(), func(Fix) error { return nil })
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, l.Listening())

	assert.ErrorIs(t, NewListener(nil).Start(DefaultRequest(), nil), ErrPermissionDenied)
}

func TestListener_IdempotentAndPanicSafe(t *testing.T) {
	p := NewMockProvider()
	l := NewListener(p)
	var calls atomic.Int32

	h := func(Fix) error {
		if calls.Add(1) == 1 {
			panic("bad fix")
		}
		return nil
	}
	require.NoError(t, l.Start(DefaultRequest(), h))
	require.NoError(t, l.Start(DefaultRequest(), h))
	assert.Equal(t, 1, p.Subscribers())

	p.Emit(Fix{})
	p.Emit(Fix{})
	testutil.Eventually(t, time.Second, func() bool { return calls.Load() == 2 }, "stream survives panic")

	l.Stop()
	l.Stop()
	p.Emit(Fix{})
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}
