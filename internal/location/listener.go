package location

import (
	"fmt"
	"sync"

	"github.com/fitlife/tracker/internal/monitoring"
)

// Handler consumes fixes. Errors and panics are logged and the stream
// continues.
type Handler func(Fix) error

// Listener owns one subscription to a Provider. Start and Stop are
// idempotent; Stop waits until no handler call is in flight.
type Listener struct {
	provider Provider

	mu        sync.Mutex
	listening bool
	id        string
	stop      chan struct{}
	done      chan struct{}
}

// NewListener returns a Listener for p. A nil provider behaves as if
// permission were always denied.
func NewListener(p Provider) *Listener {
	return &Listener{provider: p}
}

// Listening reports whether updates are currently requested.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// Start requests updates and forwards them to handler in arrival order.
func (l *Listener) Start(req Request, handler Handler) error {
	if l.provider == nil {
		return ErrPermissionDenied
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listening {
		return nil
	}
	id, fixes, err := l.provider.RequestUpdates(req)
	if err != nil {
		return fmt.Errorf("request location updates: %w", err)
	}
	l.id = id
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.listening = true
	go l.pump(fixes, handler, l.stop, l.done)
	return nil
}

// Stop removes the subscription.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.listening {
		return
	}
	close(l.stop)
	l.provider.RemoveUpdates(l.id)
	<-l.done
	l.listening = false
	l.id = ""
}

func (l *Listener) pump(fixes <-chan Fix, handler Handler, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case f, ok := <-fixes:
			if !ok {
				return
			}
			select {
			case <-stop:
				return
			default:
			}
			deliver(handler, f)
		}
	}
}

func deliver(handler Handler, f Fix) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("[location] fix handler panic: %v", r)
		}
	}()
	if err := handler(f); err != nil {
		monitoring.Logf("[location] fix handler error: %v", err)
	}
}
