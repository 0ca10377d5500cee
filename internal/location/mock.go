package location

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is an in-memory Provider. Denied makes RequestUpdates fail
// with ErrPermissionDenied.
type MockProvider struct {
	mu          sync.Mutex
	denied      bool
	subscribers map[string]chan Fix
	lastRequest Request
}

// NewMockProvider returns a provider that grants access.
func NewMockProvider() *MockProvider {
	return &MockProvider{subscribers: make(map[string]chan Fix)}
}

// SetDenied toggles the simulated permission.
func (m *MockProvider) SetDenied(denied bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = denied
}

func (m *MockProvider) RequestUpdates(req Request) (string, <-chan Fix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied {
		return "", nil, ErrPermissionDenied
	}
	id := uuid.NewString()
	ch := make(chan Fix, 256)
	m.subscribers[id] = ch
	m.lastRequest = req
	return id, ch, nil
}

func (m *MockProvider) RemoveUpdates(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// LastRequest returns the most recent request passed to RequestUpdates.
func (m *MockProvider) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Subscribers returns the number of open subscriptions.
func (m *MockProvider) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Emit delivers f to every subscriber without blocking.
func (m *MockProvider) Emit(f Fix) {
	if f.Time.IsZero() {
		f.Time = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- f:
		default:
		}
	}
}
