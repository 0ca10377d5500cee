package sensor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockHardware is an in-memory Hardware for tests and for running the
// service without a sensor board. Emit delivers a reading to every current
// subscriber of its Kind.
type MockHardware struct {
	mu          sync.Mutex
	kinds       map[Kind]bool
	subscribers map[string]mockSub
	subscribeFn func(Kind) error
	dropped     int
}

type mockSub struct {
	kind Kind
	ch   chan Reading
}

// NewMockHardware returns hardware that reports the given sensors.
func NewMockHardware(kinds ...Kind) *MockHardware {
	m := &MockHardware{
		kinds:       make(map[Kind]bool),
		subscribers: make(map[string]mockSub),
	}
	for _, k := range kinds {
		m.kinds[k] = true
	}
	return m
}

// FailSubscribe makes Subscribe return fn's error when non-nil.
func (m *MockHardware) FailSubscribe(fn func(Kind) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeFn = fn
}

func (m *MockHardware) Has(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kinds[kind]
}

func (m *MockHardware) Subscribe(kind Kind) (string, <-chan Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.kinds[kind] {
		return "", nil, ErrUnsupported
	}
	if m.subscribeFn != nil {
		if err := m.subscribeFn(kind); err != nil {
			return "", nil, err
		}
	}
	id := uuid.NewString()
	ch := make(chan Reading, 256)
	m.subscribers[id] = mockSub{kind: kind, ch: ch}
	return id, ch, nil
}

func (m *MockHardware) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscribers[id]; ok {
		close(sub.ch)
		delete(m.subscribers, id)
	}
}

// Subscribers returns the number of open subscriptions.
func (m *MockHardware) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Emit sends r to all subscribers of r.Kind without blocking.
func (m *MockHardware) Emit(r Reading) {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subscribers {
		if sub.kind != r.Kind {
			continue
		}
		select {
		case sub.ch <- r:
		default:
			m.dropped++
		}
	}
}

// EmitCounter emits a step-counter reading with the given raw value.
func (m *MockHardware) EmitCounter(raw float64) {
	m.Emit(Reading{Kind: KindStepCounter, Values: [3]float64{raw}})
}

// EmitAccel emits an accelerometer reading.
func (m *MockHardware) EmitAccel(x, y, z float64) {
	m.Emit(Reading{Kind: KindAccelerometer, Values: [3]float64{x, y, z}})
}
