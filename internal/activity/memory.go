package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a Repository held in process memory. It backs tests
// and runs started without a database.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[string]Activity
	now  func() time.Time

	// CreateErr, when set, is returned by Create.
	CreateErr error
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]Activity), now: time.Now}
}

func (m *MemoryRepository) Create(_ context.Context, a Activity) (Activity, error) {
	if err := a.Validate(); err != nil {
		return Activity{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return Activity{}, m.CreateErr
	}
	a.ID = uuid.NewString()
	a.CreatedAt = m.now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.rows[a.ID] = a
	return a, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return Activity{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// List returns activities oldest first.
func (m *MemoryRepository) List(_ context.Context) ([]Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Activity, 0, len(m.rows))
	for _, a := range m.rows {
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) Update(_ context.Context, id string, p Patch) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return Activity{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	updated, err := p.Apply(a)
	if err != nil {
		return Activity{}, err
	}
	updated.UpdatedAt = m.now().UTC()
	m.rows[id] = updated
	return updated, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(m.rows, id)
	return nil
}

func (m *MemoryRepository) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}
