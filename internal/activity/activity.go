// Package activity defines the historical activity record saved at the end of
// a tracking session, the repository boundary that stores it and the summary
// statistics computed over stored records.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by repositories for an unknown id.
var ErrNotFound = errors.New("activity not found")

// Activity is one day's stored activity.
type Activity struct {
	ID         string    `json:"id"`
	Day        string    `json:"day"`
	Steps      int       `json:"steps"`
	DistanceKm float64   `json:"distanceKm"`
	ActiveTime string    `json:"activeTime"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate checks field ranges.
func (a Activity) Validate() error {
	if strings.TrimSpace(a.Day) == "" {
		return errors.New("day is required")
	}
	if a.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", a.Steps)
	}
	if a.DistanceKm < 0 {
		return fmt.Errorf("distanceKm must be non-negative, got %f", a.DistanceKm)
	}
	if strings.TrimSpace(a.ActiveTime) == "" {
		return errors.New("activeTime is required")
	}
	return nil
}

// Draft is a create request. Every field must be present.
type Draft struct {
	Day        *string  `json:"day"`
	Steps      *int     `json:"steps"`
	DistanceKm *float64 `json:"distanceKm"`
	ActiveTime *string  `json:"activeTime"`
}

// Activity converts the draft, failing when a field is missing or invalid.
func (d Draft) Activity() (Activity, error) {
	var missing []string
	if d.Day == nil {
		missing = append(missing, "day")
	}
	if d.Steps == nil {
		missing = append(missing, "steps")
	}
	if d.DistanceKm == nil {
		missing = append(missing, "distanceKm")
	}
	if d.ActiveTime == nil {
		missing = append(missing, "activeTime")
	}
	if len(missing) > 0 {
		return Activity{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	a := Activity{Day: *d.Day, Steps: *d.Steps, DistanceKm: *d.DistanceKm, ActiveTime: *d.ActiveTime}
	return a, a.Validate()
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Day        *string  `json:"day,omitempty"`
	Steps      *int     `json:"steps,omitempty"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
	ActiveTime *string  `json:"activeTime,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Day == nil && p.Steps == nil && p.DistanceKm == nil && p.ActiveTime == nil
}

// Apply returns a with the patch applied and validated.
func (p Patch) Apply(a Activity) (Activity, error) {
	if p.Day != nil {
		a.Day = *p.Day
	}
	if p.Steps != nil {
		a.Steps = *p.Steps
	}
	if p.DistanceKm != nil {
		a.DistanceKm = *p.DistanceKm
	}
	if p.ActiveTime != nil {
		a.ActiveTime = *p.ActiveTime
	}
	return a, a.Validate()
}

// Repository stores activities. Implementations assign ID and timestamps on
// Create and return ErrNotFound (possibly wrapped) for unknown ids.
type Repository interface {
	Create(ctx context.Context, a Activity) (Activity, error)
	Get(ctx context.Context, id string) (Activity, error)
	List(ctx context.Context) ([]Activity, error)
	Update(ctx context.Context, id string, p Patch) (Activity, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SeedWeek is the sample week loaded into an empty store by -seed.
func SeedWeek() []Activity {
	return []Activity{
		{Day: "Lun", Steps: 5200, DistanceKm: 3.4, ActiveTime: "45m"},
		{Day: "Mar", Steps: 7600, DistanceKm: 5.1, ActiveTime: "1h 10m"},
		{Day: "Mié", Steps: 3200, DistanceKm: 2.1, ActiveTime: "30m"},
		{Day: "Jue", Steps: 8900, DistanceKm: 6.4, ActiveTime: "1h 25m"},
		{Day: "Vie", Steps: 10400, DistanceKm: 8.0, ActiveTime: "1h 55m"},
		{Day: "Sáb", Steps: 6500, DistanceKm: 4.8, ActiveTime: "50m"},
		{Day: "Dom", Steps: 4000, DistanceKm: 2.9, ActiveTime: "35m"},
	}
}

// Seed inserts SeedWeek when repo is empty and reports how many rows it added.
func Seed(ctx context.Context, repo Repository) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	added := 0
	for _, a := range SeedWeek() {
		if _, err := repo.Create(ctx, a); err != nil {
			return added, fmt.Errorf("seed %s: %w", a.Day, err)
		}
		added++
	}
	return added, nil
}
