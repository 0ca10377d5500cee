package tracking

import (
	"time"

	"github.com/fitlife/tracker/internal/location"
)

// Snapshot is an immutable copy of the session taken at one instant.
type Snapshot struct {
	Running        bool          `json:"running"`
	Steps          int           `json:"steps"`
	DistanceKm     float64       `json:"distance_km"`
	ElapsedMs      int64         `json:"elapsed_ms"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	SensorBaseline *float64      `json:"sensor_baseline,omitempty"`
	LastFix        *location.Fix `json:"last_fix,omitempty"`
	GPSDistance    bool          `json:"gps_distance"`
	GPSDistanceKm  float64       `json:"gps_distance_km"`
	Available      bool          `json:"available"`
	Source         string        `json:"source"`
	LocationActive bool          `json:"location_active"`
	RunID          string        `json:"run_id,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Elapsed returns ElapsedMs as a duration.
func (s Snapshot) Elapsed() time.Duration {
	return time.Duration(s.ElapsedMs) * time.Millisecond
}

// session is the mutable state owned by the Controller.
type session struct {
	running    bool
	steps      int
	distanceKm float64
	elapsed    time.Duration
	startedAt  time.Time
	baseline   *float64
	runID      string
}
