package activity

import (
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/fitlife/tracker/internal/units"
)

// Stats summarises stored activities.
type Stats struct {
	Count              int     `json:"count"`
	TotalSteps         int     `json:"total_steps"`
	TotalDistanceKm    float64 `json:"total_distance_km"`
	TotalActiveMinutes int     `json:"total_active_minutes"`
	TotalActiveTime    string  `json:"total_active_time"`
	MeanSteps          float64 `json:"mean_steps"`
	StdDevSteps        float64 `json:"stddev_steps"`
	BestDay            string  `json:"best_day,omitempty"`
	TodaySteps         int     `json:"today_steps"`
	Goal               int     `json:"goal"`
	GoalProgress       float64 `json:"goal_progress"`
	StepsToGo          int     `json:"steps_to_go"`
}

// Summarize computes Stats. today is the day label of the current day;
// records match it on their first three letters, case-insensitively, so
// "Lunes" and "lun" both count for "Lun".
func Summarize(acts []Activity, today string, goal int) Stats {
	s := Stats{Count: len(acts), Goal: goal}
	if len(acts) > 0 {
		steps := make([]float64, len(acts))
		best := -1
		for i, a := range acts {
			steps[i] = float64(a.Steps)
			s.TotalSteps += a.Steps
			s.TotalDistanceKm += a.DistanceKm
			s.TotalActiveMinutes += units.ParseActiveMinutes(a.ActiveTime)
			if a.Steps > best {
				best = a.Steps
				s.BestDay = a.Day
			}
			if today != "" && dayKey(a.Day) == dayKey(today) {
				s.TodaySteps += a.Steps
			}
		}
		s.MeanSteps, s.StdDevSteps = stat.MeanStdDev(steps, nil)
		if len(acts) == 1 {
			s.StdDevSteps = 0
		}
	}
	s.TotalActiveTime = units.FormatMinutes(s.TotalActiveMinutes)

	if goal > 0 {
		s.GoalProgress = float64(s.TodaySteps) / float64(goal)
		if s.GoalProgress > 1 {
			s.GoalProgress = 1
		}
		if s.TodaySteps < goal {
			s.StepsToGo = goal - s.TodaySteps
		}
	}
	return s
}

func dayKey(day string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(day)))
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}
