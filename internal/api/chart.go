package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/fitlife/tracker/internal/activity"
	"github.com/fitlife/tracker/internal/units"
)

// AttachAdminRoutes adds the activity chart to the /debug/ index.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("activities-chart", "Steps and distance per stored activity", s.handleActivitiesChart)
}

// handleActivitiesChart renders steps and distance of every stored activity
// as a bar chart, with the daily goal marked.
func (s *Server) handleActivitiesChart(w http.ResponseWriter, r *http.Request) {
	acts, err := s.repo.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list activities: %v", err), http.StatusInternalServerError)
		return
	}

	page, err := activitiesChart(acts, s.cfg.GetDailyStepGoal())
	if err != nil {
		http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func activitiesChart(acts []activity.Activity, goal int) ([]byte, error) {
	days := make([]string, 0, len(acts))
	steps := make([]opts.BarData, 0, len(acts))
	km := make([]opts.BarData, 0, len(acts))
	for _, a := range acts {
		days = append(days, a.Day)
		steps = append(steps, opts.BarData{Name: a.ActiveTime, Value: a.Steps})
		km = append(km, opts.BarData{Value: a.DistanceKm})
	}
	stats := activity.Summarize(acts, "", goal)

	stepsBar := charts.NewBar()
	stepsBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "FitLife activities", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Steps",
			Subtitle: fmt.Sprintf("%d activities, %d steps, active %s", stats.Count, stats.TotalSteps, stats.TotalActiveTime),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	stepsBar.SetXAxis(days).
		AddSeries("steps", steps,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "goal", YAxis: goal}),
		)

	kmBar := charts.NewBar()
	kmBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Distance (km)", Subtitle: units.FormatDistance(stats.TotalDistanceKm)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	kmBar.SetXAxis(days).
		AddSeries("distance", km,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetPageTitle("FitLife activities").AddCharts(stepsBar, kmBar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
