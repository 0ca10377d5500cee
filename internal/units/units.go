// Package units provides distance units and the display formats used for
// session summaries and saved activities.
package units

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Distance unit constants
const (
	KM = "km"
	MI = "mi"
	M  = "m"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{KM, MI, M}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertDistance converts a distance from kilometres to the target units.
// Sessions and stored activities carry kilometres.
func ConvertDistance(km float64, targetUnits string) float64 {
	switch targetUnits {
	case MI:
		return km * 0.621371
	case M:
		return km * 1000
	default:
		return km
	}
}

// FormatDistance renders kilometres with two decimals, e.g. "3.40 km".
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.2f km", km)
}

// FormatElapsed renders a duration as "{h}h {mm}m" when it spans an hour,
// "{m}m {ss}s" when it spans a minute and "{s}s" otherwise.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total / 60) % 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatElapsedMillis is FormatElapsed for millisecond counters.
func FormatElapsedMillis(ms int64) string {
	return FormatElapsed(time.Duration(ms) * time.Millisecond)
}

// ParseActiveMinutes reads an active-time label such as "1h 10m", "45m",
// "5m 07s" or "42s" back into whole minutes. Leftover seconds round to the
// nearest minute. Unparseable labels count as zero.
func ParseActiveMinutes(s string) int {
	var hours, minutes, seconds int
	for _, field := range strings.Fields(strings.ToLower(s)) {
		if len(field) < 2 {
			if n, err := strconv.Atoi(field); err == nil {
				minutes += n
			}
			continue
		}
		n, err := strconv.Atoi(field[:len(field)-1])
		if err != nil || n < 0 {
			continue
		}
		switch field[len(field)-1] {
		case 'h':
			hours += n
		case 'm':
			minutes += n
		case 's':
			seconds += n
		default:
			if whole, err := strconv.Atoi(field); err == nil {
				minutes += whole
			}
		}
	}
	total := hours*60 + minutes + seconds/60
	if seconds%60 >= 30 {
		total++
	}
	return total
}

// FormatMinutes renders a minute total as "{h}h {m}m" or "{m}m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if h := minutes / 60; h > 0 {
		return fmt.Sprintf("%dh %dm", h, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
