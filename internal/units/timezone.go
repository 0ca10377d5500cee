package units

import (
	"fmt"
	"time"
)

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ConvertTime converts a time to the specified timezone. An empty name or
// "UTC" returns the time in UTC.
func ConvertTime(t time.Time, targetTimezone string) (time.Time, error) {
	if targetTimezone == "" || targetTimezone == "UTC" {
		return t.UTC(), nil
	}

	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		return t, fmt.Errorf("failed to load timezone %s: %w", targetTimezone, err)
	}
	return t.In(loc), nil
}

// DayLabeler returns a function giving the short weekday name ("Mon") of a
// time in the named timezone. Activity records are keyed by this label.
func DayLabeler(timezone string) (func(time.Time) string, error) {
	if timezone != "" && timezone != "UTC" && !IsTimezoneValid(timezone) {
		return nil, fmt.Errorf("unknown timezone %q", timezone)
	}
	return func(t time.Time) string {
		local, err := ConvertTime(t, timezone)
		if err != nil {
			local = t
		}
		return local.Format("Mon")
	}, nil
}
