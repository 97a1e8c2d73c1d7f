package hours

import (
	"fmt"
	"time"
)

// displayLocation is the timezone used for local calendar bucketing and
// displayed timestamps. Set once at startup from the configuration.
var displayLocation *time.Location = time.UTC

func SetDisplayTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %v", timezone, err)
	}
	displayLocation = loc
	return nil
}

func DisplayLocation() *time.Location {
	return displayLocation
}

// FromIso parses an RFC 3339 timestamp, returning the zero time when the
// value is malformed so the caller can drop the frame.
func FromIso(str string) time.Time {
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func FormatTimeInDisplayTimezone(t time.Time) string {
	return t.In(displayLocation).Format("2006-01-02 15:04:05")
}
