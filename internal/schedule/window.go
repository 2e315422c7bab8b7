// internal/schedule/window.go
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
)

const dateLayout = "2006-01-02"

// InWindow reports whether instant falls inside one of the campaign's calling
// windows, evaluated on the campaign's local wall clock. The instant is
// converted into tz before any comparison, so two time.Time values naming the
// same instant in different zones always produce the same answer. Windows are
// single-day only (no overnight wraparound) and inclusive on both ends.
func InWindow(instant time.Time, windows []model.ExecutionWindow, tz string) (bool, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return false, fmt.Errorf("invalid campaign timezone %q: %w", tz, err)
	}

	local := instant.In(loc)
	minutes := local.Hour()*60 + local.Minute()

	for _, w := range windows {
		match, err := dayMatches(local, w.Day)
		if err != nil {
			return false, err
		}
		if !match {
			continue
		}

		start, err := parseClock(w.Start)
		if err != nil {
			return false, err
		}
		end, err := parseClock(w.End)
		if err != nil {
			return false, err
		}

		if minutes >= start && minutes <= end {
			return true, nil
		}
	}
	return false, nil
}

// dayMatches accepts an absolute date ("2026-02-12") or a weekday name
// ("monday", case-insensitive).
func dayMatches(local time.Time, day string) (bool, error) {
	day = strings.TrimSpace(day)
	if d, err := time.Parse(dateLayout, day); err == nil {
		return local.Format(dateLayout) == d.Format(dateLayout), nil
	}
	weekday := strings.ToLower(day)
	if _, ok := weekdayNames[weekday]; !ok {
		return false, fmt.Errorf("invalid window day %q", day)
	}
	return strings.ToLower(local.Weekday().String()) == weekday, nil
}

var weekdayNames = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid window time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
