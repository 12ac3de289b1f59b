package models

import (
	"context"
	"fmt"
	"time"
)

// parseStartOfDay parses a "HH:MM" cutoff into hour and minute.
func parseStartOfDay(s string) (time.Duration, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid start-of-day time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid start-of-day time %q", s)
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// BusinessDayFor returns the calendar date (midnight in loc) that owns the
// instant t under the start-of-day cutoff. An instant before the cutoff
// belongs to the previous date; at the cutoff exactly, the new day begins.
// Unparseable cutoffs fall back to DefaultStartOfDayTime.
func BusinessDayFor(t time.Time, startOfDay string, loc *time.Location) time.Time {
	cutoff, err := parseStartOfDay(startOfDay)
	if err != nil {
		cutoff, _ = parseStartOfDay(DefaultStartOfDayTime)
	}

	local := t.In(loc)
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())

	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if sinceMidnight < cutoff {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// BusinessDayWindow returns the half-open instant range [start, end) owned
// by the business day under the start-of-day cutoff: from the cutoff on that
// calendar date to the cutoff on the next.
func BusinessDayWindow(day time.Time, startOfDay string, loc *time.Location) (time.Time, time.Time) {
	cutoff, err := parseStartOfDay(startOfDay)
	if err != nil {
		cutoff, _ = parseStartOfDay(DefaultStartOfDayTime)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).Add(cutoff)
	return start, start.AddDate(0, 0, 1)
}

// businessDaySettings resolves the cutoff and timezone for the calling
// business. The cutoff is re-read on every call, it is a live setting and is
// never cached across operations; only the settings row itself sits behind
// the redis cache, which is invalidated on update.
func businessDaySettings(ctx context.Context) (string, *time.Location, error) {
	startOfDay := DefaultStartOfDayTime
	timezone := ""
	settings, err := GetPosSettings(ctx)
	if err == nil && settings.StartOfDayTime != "" {
		startOfDay = settings.StartOfDayTime
	}

	businessId, _ := businessIdFromContext(ctx)
	if businessId != "" {
		if business, err := GetBusinessById(ctx, businessId); err == nil {
			timezone = business.Timezone
		}
	}
	if timezone == "" {
		timezone = "Asia/Yangon"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", nil, err
	}
	return startOfDay, loc, nil
}

// GetBusinessDay derives the business day for the given instant (or now)
// from the current settings.
func GetBusinessDay(ctx context.Context, at ...time.Time) (time.Time, error) {
	t := time.Now()
	if len(at) > 0 {
		t = at[0]
	}

	startOfDay, loc, err := businessDaySettings(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return BusinessDayFor(t, startOfDay, loc), nil
}

// GetBusinessDayWindow returns the instant range covered by the business day
// under the current settings.
func GetBusinessDayWindow(ctx context.Context, day time.Time) (time.Time, time.Time, error) {
	startOfDay, loc, err := businessDaySettings(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := BusinessDayWindow(day, startOfDay, loc)
	return start, end, nil
}
