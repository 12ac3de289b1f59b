package models

import (
	"testing"
	"time"
)

func yangon(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Yangon")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestBusinessDayForBeforeCutoff(t *testing.T) {
	loc := yangon(t)
	at := time.Date(2026, 3, 10, 5, 59, 59, 0, loc)
	got := BusinessDayFor(at, "06:00", loc)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBusinessDayForAtCutoff(t *testing.T) {
	loc := yangon(t)
	at := time.Date(2026, 3, 10, 6, 0, 0, 0, loc)
	got := BusinessDayFor(at, "06:00", loc)
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBusinessDayForMidnight(t *testing.T) {
	loc := yangon(t)
	at := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	got := BusinessDayFor(at, "06:00", loc)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBusinessDayForMidnightCutoff(t *testing.T) {
	loc := yangon(t)
	at := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	got := BusinessDayFor(at, "00:00", loc)
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBusinessDayForConvertsTimezone(t *testing.T) {
	loc := yangon(t)
	// 22:00 UTC on the 9th is 04:30 on the 10th in Yangon, still before the
	// 06:00 cutoff, so the business day is the 9th.
	at := time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC)
	got := BusinessDayFor(at, "06:00", loc)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBusinessDayForBadCutoffFallsBack(t *testing.T) {
	loc := yangon(t)
	at := time.Date(2026, 3, 10, 5, 0, 0, 0, loc)
	got := BusinessDayFor(at, "not-a-time", loc)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBusinessDayWindow(t *testing.T) {
	loc := yangon(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	start, end := BusinessDayWindow(day, "06:00", loc)
	wantStart := time.Date(2026, 3, 10, 6, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 3, 11, 6, 0, 0, 0, loc)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("got [%v, %v), want [%v, %v)", start, end, wantStart, wantEnd)
	}

	// Every instant inside the window must map back to the same day.
	for _, at := range []time.Time{start, start.Add(time.Hour), end.Add(-time.Second)} {
		if got := BusinessDayFor(at, "06:00", loc); !got.Equal(day) {
			t.Errorf("BusinessDayFor(%v) = %v, want %v", at, got, day)
		}
	}
	if got := BusinessDayFor(end, "06:00", loc); got.Equal(day) {
		t.Errorf("window end %v must belong to the next day", end)
	}
}

func TestBusinessDayWindowMidnightCutoff(t *testing.T) {
	loc := yangon(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	start, end := BusinessDayWindow(day, "00:00", loc)
	if !start.Equal(day) || !end.Equal(day.AddDate(0, 0, 1)) {
		t.Errorf("got [%v, %v), want the calendar date", start, end)
	}
}

func TestParseStartOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"06:00", 6 * time.Hour, false},
		{"00:00", 0, false},
		{"23:59", 23*time.Hour + 59*time.Minute, false},
		{"9:30", 9*time.Hour + 30*time.Minute, false},
		{"24:00", 0, true},
		{"06:60", 0, true},
		{"", 0, true},
		{"six", 0, true},
	}
	for _, tc := range cases {
		got, err := parseStartOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseStartOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseStartOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseStartOfDay(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
