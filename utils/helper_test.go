package utils

import (
	"testing"
	"time"
)

func TestRetryBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 25; attempt++ {
		base := time.Duration(attempt+1) * 20 * time.Millisecond
		for i := 0; i < 10; i++ {
			d := RetryBackoff(attempt)
			if d < base {
				t.Fatalf("attempt %d: backoff %s below base %s", attempt, d, base)
			}
			if d >= base+20*time.Millisecond {
				t.Fatalf("attempt %d: backoff %s exceeds jitter bound", attempt, d)
			}
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNilIfEmpty(t *testing.T) {
	if NilIfEmpty("") != nil {
		t.Error("empty string should map to nil")
	}
	if p := NilIfEmpty("x"); p == nil || *p != "x" {
		t.Error("non-empty string should round-trip")
	}
	if NilIfEmpty(0) != nil {
		t.Error("zero int should map to nil")
	}
}

func TestDereferencePtr(t *testing.T) {
	if DereferencePtr((*bool)(nil)) {
		t.Error("nil *bool should dereference to false")
	}
	if !DereferencePtr(NewTrue()) {
		t.Error("non-nil *bool should dereference to its value")
	}
	if got := DereferencePtr((*int)(nil), 7); got != 7 {
		t.Errorf("got %d, want fallback 7", got)
	}
}

func TestConvertToDate(t *testing.T) {
	// 19:00 UTC is already past midnight of the next day in Asia/Yangon
	at := time.Date(2025, time.June, 1, 19, 0, 0, 0, time.UTC)
	got, err := ConvertToDate(at, "")
	if err != nil {
		t.Fatalf("ConvertToDate: %v", err)
	}
	if got.Year() != 2025 || got.Month() != time.June || got.Day() != 2 {
		t.Errorf("got %s, want 2025-06-02 in Asia/Yangon", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("expected midnight, got %s", got)
	}
}
