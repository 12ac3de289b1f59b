package models

import (
	"testing"
	"time"
)

func TestFormatOrderNumber(t *testing.T) {
	day := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		sequence int
		want     string
	}{
		{1, "ORD20250307-0001"},
		{42, "ORD20250307-0042"},
		{9999, "ORD20250307-9999"},
		{10000, "ORD20250307-10000"},
	}
	for _, c := range cases {
		if got := formatOrderNumber(day, c.sequence); got != c.want {
			t.Errorf("formatOrderNumber(%d) = %q, want %q", c.sequence, got, c.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusInKitchen, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusServed, false},
		{OrderStatusPending, OrderStatusPaid, false},
		{OrderStatusInKitchen, OrderStatusServed, true},
		{OrderStatusInKitchen, OrderStatusCancelled, true},
		{OrderStatusInKitchen, OrderStatusPaid, false},
		{OrderStatusServed, OrderStatusPaid, true},
		{OrderStatusServed, OrderStatusCancelled, false},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}
	for _, c := range cases {
		if got := canTransition(c.from, c.to); got != c.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
