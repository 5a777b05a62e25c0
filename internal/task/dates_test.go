package task

import (
	"testing"
	"time"
)

func TestParseFlexibleDate(t *testing.T) {
	t.Parallel()

	ref := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"tomorrow", "tomorrow", time.Date(2024, 1, 2, 9, 0, 0, 0, time.Local), true},
		{"today", "today", time.Date(2024, 1, 1, 23, 59, 0, 0, time.Local), true},
		{"relative hours", "in 2h", time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local), true},
		{"relative minutes", "in 30m", time.Date(2024, 1, 1, 10, 30, 0, 0, time.Local), true},
		{"relative days", "in 3d", time.Date(2024, 1, 4, 10, 0, 0, 0, time.Local), true},
		{"relative no space before unit", "in 2 h", time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local), true},
		{"uppercase keyword", "TOMORROW", time.Date(2024, 1, 2, 9, 0, 0, 0, time.Local), true},
		{"absolute with time", "2024-03-05 14:30", time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local), true},
		{"absolute date only", "2024-03-05", time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local), true},
		{"garbage", "not a date", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"bad unit", "in 5w", time.Time{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseFlexibleDate(tc.in, ref)
			if ok != tc.ok {
				t.Fatalf("ParseFlexibleDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Fatalf("ParseFlexibleDate(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseFlexibleDateIsDeterministic(t *testing.T) {
	t.Parallel()

	ref := time.Date(2030, 6, 15, 8, 45, 0, 0, time.Local)
	first, ok := ParseFlexibleDate("in 90m", ref)
	if !ok {
		t.Fatal("parse failed")
	}
	second, _ := ParseFlexibleDate("in 90m", ref)
	if !first.Equal(second) {
		t.Fatalf("same input and reference produced %v then %v", first, second)
	}
}
