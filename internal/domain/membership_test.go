package domain

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestCalculateEndDate(t *testing.T) {
	start := time.Date(2024, 1, 31, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		days int
		want time.Time
	}{
		{"thirty days crosses february", 30, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"leap year", 365, time.Date(2025, 1, 30, 10, 30, 0, 0, time.UTC)},
		{"single day", 1, time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateEndDate(start, tt.days); !got.Equal(tt.want) {
				t.Errorf("CalculateEndDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateEndDateAddsCalendarDays(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := time.Unix(rapid.Int64Range(0, 4102444800).Draw(t, "start"), 0).UTC()
		days := rapid.IntRange(1, 3650).Draw(t, "days")

		end := CalculateEndDate(start, days)

		if got := end.Sub(start); got != time.Duration(days)*24*time.Hour {
			t.Fatalf("window = %v, want %d days", got, days)
		}
		if end.Hour() != start.Hour() || end.Minute() != start.Minute() {
			t.Fatalf("time of day changed: %v -> %v", start, end)
		}
	})
}
