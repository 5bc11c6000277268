package timeutil

import (
	"testing"
	"time"
)

func TestDayStampUsesISTCalendar(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"midday UTC", time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), "05032024"},
		// 19:00 UTC is already 00:30 the next day in IST.
		{"late UTC rolls over", time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC), "06032024"},
		{"year end", time.Date(2024, 12, 31, 18, 29, 0, 0, time.UTC), "31122024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayStamp(tt.in); got != tt.want {
				t.Errorf("DayStamp() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	if err != nil {
		t.Fatal(err)
	}
	if !StartOfDay(d.Add(5 * time.Hour)).Equal(d) {
		t.Error("StartOfDay mismatch")
	}
	end := EndOfDay(d)
	if DayStamp(end) != "05032024" || DayStamp(end.Add(time.Nanosecond)) != "06032024" {
		t.Errorf("EndOfDay = %v", end)
	}
}
