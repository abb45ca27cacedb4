package utils

import (
	"testing"
	"time"
)

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.December, "winter"},
		{time.January, "winter"},
		{time.February, "winter"},
		{time.March, "spring"},
		{time.May, "spring"},
		{time.June, "summer"},
		{time.August, "summer"},
		{time.September, "autumn"},
		{time.November, "autumn"},
	}
	for _, tt := range tests {
		got := SeasonOf(time.Date(2024, tt.month, 15, 12, 0, 0, 0, time.UTC))
		if got != tt.want {
			t.Errorf("SeasonOf(%v) = %q, want %q", tt.month, got, tt.want)
		}
	}
}

func TestTimeOfDayOf(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{4, "night"},
		{5, "morning"},
		{11, "morning"},
		{12, "afternoon"},
		{16, "afternoon"},
		{17, "evening"},
		{20, "evening"},
		{21, "night"},
		{0, "night"},
	}
	for _, tt := range tests {
		got := TimeOfDayOf(time.Date(2024, time.June, 15, tt.hour, 30, 0, 0, time.UTC))
		if got != tt.want {
			t.Errorf("TimeOfDayOf(hour=%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestTemporalContextMissingTimestamp(t *testing.T) {
	season, timeOfDay := TemporalContext(nil)
	if season != "unknown" || timeOfDay != "unknown" {
		t.Errorf("missing timestamp must yield unknown/unknown, got %q/%q", season, timeOfDay)
	}
}

func TestTemporalContext(t *testing.T) {
	ts := time.Date(2024, time.July, 3, 8, 0, 0, 0, time.Local).Unix()
	season, timeOfDay := TemporalContext(&ts)
	if season != "summer" || timeOfDay != "morning" {
		t.Errorf("got %q/%q, want summer/morning", season, timeOfDay)
	}
}
