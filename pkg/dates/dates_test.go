package dates

import (
	"testing"
	"time"
)

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	in := time.Date(2026, time.March, 9, 23, 30, 0, 0, loc)

	got := Day(in)
	want := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Day() = %v, want %v", got, want)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, time.February, 27, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		b    time.Time
		want int
	}{
		{"same day", a, 0},
		{"across month end", time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), 3},
		{"backwards", time.Date(2026, time.February, 25, 0, 0, 0, 0, time.UTC), -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(a, tt.b); got != tt.want {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("2026-07-04")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if Format(got) != "2026-07-04" {
		t.Errorf("round trip = %s", Format(got))
	}

	for _, bad := range []string{"", "07/04/2026", "2026-13-01", "2026-07-04T00:00:00Z"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestToday_FixedClock(t *testing.T) {
	clock := FixedClock(time.Date(2026, time.October, 19, 17, 45, 0, 0, time.UTC))
	want := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	if got := Today(clock); !got.Equal(want) {
		t.Errorf("Today() = %v, want %v", got, want)
	}
}
