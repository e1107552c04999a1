package schedule

import (
	"testing"
	"time"
)

func TestNextWateringDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		frequency string
		from      time.Time
		want      time.Time
	}{
		{
			name:      "weekly",
			frequency: "Weekly",
			from:      time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			want:      time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monthly across february",
			frequency: "Monthly",
			from:      time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
			want:      time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "leap year february",
			frequency: "Every 2 days",
			from:      time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC),
			want:      time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "year rollover keeps time of day",
			frequency: "Every 10 days",
			from:      time.Date(2025, time.December, 28, 15, 45, 10, 0, time.UTC),
			want:      time.Date(2026, time.January, 7, 15, 45, 10, 0, time.UTC),
		},
		{
			name:      "unparseable falls back to a week",
			frequency: "when dry",
			from:      time.Date(2025, time.June, 27, 8, 0, 0, 0, time.UTC),
			want:      time.Date(2025, time.July, 4, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := NextWateringDate(tc.frequency, tc.from)
			if !got.Equal(tc.want) {
				t.Fatalf("NextWateringDate(%q, %s) = %s, want %s", tc.frequency, tc.from, got, tc.want)
			}
			if again := NextWateringDate(tc.frequency, tc.from); !again.Equal(got) {
				t.Fatalf("NextWateringDate is not deterministic: %s then %s", got, again)
			}
		})
	}
}

func TestNextWateringDate_KeepsWallClockAcrossDST(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	from := time.Date(2025, time.March, 29, 9, 0, 0, 0, loc)
	got := NextWateringDate("Daily", from)

	if got.Hour() != 9 || got.Day() != 30 {
		t.Fatalf("NextWateringDate across DST = %s, want 2025-03-30 09:00 local", got)
	}
}
