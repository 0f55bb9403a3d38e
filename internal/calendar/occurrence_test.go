package calendar

import (
	"testing"
	"time"

	"github.com/finchwallet/finch/internal/model"
)

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		frequency model.Frequency
		current   time.Time
		want      time.Time
	}{
		{
			name:      "daily",
			frequency: model.FrequencyDaily,
			current:   Date(2024, time.June, 15),
			want:      Date(2024, time.June, 16),
		},
		{
			name:      "daily across month boundary",
			frequency: model.FrequencyDaily,
			current:   Date(2024, time.June, 30),
			want:      Date(2024, time.July, 1),
		},
		{
			name:      "weekly",
			frequency: model.FrequencyWeekly,
			current:   Date(2024, time.June, 28),
			want:      Date(2024, time.July, 5),
		},
		{
			name:      "weekly across year boundary",
			frequency: model.FrequencyWeekly,
			current:   Date(2024, time.December, 30),
			want:      Date(2025, time.January, 6),
		},
		{
			name:      "monthly start lands on day 1",
			frequency: model.FrequencyMonthlyStart,
			current:   Date(2024, time.June, 1),
			want:      Date(2024, time.July, 1),
		},
		{
			name:      "monthly start from mid-month still lands on day 1",
			frequency: model.FrequencyMonthlyStart,
			current:   Date(2024, time.June, 17),
			want:      Date(2024, time.July, 1),
		},
		{
			name:      "monthly end into leap february",
			frequency: model.FrequencyMonthlyEnd,
			current:   Date(2024, time.January, 31),
			want:      Date(2024, time.February, 29),
		},
		{
			name:      "monthly end into non-leap february",
			frequency: model.FrequencyMonthlyEnd,
			current:   Date(2023, time.January, 31),
			want:      Date(2023, time.February, 28),
		},
		{
			name:      "monthly end from short month to long month",
			frequency: model.FrequencyMonthlyEnd,
			current:   Date(2024, time.February, 29),
			want:      Date(2024, time.March, 31),
		},
		{
			name:      "monthly end from 31-day to 30-day month",
			frequency: model.FrequencyMonthlyEnd,
			current:   Date(2024, time.March, 31),
			want:      Date(2024, time.April, 30),
		},
		{
			name:      "monthly end across year boundary",
			frequency: model.FrequencyMonthlyEnd,
			current:   Date(2024, time.December, 31),
			want:      Date(2025, time.January, 31),
		},
		{
			name:      "yearly",
			frequency: model.FrequencyYearly,
			current:   Date(2024, time.June, 15),
			want:      Date(2025, time.June, 15),
		},
		{
			name:      "yearly from leap day normalizes",
			frequency: model.FrequencyYearly,
			current:   Date(2024, time.February, 29),
			want:      Date(2025, time.March, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.current, tt.frequency)
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence(%s, %s) = %s, want %s",
					DateStamp(tt.current), tt.frequency, DateStamp(got), DateStamp(tt.want))
			}
		})
	}
}

// A MONTHLY_END rule anchored on 2024-01-31 must walk the true last day of
// every subsequent month.
func TestNextOccurrence_MonthEndChain(t *testing.T) {
	want := []string{
		"2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31",
		"2024-06-30", "2024-07-31", "2024-08-31", "2024-09-30",
		"2024-10-31", "2024-11-30", "2024-12-31", "2025-01-31",
	}

	current := Date(2024, time.January, 31)
	for i, expected := range want {
		current = NextOccurrence(current, model.FrequencyMonthlyEnd)
		if got := DateStamp(current); got != expected {
			t.Fatalf("step %d: got %s, want %s", i+1, got, expected)
		}
	}
}

func TestNextOccurrence_AlwaysAdvances(t *testing.T) {
	frequencies := []model.Frequency{
		model.FrequencyDaily,
		model.FrequencyWeekly,
		model.FrequencyMonthlyStart,
		model.FrequencyMonthlyEnd,
		model.FrequencyYearly,
	}

	for _, frequency := range frequencies {
		current := Date(2020, time.January, 31)
		for i := 0; i < 200; i++ {
			next := NextOccurrence(current, frequency)
			if !next.After(current) {
				t.Fatalf("%s: occurrence %s did not advance past %s",
					frequency, DateStamp(next), DateStamp(current))
			}
			current = next
		}
	}
}
