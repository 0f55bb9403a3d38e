package calendar

import (
	"time"

	"github.com/finchwallet/finch/internal/model"
)

// NextOccurrence advances a civil occurrence date by one period of the given
// frequency. It is pure and total over valid dates.
//
// MONTHLY_START always lands on day 1 of the next month regardless of the
// current day. MONTHLY_END lands on the true last day of the following month,
// computed as day 0 of the month after next, which handles 28/29/30/31-day
// months through the calendar's own normalization.
func NextOccurrence(current time.Time, frequency model.Frequency) time.Time {
	y, m, d := current.UTC().Date()

	switch frequency {
	case model.FrequencyDaily:
		return Date(y, m, d+1)
	case model.FrequencyWeekly:
		return Date(y, m, d+7)
	case model.FrequencyMonthlyStart:
		return Date(y, m+1, 1)
	case model.FrequencyMonthlyEnd:
		return Date(y, m+2, 0)
	case model.FrequencyYearly:
		return Date(y+1, m, d)
	}
	return current
}
