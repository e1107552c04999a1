package schedule

import "time"

// NextWateringDate returns from advanced by the interval parsed out of
// frequency. Only the calendar date moves; the wall-clock time of day and the
// location of from are kept, so month and year boundaries roll over correctly.
func NextWateringDate(frequency string, from time.Time) time.Time {
	return from.AddDate(0, 0, ParseIntervalDays(frequency))
}
