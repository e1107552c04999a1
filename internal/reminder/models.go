package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind describes when a reminder fires relative to a plant's next watering date.
type Kind string

const (
	KindDayBefore Kind = "day-before"
	KindDayOf     Kind = "day-of"
	KindOverdue   Kind = "overdue"
)

// Kinds lists every reminder kind in firing order.
var Kinds = []Kind{KindDayBefore, KindDayOf, KindOverdue}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int `json:"hour" validate:"min=0,max=23"`
	Minute int `json:"minute" validate:"min=0,max=59"`
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// Valid reports whether the hour is 0-23 and the minute 0-59.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// On returns the instant at this time of day on the calendar date of day,
// in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Preferences are the user's global reminder settings.
type Preferences struct {
	EnableNotifications      bool      `json:"enableNotifications"`
	EnableDayBeforeReminders bool      `json:"enableDayBeforeReminders"`
	EnableOverdueReminders   bool      `json:"enableOverdueReminders"`
	ReminderTime             TimeOfDay `json:"reminderTime"`
	DayBeforeTime            TimeOfDay `json:"dayBeforeTime"`
	OverdueTime              TimeOfDay `json:"overdueTime"`
}

// DefaultPreferences enables every reminder kind.
func DefaultPreferences() Preferences {
	return Preferences{
		EnableNotifications:      true,
		EnableDayBeforeReminders: true,
		EnableOverdueReminders:   true,
		ReminderTime:             TimeOfDay{Hour: 9},
		DayBeforeTime:            TimeOfDay{Hour: 18},
		OverdueTime:              TimeOfDay{Hour: 10},
	}
}

// Validate checks every time of day and reports the first bad one, in the
// order reminderTime, dayBeforeTime, overdueTime.
func (p Preferences) Validate() error {
	for _, f := range []struct {
		name string
		t    TimeOfDay
	}{
		{"reminderTime", p.ReminderTime},
		{"dayBeforeTime", p.DayBeforeTime},
		{"overdueTime", p.OverdueTime},
	} {
		if !f.t.Valid() {
			return fmt.Errorf("%s %s out of range", f.name, f.t)
		}
	}
	return nil
}

// Payload is stored alongside a scheduled notification and read back when
// listing, which is how reminders are matched to plants.
type Payload struct {
	PlantID          string    `json:"plantId"`
	PlantName        string    `json:"plantName"`
	Kind             Kind      `json:"kind"`
	NextWateringDate time.Time `json:"nextWateringDate"`
}

// Content is what the user sees plus the payload.
type Content struct {
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Payload Payload `json:"payload"`
}

// Notification is a scheduled reminder as held by the notification platform.
type Notification struct {
	ID     string    `json:"id"`
	FireAt time.Time `json:"fireAt"`
	Content
}
