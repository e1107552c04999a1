package collection

import (
	"time"

	"github.com/alexnthnz/plant-care/internal/reminder"
)

// CareDetails is the care information attached to a plant. Only
// WateringFrequency is interpreted; the rest is carried for display.
type CareDetails struct {
	WateringFrequency string `json:"wateringFrequency"`
	WateringAmount    string `json:"wateringAmount,omitempty"`
	Sunlight          string `json:"sunlight,omitempty"`
	Soil              string `json:"soil,omitempty"`
	Temperature       string `json:"temperature,omitempty"`
	Humidity          string `json:"humidity,omitempty"`
	Fertilizer        string `json:"fertilizer,omitempty"`
}

// Plant is a plant in the user's collection.
type Plant struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	ScientificName   string      `json:"scientificName,omitempty"`
	ImageURI         string      `json:"imageUri,omitempty"`
	Location         string      `json:"location,omitempty"`
	Notes            string      `json:"notes,omitempty"`
	CareDetails      CareDetails `json:"careDetails"`
	CreatedAt        time.Time   `json:"createdAt"`
	LastWatered      *time.Time  `json:"lastWatered,omitempty"`
	NextWateringDate *time.Time  `json:"nextWateringDate,omitempty"`
}

func (p Plant) clone() Plant {
	if p.LastWatered != nil {
		t := *p.LastWatered
		p.LastWatered = &t
	}
	if p.NextWateringDate != nil {
		t := *p.NextWateringDate
		p.NextWateringDate = &t
	}
	return p
}

// NewPlant is the input for adding a plant.
type NewPlant struct {
	Name           string
	ScientificName string
	ImageURI       string
	Location       string
	Notes          string
	CareDetails    CareDetails
}

// PlantUpdate holds the fields to change on a plant. Nil fields are left
// alone; a non-nil CareDetails replaces the whole bag.
type PlantUpdate struct {
	Name           *string
	ScientificName *string
	ImageURI       *string
	Location       *string
	Notes          *string
	CareDetails    *CareDetails
}

// PreferencesUpdate is a partial update of the notification preferences.
type PreferencesUpdate struct {
	EnableNotifications      *bool
	EnableDayBeforeReminders *bool
	EnableOverdueReminders   *bool
	ReminderTime             *reminder.TimeOfDay
	DayBeforeTime            *reminder.TimeOfDay
	OverdueTime              *reminder.TimeOfDay
}

func (u PreferencesUpdate) apply(p reminder.Preferences) reminder.Preferences {
	if u.EnableNotifications != nil {
		p.EnableNotifications = *u.EnableNotifications
	}
	if u.EnableDayBeforeReminders != nil {
		p.EnableDayBeforeReminders = *u.EnableDayBeforeReminders
	}
	if u.EnableOverdueReminders != nil {
		p.EnableOverdueReminders = *u.EnableOverdueReminders
	}
	if u.ReminderTime != nil {
		p.ReminderTime = *u.ReminderTime
	}
	if u.DayBeforeTime != nil {
		p.DayBeforeTime = *u.DayBeforeTime
	}
	if u.OverdueTime != nil {
		p.OverdueTime = *u.OverdueTime
	}
	return p
}

// State is everything that is persisted, in its persisted shape.
type State struct {
	MyPlants                []Plant              `json:"myPlants"`
	NotificationPreferences reminder.Preferences `json:"notificationPreferences"`
}
