package reminder_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/alexnthnz/plant-care/internal/reminder"
	"github.com/alexnthnz/plant-care/internal/reminder/remindertest"
)

var march1 = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func newPlanner(t *testing.T, clock *remindertest.Clock, platform reminder.Platform) *reminder.Planner {
	t.Helper()
	logger := zaptest.NewLogger(t)
	gateway := reminder.NewGateway(platform, clock.Now, nil, logger)
	return reminder.NewPlanner(gateway, clock.Now, logger)
}

func TestPlanner_PlanDefaultPreferences(t *testing.T) {
	t.Parallel()

	clock := remindertest.NewClock(march1)
	planner := newPlanner(t, clock, remindertest.NewPlatform())
	next := time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC)

	got := planner.Plan(reminder.Target{PlantID: "p1", PlantName: "Fern", NextWateringDate: next}, reminder.DefaultPreferences(), march1)

	want := []struct {
		kind   reminder.Kind
		fireAt time.Time
	}{
		{reminder.KindDayBefore, time.Date(2025, time.March, 7, 18, 0, 0, 0, time.UTC)},
		{reminder.KindDayOf, time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC)},
		{reminder.KindOverdue, time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC)},
	}
	if len(got) != len(want) {
		t.Fatalf("Plan returned %d requests, want %d", len(got), len(want))
	}
	seen := map[string]bool{}
	for i, w := range want {
		r := got[i]
		if r.Kind != w.kind || !r.FireAt.Equal(w.fireAt) {
			t.Errorf("request %d = (%s, %s), want (%s, %s)", i, r.Kind, r.FireAt, w.kind, w.fireAt)
		}
		if r.Content.Payload.PlantID != "p1" || r.Content.Payload.Kind != w.kind {
			t.Errorf("request %d payload = %+v", i, r.Content.Payload)
		}
		if !r.Content.Payload.NextWateringDate.Equal(next) {
			t.Errorf("request %d payload next date = %s, want %s", i, r.Content.Payload.NextWateringDate, next)
		}
		if !strings.Contains(r.Content.Body, "Fern") {
			t.Errorf("request %d body %q does not name the plant", i, r.Content.Body)
		}
		if seen[r.ID] {
			t.Errorf("duplicate reminder id %q", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestPlanner_PlanGating(t *testing.T) {
	t.Parallel()

	clock := remindertest.NewClock(march1)
	planner := newPlanner(t, clock, remindertest.NewPlatform())
	target := reminder.Target{PlantID: "p1", PlantName: "Fern", NextWateringDate: march1.AddDate(0, 0, 7)}

	cases := []struct {
		name   string
		mutate func(*reminder.Preferences)
		want   []reminder.Kind
	}{
		{
			name: "master switch off",
			mutate: func(p *reminder.Preferences) {
				p.EnableNotifications = false
			},
			want: nil,
		},
		{
			name: "day before off",
			mutate: func(p *reminder.Preferences) {
				p.EnableDayBeforeReminders = false
			},
			want: []reminder.Kind{reminder.KindDayOf, reminder.KindOverdue},
		},
		{
			name: "overdue off",
			mutate: func(p *reminder.Preferences) {
				p.EnableOverdueReminders = false
			},
			want: []reminder.Kind{reminder.KindDayBefore, reminder.KindDayOf},
		},
		{
			name: "only day of",
			mutate: func(p *reminder.Preferences) {
				p.EnableDayBeforeReminders = false
				p.EnableOverdueReminders = false
			},
			want: []reminder.Kind{reminder.KindDayOf},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			prefs := reminder.DefaultPreferences()
			tc.mutate(&prefs)

			got := planner.Plan(target, prefs, march1)
			if len(got) != len(tc.want) {
				t.Fatalf("Plan returned %d requests, want %d", len(got), len(tc.want))
			}
			for i, kind := range tc.want {
				if got[i].Kind != kind {
					t.Errorf("request %d kind = %s, want %s", i, got[i].Kind, kind)
				}
			}
		})
	}
}

func TestPlanner_PlanSkipsPastTimes(t *testing.T) {
	t.Parallel()

	clock := remindertest.NewClock(march1)
	planner := newPlanner(t, clock, remindertest.NewPlatform())
	prefs := reminder.DefaultPreferences()

	// Due today at 09:00, now 12:00: day-before and day-of already passed.
	now := time.Date(2025, time.March, 8, 12, 0, 0, 0, time.UTC)
	got := planner.Plan(reminder.Target{PlantID: "p1", NextWateringDate: time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC)}, prefs, now)
	if len(got) != 1 || got[0].Kind != reminder.KindOverdue {
		t.Fatalf("Plan = %+v, want only the overdue reminder", got)
	}

	// Long overdue: nothing left to fire.
	got = planner.Plan(reminder.Target{PlantID: "p1", NextWateringDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)}, prefs, now)
	if len(got) != 0 {
		t.Fatalf("Plan for a past date = %+v, want none", got)
	}

	// Fire time equal to now is not in the future.
	exact := time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC)
	prefs.EnableDayBeforeReminders = false
	prefs.EnableOverdueReminders = false
	got = planner.Plan(reminder.Target{PlantID: "p1", NextWateringDate: exact}, prefs, exact)
	if len(got) != 0 {
		t.Fatalf("Plan with fire time == now = %+v, want none", got)
	}
}

func TestPlanner_PlanUsesTargetLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*60*60)
	clock := remindertest.NewClock(march1)
	planner := newPlanner(t, clock, remindertest.NewPlatform())
	prefs := reminder.DefaultPreferences()
	prefs.EnableDayBeforeReminders = false
	prefs.EnableOverdueReminders = false

	got := planner.Plan(reminder.Target{PlantID: "p1", NextWateringDate: time.Date(2025, time.March, 8, 0, 0, 0, 0, loc)}, prefs, march1)
	if len(got) != 1 {
		t.Fatalf("Plan returned %d requests, want 1", len(got))
	}
	want := time.Date(2025, time.March, 8, 9, 0, 0, 0, loc)
	if !got[0].FireAt.Equal(want) {
		t.Fatalf("day-of fire time = %s, want %s", got[0].FireAt, want)
	}
}

func TestPlanner_ScheduleSubmitsToGateway(t *testing.T) {
	t.Parallel()

	clock := remindertest.NewClock(march1)
	platform := remindertest.NewPlatform()
	planner := newPlanner(t, clock, platform)

	ids := planner.Schedule(context.Background(), reminder.Target{PlantID: "p1", PlantName: "Fern", NextWateringDate: march1.AddDate(0, 0, 7)}, reminder.DefaultPreferences())
	if len(ids) != 3 {
		t.Fatalf("Schedule returned %d ids, want 3", len(ids))
	}
	if got := len(platform.PendingFor("p1")); got != 3 {
		t.Fatalf("platform holds %d reminders for p1, want 3", got)
	}
}

func TestPlanner_ScheduleSwallowsPlatformFailure(t *testing.T) {
	t.Parallel()

	clock := remindertest.NewClock(march1)
	platform := remindertest.NewPlatform()
	platform.ScheduleErr = errors.New("permission denied")
	planner := newPlanner(t, clock, platform)

	ids := planner.Schedule(context.Background(), reminder.Target{PlantID: "p1", NextWateringDate: march1.AddDate(0, 0, 7)}, reminder.DefaultPreferences())
	if len(ids) != 0 {
		t.Fatalf("Schedule returned %v, want no ids", ids)
	}
}
