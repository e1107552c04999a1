package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexnthnz/plant-care/internal/monitoring"
	"github.com/alexnthnz/plant-care/internal/reminder"
	"github.com/alexnthnz/plant-care/internal/schedule"
)

var (
	// ErrPlantNotFound is returned by mutators given an unknown id. It only
	// exists so the REST layer can answer 404: the collection, the saved
	// state and the reminders are left exactly as they were.
	ErrPlantNotFound = errors.New("plant not found")
	// ErrInvalidPlant is returned when a plant would have no name.
	ErrInvalidPlant = errors.New("invalid plant")
	// ErrInvalidPreferences is returned when a preference time is out of range.
	ErrInvalidPreferences = errors.New("invalid notification preferences")
)

// StoreConfig holds the collaborators of a Store.
type StoreConfig struct {
	Repository         Repository
	Planner            *reminder.Planner
	Gateway            *reminder.Gateway
	Executor           Executor
	DefaultPreferences reminder.Preferences
	Now                func() time.Time
	Metrics            *monitoring.Metrics
	Logger             *zap.Logger
}

// Store is the user's plant collection and notification preferences.
//
// Mutators update state and persist it synchronously, then hand reminder
// cancellation and scheduling to the Executor. Reminder failures never fail a
// mutation. Background work re-reads the plant when it runs, so the latest
// mutation's watering date is the one that gets scheduled.
type Store struct {
	mu     sync.RWMutex
	plants []Plant
	prefs  reminder.Preferences

	persistMu sync.Mutex

	repo     Repository
	planner  *reminder.Planner
	gateway  *reminder.Gateway
	executor Executor
	now      func() time.Time
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewStore creates an empty store. Call Load to restore saved state.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Repository == nil {
		cfg.Repository = NewMemoryRepository()
	}
	if cfg.Executor == nil {
		cfg.Executor = SyncExecutor{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Store{
		prefs:    cfg.DefaultPreferences,
		repo:     cfg.Repository,
		planner:  cfg.Planner,
		gateway:  cfg.Gateway,
		executor: cfg.Executor,
		now:      cfg.Now,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// Load replaces in-memory state with the repository's saved state. When
// nothing is saved the store keeps its defaults.
func (s *Store) Load(ctx context.Context) error {
	state, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load plant collection: %w", err)
	}
	if state == nil {
		s.logger.Info("No saved plant collection, starting empty")
		return nil
	}
	if err := state.NotificationPreferences.Validate(); err != nil {
		return fmt.Errorf("saved preferences: %w", err)
	}

	// Decoded times carry a fixed offset; reminders are built on the local
	// wall clock, which must follow daylight saving changes.
	s.mu.Lock()
	s.plants = make([]Plant, 0, len(state.MyPlants))
	for _, p := range state.MyPlants {
		s.plants = append(s.plants, s.localize(p.clone()))
	}
	s.prefs = state.NotificationPreferences
	count := len(s.plants)
	s.mu.Unlock()

	s.metrics.SetPlantsTracked(count)
	s.logger.Info("Loaded plant collection", zap.Int("plants", count))
	return nil
}

// Plants returns a copy of the collection in insertion order.
func (s *Store) Plants() []Plant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Plant, 0, len(s.plants))
	for _, p := range s.plants {
		out = append(out, p.clone())
	}
	return out
}

// Plant returns the plant with id.
func (s *Store) Plant(id string) (Plant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.plants[i].clone(), true
	}
	return Plant{}, false
}

// PlantsDueBy returns the plants whose next watering date is at or before t,
// soonest first.
func (s *Store) PlantsDueBy(t time.Time) []Plant {
	var due []Plant
	for _, p := range s.Plants() {
		if p.NextWateringDate != nil && !p.NextWateringDate.After(t) {
			due = append(due, p)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextWateringDate.Before(*due[j].NextWateringDate)
	})
	return due
}

// Preferences returns the current notification preferences.
func (s *Store) Preferences() reminder.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// AddPlant adds a plant due for watering one interval from now and schedules
// its first reminders.
func (s *Store) AddPlant(ctx context.Context, in NewPlant) (Plant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Plant{}, fmt.Errorf("%w: name is required", ErrInvalidPlant)
	}

	now := s.now()
	next := schedule.NextWateringDate(in.CareDetails.WateringFrequency, now)
	plant := Plant{
		ID:               uuid.NewString(),
		Name:             name,
		ScientificName:   in.ScientificName,
		ImageURI:         in.ImageURI,
		Location:         in.Location,
		Notes:            in.Notes,
		CareDetails:      in.CareDetails,
		CreatedAt:        now,
		NextWateringDate: &next,
	}

	s.mu.Lock()
	s.plants = append(s.plants, plant)
	count := len(s.plants)
	s.mu.Unlock()

	s.persist(ctx)
	s.metrics.RecordPlantMutation("add")
	s.metrics.SetPlantsTracked(count)
	s.logger.Info("Added plant",
		zap.String("plant_id", plant.ID),
		zap.String("name", plant.Name),
		zap.Time("next_watering", next),
	)

	s.submitReschedule(ctx, plant.ID, false)
	return plant.clone(), nil
}

// WaterPlant records a watering now and replaces the plant's reminders. An
// unknown id returns ErrPlantNotFound and changes nothing.
func (s *Store) WaterPlant(ctx context.Context, id string) (Plant, error) {
	now := s.now()

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return Plant{}, ErrPlantNotFound
	}
	next := schedule.NextWateringDate(s.plants[i].CareDetails.WateringFrequency, now)
	s.plants[i].LastWatered = &now
	s.plants[i].NextWateringDate = &next
	plant := s.plants[i].clone()
	s.mu.Unlock()

	s.persist(ctx)
	s.metrics.RecordPlantMutation("water")
	s.logger.Info("Watered plant",
		zap.String("plant_id", id),
		zap.Time("next_watering", next),
	)

	s.submitReschedule(ctx, id, true)
	return plant, nil
}

// UpdatePlant applies update. Reminders are only replaced when the watering
// frequency text changes; the new date counts from the last watering, or from
// now if the plant was never watered. An unknown id returns ErrPlantNotFound
// and changes nothing.
func (s *Store) UpdatePlant(ctx context.Context, id string, update PlantUpdate) (Plant, error) {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return Plant{}, fmt.Errorf("%w: name is required", ErrInvalidPlant)
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return Plant{}, ErrPlantNotFound
	}
	p := &s.plants[i]
	oldFrequency := p.CareDetails.WateringFrequency

	if update.Name != nil {
		p.Name = strings.TrimSpace(*update.Name)
	}
	if update.ScientificName != nil {
		p.ScientificName = *update.ScientificName
	}
	if update.ImageURI != nil {
		p.ImageURI = *update.ImageURI
	}
	if update.Location != nil {
		p.Location = *update.Location
	}
	if update.Notes != nil {
		p.Notes = *update.Notes
	}
	if update.CareDetails != nil {
		p.CareDetails = *update.CareDetails
	}

	frequencyChanged := p.CareDetails.WateringFrequency != oldFrequency
	if frequencyChanged {
		base := s.now()
		if p.LastWatered != nil {
			base = s.inLocal(*p.LastWatered)
		}
		next := schedule.NextWateringDate(p.CareDetails.WateringFrequency, base)
		p.NextWateringDate = &next
	}
	plant := p.clone()
	s.mu.Unlock()

	s.persist(ctx)
	s.metrics.RecordPlantMutation("edit")
	s.logger.Info("Updated plant",
		zap.String("plant_id", id),
		zap.Bool("frequency_changed", frequencyChanged),
	)

	if frequencyChanged {
		s.submitReschedule(ctx, id, true)
	}
	return plant, nil
}

// DeletePlant cancels the plant's reminders and removes it. An unknown id
// returns ErrPlantNotFound and cancels nothing.
func (s *Store) DeletePlant(ctx context.Context, id string) error {
	if _, ok := s.Plant(id); !ok {
		return ErrPlantNotFound
	}

	bg := context.WithoutCancel(ctx)
	s.executor.Submit(func() {
		s.gateway.CancelForPlant(bg, id)
	})

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.plants = append(s.plants[:i:i], s.plants[i+1:]...)
	}
	count := len(s.plants)
	s.mu.Unlock()

	s.persist(ctx)
	s.metrics.RecordPlantMutation("delete")
	s.metrics.SetPlantsTracked(count)
	s.logger.Info("Deleted plant", zap.String("plant_id", id))
	return nil
}

// UpdatePreferences merges update into the preferences and replaces the
// reminders of every plant that has a next watering date. Each plant is
// rescheduled independently.
func (s *Store) UpdatePreferences(ctx context.Context, update PreferencesUpdate) (reminder.Preferences, error) {
	s.mu.Lock()
	merged := update.apply(s.prefs)
	if err := merged.Validate(); err != nil {
		s.mu.Unlock()
		return reminder.Preferences{}, fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}
	s.prefs = merged
	ids := s.scheduledPlantIDs()
	s.mu.Unlock()

	s.persist(ctx)
	s.metrics.RecordPlantMutation("preferences")
	s.logger.Info("Updated notification preferences",
		zap.Bool("enabled", merged.EnableNotifications),
		zap.String("reminder_time", merged.ReminderTime.String()),
		zap.Int("plants_to_reschedule", len(ids)),
	)

	for _, id := range ids {
		s.submitReschedule(ctx, id, true)
	}
	return merged, nil
}

// ResyncReminders replaces the reminders of every plant that has a next
// watering date, e.g. after the notification platform lost its state.
func (s *Store) ResyncReminders(ctx context.Context) int {
	s.mu.RLock()
	ids := s.scheduledPlantIDs()
	s.mu.RUnlock()

	for _, id := range ids {
		s.submitReschedule(ctx, id, true)
	}
	s.logger.Info("Resyncing reminders", zap.Int("plants", len(ids)))
	return len(ids)
}

// Reminders returns the pending reminders of one plant.
func (s *Store) Reminders(ctx context.Context, plantID string) []reminder.Notification {
	return s.gateway.ListForPlant(ctx, plantID)
}

// AllReminders returns every pending reminder.
func (s *Store) AllReminders(ctx context.Context) []reminder.Notification {
	return s.gateway.ListScheduled(ctx)
}

// ClearReminders cancels every pending reminder. Plants keep their dates.
func (s *Store) ClearReminders(ctx context.Context) {
	bg := context.WithoutCancel(ctx)
	s.executor.Submit(func() {
		s.gateway.ClearAll(bg)
	})
}

func (s *Store) submitReschedule(ctx context.Context, plantID string, cancelFirst bool) {
	bg := context.WithoutCancel(ctx)
	s.executor.Submit(func() {
		s.reschedule(bg, plantID, cancelFirst)
	})
}

// reschedule reads the plant and preferences at run time, not at submit time.
func (s *Store) reschedule(ctx context.Context, plantID string, cancelFirst bool) {
	start := time.Now()
	defer func() {
		s.metrics.RecordProcessingDuration("store", "reschedule", time.Since(start).Seconds())
	}()

	if cancelFirst {
		s.gateway.CancelForPlant(ctx, plantID)
	}

	s.mu.RLock()
	i := s.indexOf(plantID)
	var target reminder.Target
	ok := i >= 0 && s.plants[i].NextWateringDate != nil
	if ok {
		target = reminder.Target{
			PlantID:          plantID,
			PlantName:        s.plants[i].Name,
			NextWateringDate: s.inLocal(*s.plants[i].NextWateringDate),
		}
	}
	prefs := s.prefs
	s.mu.RUnlock()

	if !ok {
		s.logger.Debug("Plant gone or unscheduled, not planning reminders", zap.String("plant_id", plantID))
		return
	}

	ids := s.planner.Schedule(ctx, target, prefs)
	s.logger.Info("Rescheduled reminders",
		zap.String("plant_id", plantID),
		zap.Int("scheduled", len(ids)),
	)
}

// inLocal moves t into the store clock's location.
func (s *Store) inLocal(t time.Time) time.Time {
	return t.In(s.now().Location())
}

func (s *Store) localize(p Plant) Plant {
	p.CreatedAt = s.inLocal(p.CreatedAt)
	if p.LastWatered != nil {
		t := s.inLocal(*p.LastWatered)
		p.LastWatered = &t
	}
	if p.NextWateringDate != nil {
		t := s.inLocal(*p.NextWateringDate)
		p.NextWateringDate = &t
	}
	return p
}

func (s *Store) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.repo.Save(ctx, s.snapshot()); err != nil {
		s.metrics.RecordPersistFailure()
		s.logger.Error("Failed to save plant collection", zap.Error(err))
	}
}

func (s *Store) snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plants := make([]Plant, 0, len(s.plants))
	for _, p := range s.plants {
		plants = append(plants, p.clone())
	}
	return State{MyPlants: plants, NotificationPreferences: s.prefs}
}

// scheduledPlantIDs must be called with s.mu held.
func (s *Store) scheduledPlantIDs() []string {
	var ids []string
	for _, p := range s.plants {
		if p.NextWateringDate != nil {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.plants {
		if s.plants[i].ID == id {
			return i
		}
	}
	return -1
}
