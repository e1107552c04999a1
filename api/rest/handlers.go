package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alexnthnz/plant-care/internal/collection"
	"github.com/alexnthnz/plant-care/internal/monitoring"
	"github.com/alexnthnz/plant-care/internal/reminder"
)

// Handler holds dependencies for REST API handlers
type Handler struct {
	store     *collection.Store
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler creates a new REST API handler
func NewHandler(store *collection.Store, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		metrics:   metrics,
		logger:    logger,
		validator: validator.New(),
		now:       time.Now,
	}
}

// CareDetailsRequest is the care information accepted for a plant
type CareDetailsRequest struct {
	WateringFrequency string `json:"wateringFrequency" validate:"max=100"`
	WateringAmount    string `json:"wateringAmount,omitempty"`
	Sunlight          string `json:"sunlight,omitempty"`
	Soil              string `json:"soil,omitempty"`
	Temperature       string `json:"temperature,omitempty"`
	Humidity          string `json:"humidity,omitempty"`
	Fertilizer        string `json:"fertilizer,omitempty"`
}

func (c CareDetailsRequest) toCareDetails() collection.CareDetails {
	return collection.CareDetails{
		WateringFrequency: c.WateringFrequency,
		WateringAmount:    c.WateringAmount,
		Sunlight:          c.Sunlight,
		Soil:              c.Soil,
		Temperature:       c.Temperature,
		Humidity:          c.Humidity,
		Fertilizer:        c.Fertilizer,
	}
}

// CreatePlantRequest represents the request body for adding a plant
type CreatePlantRequest struct {
	Name           string             `json:"name" validate:"required,max=200"`
	ScientificName string             `json:"scientificName,omitempty" validate:"max=200"`
	ImageURI       string             `json:"imageUri,omitempty" validate:"omitempty,uri"`
	Location       string             `json:"location,omitempty" validate:"max=200"`
	Notes          string             `json:"notes,omitempty"`
	CareDetails    CareDetailsRequest `json:"careDetails"`
}

// UpdatePlantRequest represents the request body for editing a plant. Absent
// fields are left unchanged.
type UpdatePlantRequest struct {
	Name           *string             `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	ScientificName *string             `json:"scientificName,omitempty" validate:"omitempty,max=200"`
	ImageURI       *string             `json:"imageUri,omitempty" validate:"omitempty,uri"`
	Location       *string             `json:"location,omitempty" validate:"omitempty,max=200"`
	Notes          *string             `json:"notes,omitempty"`
	CareDetails    *CareDetailsRequest `json:"careDetails,omitempty"`
}

// UpdatePreferencesRequest represents a partial update of the notification
// preferences
type UpdatePreferencesRequest struct {
	EnableNotifications      *bool               `json:"enableNotifications,omitempty"`
	EnableDayBeforeReminders *bool               `json:"enableDayBeforeReminders,omitempty"`
	EnableOverdueReminders   *bool               `json:"enableOverdueReminders,omitempty"`
	ReminderTime             *reminder.TimeOfDay `json:"reminderTime,omitempty"`
	DayBeforeTime            *reminder.TimeOfDay `json:"dayBeforeTime,omitempty"`
	OverdueTime              *reminder.TimeOfDay `json:"overdueTime,omitempty"`
}

// ResyncResponse reports how many plants had their reminders re-planned
type ResyncResponse struct {
	Plants int `json:"plants"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// instrument records duration and in-flight requests for one operation.
func (h *Handler) instrument(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.metrics.IncrementActiveConnections()
		defer func() {
			h.metrics.DecrementActiveConnections()
			h.metrics.RecordProcessingDuration("api", operation, time.Since(start).Seconds())
		}()
		next(w, r)
	}
}

// AddPlant handles POST /plants
func (h *Handler) AddPlant(w http.ResponseWriter, r *http.Request) {
	var req CreatePlantRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	plant, err := h.store.AddPlant(r.Context(), collection.NewPlant{
		Name:           req.Name,
		ScientificName: req.ScientificName,
		ImageURI:       req.ImageURI,
		Location:       req.Location,
		Notes:          req.Notes,
		CareDetails:    req.CareDetails.toCareDetails(),
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, plant)
}

// ListPlants handles GET /plants
func (h *Handler) ListPlants(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Plants())
}

// GetPlant handles GET /plants/{id}
func (h *Handler) GetPlant(w http.ResponseWriter, r *http.Request) {
	plant, ok := h.store.Plant(mux.Vars(r)["id"])
	if !ok {
		h.writeErrorResponse(w, "Plant not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, plant)
}

// UpdatePlant handles PATCH /plants/{id}
func (h *Handler) UpdatePlant(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlantRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	update := collection.PlantUpdate{
		Name:           req.Name,
		ScientificName: req.ScientificName,
		ImageURI:       req.ImageURI,
		Location:       req.Location,
		Notes:          req.Notes,
	}
	if req.CareDetails != nil {
		care := req.CareDetails.toCareDetails()
		update.CareDetails = &care
	}

	plant, err := h.store.UpdatePlant(r.Context(), mux.Vars(r)["id"], update)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plant)
}

// WaterPlant handles POST /plants/{id}/water
func (h *Handler) WaterPlant(w http.ResponseWriter, r *http.Request) {
	plant, err := h.store.WaterPlant(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plant)
}

// DeletePlant handles DELETE /plants/{id}
func (h *Handler) DeletePlant(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePlant(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlantReminders handles GET /plants/{id}/reminders
func (h *Handler) PlantReminders(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.store.Plant(id); !ok {
		h.writeErrorResponse(w, "Plant not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(h.store.Reminders(r.Context(), id)))
}

// PlantsDue handles GET /plants/due?by=RFC3339. Without "by" it lists plants
// due now.
func (h *Handler) PlantsDue(w http.ResponseWriter, r *http.Request) {
	by := h.now()
	if raw := r.URL.Query().Get("by"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeErrorResponse(w, fmt.Sprintf("Invalid 'by' time: %v", err), http.StatusBadRequest)
			return
		}
		by = t
	}
	h.writeJSON(w, http.StatusOK, nonNil(h.store.PlantsDueBy(by)))
}

// GetPreferences handles GET /preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Preferences())
}

// UpdatePreferences handles PATCH /preferences
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferencesRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	prefs, err := h.store.UpdatePreferences(r.Context(), collection.PreferencesUpdate{
		EnableNotifications:      req.EnableNotifications,
		EnableDayBeforeReminders: req.EnableDayBeforeReminders,
		EnableOverdueReminders:   req.EnableOverdueReminders,
		ReminderTime:             req.ReminderTime,
		DayBeforeTime:            req.DayBeforeTime,
		OverdueTime:              req.OverdueTime,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, prefs)
}

// ListReminders handles GET /reminders
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, nonNil(h.store.AllReminders(r.Context())))
}

// ClearReminders handles DELETE /reminders
func (h *Handler) ClearReminders(w http.ResponseWriter, r *http.Request) {
	h.store.ClearReminders(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ResyncReminders handles POST /reminders/resync
func (h *Handler) ResyncReminders(w http.ResponseWriter, r *http.Request) {
	n := h.store.ResyncReminders(r.Context())
	h.writeJSON(w, http.StatusAccepted, ResyncResponse{Plants: n})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "plant-care-api",
		"version":   "1.0.0",
	}
	h.writeJSON(w, http.StatusOK, health)
}

// Metrics handles GET /metrics (Prometheus metrics)
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.Handler().ServeHTTP(w, r)
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("Failed to decode request", zap.Error(err), zap.String("path", r.URL.Path))
		h.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("Request validation failed", zap.Error(err), zap.String("path", r.URL.Path))
		h.writeErrorResponse(w, fmt.Sprintf("Validation error: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// writeStoreError maps store sentinel errors onto HTTP statuses
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collection.ErrPlantNotFound):
		h.writeErrorResponse(w, "Plant not found", http.StatusNotFound)
	case errors.Is(err, collection.ErrInvalidPlant), errors.Is(err, collection.ErrInvalidPreferences):
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("Store operation failed", zap.Error(err))
		h.writeErrorResponse(w, "Internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// SetupRoutes sets up all REST API routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	// "due" is registered ahead of {id} so it is not taken for a plant id
	api.HandleFunc("/plants/due", h.instrument("plants_due", h.PlantsDue)).Methods("GET")
	api.HandleFunc("/plants", h.instrument("add_plant", h.AddPlant)).Methods("POST")
	api.HandleFunc("/plants", h.instrument("list_plants", h.ListPlants)).Methods("GET")
	api.HandleFunc("/plants/{id}", h.instrument("get_plant", h.GetPlant)).Methods("GET")
	api.HandleFunc("/plants/{id}", h.instrument("update_plant", h.UpdatePlant)).Methods("PATCH")
	api.HandleFunc("/plants/{id}", h.instrument("delete_plant", h.DeletePlant)).Methods("DELETE")
	api.HandleFunc("/plants/{id}/water", h.instrument("water_plant", h.WaterPlant)).Methods("POST")
	api.HandleFunc("/plants/{id}/reminders", h.instrument("plant_reminders", h.PlantReminders)).Methods("GET")

	api.HandleFunc("/preferences", h.instrument("get_preferences", h.GetPreferences)).Methods("GET")
	api.HandleFunc("/preferences", h.instrument("update_preferences", h.UpdatePreferences)).Methods("PATCH")

	api.HandleFunc("/reminders", h.instrument("list_reminders", h.ListReminders)).Methods("GET")
	api.HandleFunc("/reminders", h.instrument("clear_reminders", h.ClearReminders)).Methods("DELETE")
	api.HandleFunc("/reminders/resync", h.instrument("resync_reminders", h.ResyncReminders)).Methods("POST")

	// Health and metrics
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/metrics", h.Metrics).Methods("GET")

	router.Use(h.loggingMiddleware)
	router.Use(h.corsMiddleware)

	return router
}

// loggingMiddleware logs HTTP requests
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Capture the status code
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		h.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// corsMiddleware adds CORS headers
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseRecorder wraps http.ResponseWriter to capture status code
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
