package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordsCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordReminderScheduled("day-of")
	m.RecordReminderScheduled("day-of")
	m.RecordReminderSkipped("overdue", "past")
	m.RecordRemindersCancelled(3)
	m.RecordRemindersCancelled(0)
	m.RecordPlatformError("schedule")
	m.SetPlantsTracked(4)

	if got := testutil.ToFloat64(m.RemindersScheduled.WithLabelValues("day-of")); got != 2 {
		t.Errorf("scheduled = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RemindersSkipped.WithLabelValues("overdue", "past")); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RemindersCancelled); got != 3 {
		t.Errorf("cancelled = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.PlatformErrors.WithLabelValues("schedule")); got != 1 {
		t.Errorf("platform errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PlantsTracked); got != 4 {
		t.Errorf("plants tracked = %v, want 4", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordReminderScheduled("day-of")
	m.RecordPlantMutation("add")
	m.IncrementActiveConnections()
	m.DecrementActiveConnections()
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordPlantMutation("water")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `plantcare_plant_mutations_total{action="water"} 1`) {
		t.Fatalf("metrics output missing mutation counter:\n%s", rec.Body.String())
	}
}
