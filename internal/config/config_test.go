package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/alexnthnz/plant-care/internal/reminder"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.Port != 8080 || cfg.API.GRPCPort != 9090 {
		t.Errorf("api ports = %d/%d", cfg.API.Port, cfg.API.GRPCPort)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.Platform != "redis" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Dispatcher.PollInterval != 30*time.Second || cfg.Dispatcher.BatchSize != 100 {
		t.Errorf("dispatcher = %+v", cfg.Dispatcher)
	}

	prefs, err := cfg.Reminders.DefaultPreferences()
	if err != nil {
		t.Fatalf("DefaultPreferences: %v", err)
	}
	if prefs != reminder.DefaultPreferences() {
		t.Errorf("default preferences = %+v, want %+v", prefs, reminder.DefaultPreferences())
	}
}

func TestLoad_File(t *testing.T) {
	dir := writeConfig(t, `
storage:
  driver: memory
  platform: memory
reminders:
  timezone: Europe/Berlin
  enable_overdue: false
  reminder_time: "07:30"
dispatcher:
  poll_interval: 5s
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`)

	cfg, err := load(viper.New(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" || cfg.Storage.Platform != "memory" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Dispatcher.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %s", cfg.Dispatcher.PollInterval)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}

	prefs, err := cfg.Reminders.DefaultPreferences()
	if err != nil {
		t.Fatalf("DefaultPreferences: %v", err)
	}
	if prefs.EnableOverdueReminders || prefs.ReminderTime != (reminder.TimeOfDay{Hour: 7, Minute: 30}) {
		t.Errorf("preferences = %+v", prefs)
	}
	if loc, err := cfg.Reminders.Location(); err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Location = (%v, %v)", loc, err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DELIVERY_EMAIL", "grower@example.com")

	cfg, err := load(viper.New(), t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("storage driver = %q", cfg.Storage.Driver)
	}
	if cfg.Delivery.Email != "grower@example.com" {
		t.Errorf("delivery email = %q", cfg.Delivery.Email)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad time":     "reminders:\n  overdue_time: \"25:00\"\n",
		"bad timezone": "reminders:\n  timezone: Mars/Olympus\n",
		"bad driver":   "storage:\n  driver: sqlite\n",
		"bad platform": "storage:\n  platform: apns\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := load(viper.New(), writeConfig(t, body)); err == nil {
				t.Fatal("load succeeded, want error")
			}
		})
	}
}
