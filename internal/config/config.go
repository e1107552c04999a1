package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"

	"github.com/alexnthnz/plant-care/internal/reminder"
)

// Config holds all configuration for the plant care services
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	API        APIConfig        `mapstructure:"api"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Reminders  RemindersConfig  `mapstructure:"reminders"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Channels   ChannelsConfig   `mapstructure:"channels"`
	Delivery   DeliveryConfig   `mapstructure:"delivery"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// APIConfig holds API server configuration
type APIConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// StorageConfig selects where the collection and reminders live
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`   // postgres | memory
	Platform      string `mapstructure:"platform"` // redis | memory
	CollectionKey string `mapstructure:"collection_key"`
}

// RemindersConfig holds the default notification preferences
type RemindersConfig struct {
	Timezone            string `mapstructure:"timezone"`
	EnableNotifications bool   `mapstructure:"enable_notifications"`
	EnableDayBefore     bool   `mapstructure:"enable_day_before"`
	EnableOverdue       bool   `mapstructure:"enable_overdue"`
	ReminderTime        string `mapstructure:"reminder_time"`
	DayBeforeTime       string `mapstructure:"day_before_time"`
	OverdueTime         string `mapstructure:"overdue_time"`
}

// DispatcherConfig holds due-reminder polling configuration
type DispatcherConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// ChannelsConfig holds third-party provider configurations
type ChannelsConfig struct {
	SendGrid SendGridConfig `mapstructure:"sendgrid"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
}

// SendGridConfig holds SendGrid email configuration
type SendGridConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
}

// TwilioConfig holds Twilio SMS configuration
type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	BaseURL    string `mapstructure:"base_url"`
}

// FirebaseConfig holds Firebase push notification configuration
type FirebaseConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
}

// DeliveryConfig says where fired reminders are sent
type DeliveryConfig struct {
	PushToken string `mapstructure:"push_token"`
	Email     string `mapstructure:"email"`
	Phone     string `mapstructure:"phone"`
}

// MetricsConfig holds monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() (*Config, error) {
	return load(viper.New(), ".", "./config")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Set default values
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Println("Config file not found, using environment variables and defaults")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if _, err := config.Reminders.Location(); err != nil {
		return nil, err
	}
	if _, err := config.Reminders.DefaultPreferences(); err != nil {
		return nil, err
	}
	switch config.Storage.Driver {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}
	switch config.Storage.Platform {
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("unknown reminder platform %q", config.Storage.Platform)
	}

	return &config, nil
}

// Location returns the time zone used to place reminders on the calendar.
func (c RemindersConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminders.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultPreferences returns the preferences a new collection starts with.
func (c RemindersConfig) DefaultPreferences() (reminder.Preferences, error) {
	reminderTime, err := reminder.ParseTimeOfDay(c.ReminderTime)
	if err != nil {
		return reminder.Preferences{}, fmt.Errorf("reminders.reminder_time: %w", err)
	}
	dayBeforeTime, err := reminder.ParseTimeOfDay(c.DayBeforeTime)
	if err != nil {
		return reminder.Preferences{}, fmt.Errorf("reminders.day_before_time: %w", err)
	}
	overdueTime, err := reminder.ParseTimeOfDay(c.OverdueTime)
	if err != nil {
		return reminder.Preferences{}, fmt.Errorf("reminders.overdue_time: %w", err)
	}
	return reminder.Preferences{
		EnableNotifications:      c.EnableNotifications,
		EnableDayBeforeReminders: c.EnableDayBefore,
		EnableOverdueReminders:   c.EnableOverdue,
		ReminderTime:             reminderTime,
		DayBeforeTime:            dayBeforeTime,
		OverdueTime:              overdueTime,
	}, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "plantcare")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "plantcare:")

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "watering-reminders")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.grpc_port", 9090)

	// Storage defaults
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("storage.platform", "redis")
	v.SetDefault("storage.collection_key", "default")

	// Reminder defaults
	v.SetDefault("reminders.timezone", "UTC")
	v.SetDefault("reminders.enable_notifications", true)
	v.SetDefault("reminders.enable_day_before", true)
	v.SetDefault("reminders.enable_overdue", true)
	v.SetDefault("reminders.reminder_time", "09:00")
	v.SetDefault("reminders.day_before_time", "18:00")
	v.SetDefault("reminders.overdue_time", "10:00")

	// Dispatcher defaults
	v.SetDefault("dispatcher.poll_interval", 30*time.Second)
	v.SetDefault("dispatcher.batch_size", 100)

	// Channel defaults
	v.SetDefault("channels.sendgrid.from_email", "reminders@plantcare.app")
	v.SetDefault("channels.twilio.base_url", "https://api.twilio.com")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	// Map environment variables
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.database", "DB_NAME")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.platform", "REMINDER_PLATFORM")
	v.BindEnv("reminders.timezone", "REMINDERS_TIMEZONE")
	v.BindEnv("channels.sendgrid.api_key", "SENDGRID_API_KEY")
	v.BindEnv("channels.twilio.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("channels.twilio.auth_token", "TWILIO_AUTH_TOKEN")
	v.BindEnv("channels.twilio.from_number", "TWILIO_FROM_NUMBER")
	v.BindEnv("channels.firebase.credentials_path", "FIREBASE_CREDENTIALS_PATH")
	v.BindEnv("delivery.push_token", "DELIVERY_PUSH_TOKEN")
	v.BindEnv("delivery.email", "DELIVERY_EMAIL")
	v.BindEnv("delivery.phone", "DELIVERY_PHONE")
}
