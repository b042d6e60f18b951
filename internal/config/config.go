// Package config provides configuration management for rollcall.
// Settings are layered: built-in defaults, then an optional YAML file, then
// environment variables with the ROLLCALL_ prefix (a .env file in the
// working directory is loaded first if present).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // schedule.timezone must resolve in minimal containers

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/scrypster/rollcall/pkg/types"
)

// Config holds all configuration settings for rollcall.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Search    SearchConfig    `yaml:"search"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Rebuild   RebuildConfig   `yaml:"rebuild"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Reminders RemindersConfig `yaml:"reminders"`
	Log       LogConfig       `yaml:"log"`
}

// StorageConfig selects the directory store.
type StorageConfig struct {
	Engine      string `yaml:"engine"`       // sqlite or postgres (default: sqlite)
	DataPath    string `yaml:"data_path"`    // directory holding rollcall.db and events/ (default: ./data)
	PostgresDSN string `yaml:"postgres_dsn"` // used when Engine is postgres
}

// SearchConfig tunes the lexical index.
type SearchConfig struct {
	FuzzyMaxDistance int `yaml:"fuzzy_max_distance"` // default: 2
}

// ScheduleConfig describes working hours and the scheduling grid.
type ScheduleConfig struct {
	WorkdayStart string   `yaml:"workday_start"` // "HH:MM" (default: 09:00)
	WorkdayEnd   string   `yaml:"workday_end"`   // "HH:MM" (default: 17:00)
	SlotMinutes  int      `yaml:"slot_minutes"`  // default: 60
	Days         []string `yaml:"days"`          // default: Monday..Friday
	MaxRequests  int      `yaml:"max_requests"`  // default: 64
	MaxSteps     int      `yaml:"max_steps"`     // default: 1000000
	Timezone     string   `yaml:"timezone"`      // IANA zone for presence (default: Asia/Kolkata)
}

// RebuildConfig throttles index rebuilds.
type RebuildConfig struct {
	MinInterval time.Duration `yaml:"min_interval"` // default: 2s
	Burst       int           `yaml:"burst"`        // default: 1
	Watch       bool          `yaml:"watch"`        // watch {data_path}/events for change signals (default: true)
}

// BreakerConfig guards the entity source during rebuilds.
type BreakerConfig struct {
	MaxFailures int           `yaml:"max_failures"` // default: 3
	Timeout     time.Duration `yaml:"timeout"`      // default: 30s
}

// RemindersConfig controls the reminder dispatcher.
type RemindersConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"` // default: 1s
	Lead         time.Duration `yaml:"lead"`          // remind this long before a booked activity; 0 disables (default: 15m)
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// LoadConfig loads configuration from defaults, the YAML file at path (or
// ROLLCALL_CONFIG when path is empty; no file is fine), and environment
// variables. The result is validated.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("ROLLCALL_CONFIG")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Engine:   "sqlite",
			DataPath: "./data",
		},
		Search: SearchConfig{
			FuzzyMaxDistance: 2,
		},
		Schedule: ScheduleConfig{
			WorkdayStart: "09:00",
			WorkdayEnd:   "17:00",
			SlotMinutes:  60,
			Days:         []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			MaxRequests:  64,
			MaxSteps:     1_000_000,
			Timezone:     "Asia/Kolkata",
		},
		Rebuild: RebuildConfig{
			MinInterval: 2 * time.Second,
			Burst:       1,
			Watch:       true,
		},
		Breaker: BreakerConfig{
			MaxFailures: 3,
			Timeout:     30 * time.Second,
		},
		Reminders: RemindersConfig{
			PollInterval: time.Second,
			Lead:         15 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Storage.Engine = getEnv("ROLLCALL_STORAGE_ENGINE", c.Storage.Engine)
	c.Storage.DataPath = getEnv("ROLLCALL_DATA_PATH", c.Storage.DataPath)
	c.Storage.PostgresDSN = getEnv("ROLLCALL_POSTGRES_DSN", c.Storage.PostgresDSN)

	c.Search.FuzzyMaxDistance = getEnvInt("ROLLCALL_FUZZY_MAX_DISTANCE", c.Search.FuzzyMaxDistance)

	c.Schedule.WorkdayStart = getEnv("ROLLCALL_WORKDAY_START", c.Schedule.WorkdayStart)
	c.Schedule.WorkdayEnd = getEnv("ROLLCALL_WORKDAY_END", c.Schedule.WorkdayEnd)
	c.Schedule.SlotMinutes = getEnvInt("ROLLCALL_SLOT_MINUTES", c.Schedule.SlotMinutes)
	if days := getEnv("ROLLCALL_SCHEDULE_DAYS", ""); days != "" {
		c.Schedule.Days = splitList(days)
	}
	c.Schedule.MaxRequests = getEnvInt("ROLLCALL_SCHEDULE_MAX_REQUESTS", c.Schedule.MaxRequests)
	c.Schedule.MaxSteps = getEnvInt("ROLLCALL_SCHEDULE_MAX_STEPS", c.Schedule.MaxSteps)
	c.Schedule.Timezone = getEnv("ROLLCALL_TIMEZONE", c.Schedule.Timezone)

	c.Rebuild.MinInterval = getEnvDuration("ROLLCALL_REBUILD_MIN_INTERVAL", c.Rebuild.MinInterval)
	c.Rebuild.Burst = getEnvInt("ROLLCALL_REBUILD_BURST", c.Rebuild.Burst)
	c.Rebuild.Watch = getEnvBool("ROLLCALL_REBUILD_WATCH", c.Rebuild.Watch)

	c.Breaker.MaxFailures = getEnvInt("ROLLCALL_BREAKER_MAX_FAILURES", c.Breaker.MaxFailures)
	c.Breaker.Timeout = getEnvDuration("ROLLCALL_BREAKER_TIMEOUT", c.Breaker.Timeout)

	c.Reminders.PollInterval = getEnvDuration("ROLLCALL_REMINDER_POLL_INTERVAL", c.Reminders.PollInterval)
	c.Reminders.Lead = getEnvDuration("ROLLCALL_REMINDER_LEAD", c.Reminders.Lead)

	c.Log.Level = getEnv("ROLLCALL_LOG_LEVEL", c.Log.Level)
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Engine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.engine must be sqlite or postgres, got %q", c.Storage.Engine))
	}

	if c.Search.FuzzyMaxDistance < 0 {
		errs = append(errs, fmt.Errorf("search.fuzzy_max_distance must be >= 0, got %d", c.Search.FuzzyMaxDistance))
	}

	if _, err := c.Schedule.Window(); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.SlotMinutes < 1 {
		errs = append(errs, fmt.Errorf("schedule.slot_minutes must be >= 1, got %d", c.Schedule.SlotMinutes))
	}
	if _, err := c.Schedule.Weekdays(); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.MaxRequests < 0 || c.Schedule.MaxSteps < 0 {
		errs = append(errs, errors.New("schedule.max_requests and schedule.max_steps must be >= 0"))
	}
	if _, err := c.Schedule.Location(); err != nil {
		errs = append(errs, err)
	}

	if c.Rebuild.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("rebuild.min_interval must be >= 0, got %v", c.Rebuild.MinInterval))
	}
	if c.Rebuild.Burst < 1 {
		errs = append(errs, fmt.Errorf("rebuild.burst must be >= 1, got %d", c.Rebuild.Burst))
	}
	if c.Breaker.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("breaker.max_failures must be >= 1, got %d", c.Breaker.MaxFailures))
	}
	if c.Reminders.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("reminders.poll_interval must be > 0, got %v", c.Reminders.PollInterval))
	}
	if c.Reminders.Lead < 0 {
		errs = append(errs, fmt.Errorf("reminders.lead must be >= 0, got %v", c.Reminders.Lead))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Window returns the working-hours range.
func (s ScheduleConfig) Window() (types.Range, error) {
	start, err := types.ParseClock(s.WorkdayStart)
	if err != nil {
		return types.Range{}, fmt.Errorf("schedule.workday_start: %w", err)
	}
	end, err := types.ParseClock(s.WorkdayEnd)
	if err != nil {
		return types.Range{}, fmt.Errorf("schedule.workday_end: %w", err)
	}
	r, err := types.NewRange(start, end)
	if err != nil {
		return types.Range{}, fmt.Errorf("schedule working window: %w", err)
	}
	return r, nil
}

// Weekdays parses the configured scheduling days.
func (s ScheduleConfig) Weekdays() ([]types.Weekday, error) {
	if len(s.Days) == 0 {
		return nil, errors.New("schedule.days must not be empty")
	}
	out := make([]types.Weekday, 0, len(s.Days))
	for _, name := range s.Days {
		d, err := types.ParseWeekday(name)
		if err != nil {
			return nil, fmt.Errorf("schedule.days: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Location loads the configured time zone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return b
		}
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a time.Duration environment variable ("1500ms", "2s").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
