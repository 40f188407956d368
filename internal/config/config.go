package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Strava   StravaConfig   `json:"strava"`
	Tracking TrackingConfig `json:"tracking"`
	Display  DisplayConfig  `json:"display"`
	Athlete  AthleteConfig  `json:"athlete"`
	Server   ServerConfig   `json:"server"`
	Upload   UploadConfig   `json:"upload"`
	Logging  LoggingConfig  `json:"logging"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TrackingConfig controls sample processing.
// Throttle and RecordSpeeds are pointers so an absent key keeps the default.
type TrackingConfig struct {
	Throttle        *bool   `json:"throttle,omitempty"`
	ThrottleSeconds int     `json:"throttle_seconds"`
	RecordSpeeds    *bool   `json:"record_speeds,omitempty"`
	CaloriesPerKm   float64 `json:"calories_per_km"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `json:"distance_unit"`
	PaceUnit     string `json:"pace_unit"`
}

// AthleteConfig holds heart-rate bounds used for training load
type AthleteConfig struct {
	RestingHR int `json:"resting_hr"`
	MaxHR     int `json:"max_hr"`
}

// ServerConfig configures the HTTP read API
type ServerConfig struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// UploadConfig configures pushing completed runs to Strava
type UploadConfig struct {
	Enabled   bool   `json:"enabled"`
	Schedule  string `json:"schedule"` // cron spec, e.g. "@hourly"
	BatchSize int    `json:"batch_size"`
	// Outbound request budget: RequestsPerWindow per WindowSeconds
	RequestsPerWindow int `json:"requests_per_window"`
	WindowSeconds     int `json:"window_seconds"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `json:"level"`
	File  string `json:"file"` // empty means ~/.pacetrack/pacetrack.log
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Tracking: TrackingConfig{
			Throttle:        boolPtr(true),
			ThrottleSeconds: 10,
			RecordSpeeds:    boolPtr(true),
			CaloriesPerKm:   60,
		},
		Display: DisplayConfig{
			DistanceUnit: "km",
			PaceUnit:     "min/km",
		},
		Athlete: AthleteConfig{
			RestingHR: 50,
			MaxHR:     185,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Upload: UploadConfig{
			Schedule:          "@hourly",
			BatchSize:         10,
			RequestsPerWindow: 50,
			WindowSeconds:     60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from ~/.pacetrack/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path and fills in defaults
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills missing values
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Tracking.Throttle == nil {
		c.Tracking.Throttle = defaults.Tracking.Throttle
	}
	if c.Tracking.ThrottleSeconds == 0 {
		c.Tracking.ThrottleSeconds = defaults.Tracking.ThrottleSeconds
	}
	if c.Tracking.RecordSpeeds == nil {
		c.Tracking.RecordSpeeds = defaults.Tracking.RecordSpeeds
	}
	if c.Tracking.CaloriesPerKm == 0 {
		c.Tracking.CaloriesPerKm = defaults.Tracking.CaloriesPerKm
	}
	if c.Display.DistanceUnit == "" {
		c.Display.DistanceUnit = defaults.Display.DistanceUnit
	}
	if c.Display.PaceUnit == "" {
		c.Display.PaceUnit = defaults.Display.PaceUnit
	}
	if c.Athlete.RestingHR == 0 {
		c.Athlete.RestingHR = defaults.Athlete.RestingHR
	}
	if c.Athlete.MaxHR == 0 {
		c.Athlete.MaxHR = defaults.Athlete.MaxHR
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = defaults.Server.AllowedOrigins
	}
	if c.Upload.Schedule == "" {
		c.Upload.Schedule = defaults.Upload.Schedule
	}
	if c.Upload.BatchSize == 0 {
		c.Upload.BatchSize = defaults.Upload.BatchSize
	}
	if c.Upload.RequestsPerWindow == 0 {
		c.Upload.RequestsPerWindow = defaults.Upload.RequestsPerWindow
	}
	if c.Upload.WindowSeconds == 0 {
		c.Upload.WindowSeconds = defaults.Upload.WindowSeconds
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// LoadOrDefault loads the config file, falling back to defaults when it is missing
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if errors.Is(err, ErrNoConfig) {
		d := DefaultConfig()
		return &d, nil
	}
	return cfg, err
}

// Save writes the configuration to ~/.pacetrack/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}

	return Save(&example)
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	if c.Tracking.ThrottleSeconds < 0 {
		return fmt.Errorf("tracking.throttle_seconds must not be negative, got %d", c.Tracking.ThrottleSeconds)
	}
	if c.Tracking.CaloriesPerKm < 0 {
		return fmt.Errorf("tracking.calories_per_km must not be negative, got %v", c.Tracking.CaloriesPerKm)
	}

	// Validate display units
	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}
	if c.Display.PaceUnit != "" && c.Display.PaceUnit != "min/km" && c.Display.PaceUnit != "min/mi" {
		return fmt.Errorf("display.pace_unit must be \"min/km\" or \"min/mi\", got %q", c.Display.PaceUnit)
	}

	if c.Athlete.RestingHR < 0 || c.Athlete.MaxHR < 0 {
		return errors.New("athlete heart rates must not be negative")
	}
	if c.Athlete.MaxHR != 0 && c.Athlete.RestingHR >= c.Athlete.MaxHR {
		return fmt.Errorf("athlete.resting_hr (%d) must be below athlete.max_hr (%d)", c.Athlete.RestingHR, c.Athlete.MaxHR)
	}

	if c.Upload.Schedule != "" {
		if _, err := cron.ParseStandard(c.Upload.Schedule); err != nil {
			return fmt.Errorf("upload.schedule %q: %w", c.Upload.Schedule, err)
		}
	}
	if c.Upload.RequestsPerWindow < 0 || c.Upload.WindowSeconds < 0 {
		return errors.New("upload.requests_per_window and upload.window_seconds must not be negative")
	}

	return nil
}

// ValidateStrava checks the credentials needed by login and upload
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// ThrottleEnabled reports whether the sample throttle is on
func (t TrackingConfig) ThrottleEnabled() bool {
	return t.Throttle == nil || *t.Throttle
}

// RecordSpeedsEnabled reports whether per-sample speeds are kept
func (t TrackingConfig) RecordSpeedsEnabled() bool {
	return t.RecordSpeeds == nil || *t.RecordSpeeds
}

// MinInterval is the throttle window
func (t TrackingConfig) MinInterval() time.Duration {
	return time.Duration(t.ThrottleSeconds) * time.Second
}

// Window is the outbound request window
func (u UploadConfig) Window() time.Duration {
	return time.Duration(u.WindowSeconds) * time.Second
}

// LogPath returns the log file for interactive commands
func (l LoggingConfig) LogPath() (string, error) {
	if l.File != "" {
		return l.File, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pacetrack.log"), nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".pacetrack"), nil
}

func boolPtr(b bool) *bool { return &b }
