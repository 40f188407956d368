package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment overrides, applied after the config file
const (
	EnvThrottle        = "PACETRACK_THROTTLE"
	EnvThrottleSeconds = "PACETRACK_THROTTLE_SECONDS"
	EnvRecordSpeeds    = "PACETRACK_RECORD_SPEEDS"
	EnvAddr            = "PACETRACK_ADDR"
	EnvLogLevel        = "PACETRACK_LOG_LEVEL"
	EnvClientID        = "STRAVA_CLIENT_ID"
	EnvClientSecret    = "STRAVA_CLIENT_SECRET"
)

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvThrottle); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThrottle, err)
		}
		c.Tracking.Throttle = &b
	}
	if v, ok := os.LookupEnv(EnvThrottleSeconds); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThrottleSeconds, err)
		}
		c.Tracking.ThrottleSeconds = n
	}
	if v, ok := os.LookupEnv(EnvRecordSpeeds); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRecordSpeeds, err)
		}
		c.Tracking.RecordSpeeds = &b
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvClientID); v != "" {
		c.Strava.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Strava.ClientSecret = v
	}
	return nil
}
