package service

import "time"

const (
	// Pagination limits
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
	FitnessRunsLimit    = 500 // roughly a year of daily runs feeds the 42-day EMA

	// Uploads
	SportTypeRun  = "Run"
	UploadTimeout = 5 * time.Minute

	// Run sources
	SourceLive   = "live"
	SourceReplay = "replay"
	SourceStdin  = "stdin"
)
