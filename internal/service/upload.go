package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pacetrack/internal/metrics"
	"pacetrack/internal/store"
	"pacetrack/internal/strava"
)

// ActivityCreator creates manual activities on Strava
type ActivityCreator interface {
	CreateActivity(ctx context.Context, a strava.NewActivity) (*strava.Activity, error)
}

// UploadService pushes completed runs to Strava
type UploadService struct {
	client    ActivityCreator
	store     *store.Store
	metrics   *metrics.Registry
	log       *zap.SugaredLogger
	batchSize int
}

// NewUploadService creates an upload service. reg may be nil.
func NewUploadService(client ActivityCreator, st *store.Store, reg *metrics.Registry, batchSize int, log *zap.SugaredLogger) *UploadService {
	if batchSize <= 0 {
		batchSize = 10
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &UploadService{client: client, store: st, metrics: reg, log: log, batchSize: batchSize}
}

// UploadResult contains the results of an upload pass
type UploadResult struct {
	Pending  int
	Uploaded int
	Errors   []error
}

// UploadPending uploads one batch of runs that have no Strava activity yet.
// A failed run is reported and left pending for the next pass.
func (u *UploadService) UploadPending(ctx context.Context) (*UploadResult, error) {
	runs, err := u.store.RunsPendingUpload(u.batchSize)
	if err != nil {
		return nil, fmt.Errorf("listing pending runs: %w", err)
	}

	result := &UploadResult{Pending: len(runs)}
	for i := range runs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		run := &runs[i]
		activity, err := u.client.CreateActivity(ctx, ToNewActivity(run))
		if err != nil {
			u.count("error")
			u.log.Warnw("upload failed", "run_id", run.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("uploading run %s: %w", run.ID, err))
			continue
		}

		if err := u.store.MarkUploaded(run.ID, activity.ID); err != nil {
			u.count("error")
			result.Errors = append(result.Errors, fmt.Errorf("marking run %s uploaded: %w", run.ID, err))
			continue
		}

		u.count("ok")
		result.Uploaded++
		u.log.Infow("run uploaded", "run_id", run.ID, "strava_activity_id", activity.ID)
	}
	return result, nil
}

// Schedule runs UploadPending on a cron spec until ctx is done.
// The returned function stops the scheduler and waits for a running pass.
func (u *UploadService) Schedule(ctx context.Context, spec string) (func(), error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		passCtx, cancel := context.WithTimeout(ctx, UploadTimeout)
		defer cancel()

		result, err := u.UploadPending(passCtx)
		if err != nil {
			u.log.Errorw("scheduled upload", "error", err)
			return
		}
		if result.Pending > 0 {
			u.log.Infow("scheduled upload finished",
				"pending", result.Pending,
				"uploaded", result.Uploaded,
				"errors", len(result.Errors),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling uploads %q: %w", spec, err)
	}

	c.Start()
	u.log.Infow("upload schedule started", "spec", spec)
	return func() { <-c.Stop().Done() }, nil
}

func (u *UploadService) count(status string) {
	if u.metrics != nil {
		u.metrics.UploadsTotal.WithLabelValues(status).Inc()
	}
}

// ToNewActivity converts a stored run to a Strava manual activity
func ToNewActivity(r *store.Run) strava.NewActivity {
	desc := fmt.Sprintf("Recorded with pacetrack (%s)", r.Source)
	if r.AvgHeartrate != nil {
		desc += fmt.Sprintf(", avg HR %.0f bpm", *r.AvgHeartrate)
	}
	return strava.NewActivity{
		Name:           r.Name,
		SportType:      SportTypeRun,
		StartDateLocal: r.StartedAt.Local(),
		ElapsedTime:    int(r.DurationSeconds),
		Distance:       r.DistanceKm * 1000,
		Description:    desc,
	}
}
