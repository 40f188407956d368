package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pacetrack/internal/analysis"
	"pacetrack/internal/route"
	"pacetrack/internal/store"
	"pacetrack/internal/tracker"
)

// ErrorResponse is the JSON body of every error
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse is the JSON response for GET /api/session
type SessionResponse struct {
	RunID          string              `json:"run_id,omitempty"`
	State          string              `json:"state"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	DistanceKm     float64             `json:"distance_km"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
	PaceMinPerKm   float64             `json:"pace_min_per_km"`
	Calories       int                 `json:"calories"`
	CurrentSpeed   *float64            `json:"current_speed_mps"`
	Center         *tracker.Coordinate `json:"center"`
	ElevationGainM *float64            `json:"elevation_gain_m"`
	HeartRate      *int                `json:"heart_rate"`
	Points         int                 `json:"points"`
	BucketShares   map[string]float64  `json:"bucket_shares"`
}

// RunResponse is the JSON form of a stored run
type RunResponse struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Source           string               `json:"source"`
	StartedAt        time.Time            `json:"started_at"`
	EndedAt          time.Time            `json:"ended_at"`
	DistanceKm       float64              `json:"distance_km"`
	DurationSeconds  float64              `json:"duration_seconds"`
	PaceMinPerKm     float64              `json:"pace_min_per_km"`
	Calories         int                  `json:"calories"`
	ElevationGainM   *float64             `json:"elevation_gain_m"`
	AvgHeartRate     *float64             `json:"avg_heart_rate"`
	MaxHeartRate     *int                 `json:"max_heart_rate"`
	StravaActivityID *int64               `json:"strava_activity_id"`
	Predictions      []PredictionResponse `json:"predictions,omitempty"`
}

// PredictionResponse is a race-time estimate
type PredictionResponse struct {
	Target           string  `json:"target"`
	PredictedSeconds int     `json:"predicted_seconds"`
	PaceMinPerKm     float64 `json:"pace_min_per_km"`
	VDOT             float64 `json:"vdot"`
	Confidence       string  `json:"confidence"`
}

// RunListResponse is the JSON response for GET /api/runs
type RunListResponse struct {
	Runs   []RunResponse `json:"runs"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// RecordResponse is a personal record
type RecordResponse struct {
	Category        string    `json:"category"`
	Label           string    `json:"label"`
	RunID           string    `json:"run_id"`
	RunName         string    `json:"run_name"`
	DistanceKm      float64   `json:"distance_km"`
	DurationSeconds float64   `json:"duration_seconds"`
	PaceMinPerKm    *float64  `json:"pace_min_per_km"`
	AchievedAt      time.Time `json:"achieved_at"`
}

// FitnessResponse is the JSON response for GET /api/fitness
type FitnessResponse struct {
	Date        time.Time `json:"date"`
	Fitness     float64   `json:"ctl"`
	Fatigue     float64   `json:"atl"`
	Form        float64   `json:"tsb"`
	Description string    `json:"description"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "timestamp": s.now().UTC()}
	if s.runs != nil {
		if _, err := s.runs.Totals(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "error",
				"error":  err.Error(),
			})
			return
		}
		body["database"] = "connected"
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		writeError(w, http.StatusNotFound, "no live session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s.live.Snapshot()))
}

func (s *Server) handleSessionRoute(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		writeError(w, http.StatusNotFound, "no live session")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeGeoJSON(w, route.FromSnapshot(s.live.Snapshot()))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := s.runs.History(limit, offset)
	if err != nil {
		s.internalError(w, "listing runs", err)
		return
	}

	resp := RunListResponse{Runs: make([]RunResponse, 0, len(runs)), Limit: limit, Offset: offset}
	for i := range runs {
		resp.Runs = append(resp.Runs, toRunResponse(&runs[i]))
	}
	resp.Count = len(resp.Runs)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.runs.Get(id)
	if err != nil {
		s.runError(w, id, err)
		return
	}

	resp := toRunResponse(run)
	for _, p := range analysis.Predict(run.DistanceKm, run.DurationSeconds) {
		resp.Predictions = append(resp.Predictions, PredictionResponse{
			Target:           p.TargetName,
			PredictedSeconds: p.PredictedSeconds,
			PaceMinPerKm:     p.PredictedPace,
			VDOT:             p.VDOT,
			Confidence:       p.Confidence,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRunRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	coords, speeds, err := s.runs.Route(id)
	if err != nil {
		s.runError(w, id, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeGeoJSON(w, route.FeatureCollection(coords, speeds, nil))
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.runs.Records()
	if err != nil {
		s.internalError(w, "loading records", err)
		return
	}

	resp := make([]RecordResponse, 0, len(records))
	for _, pr := range records {
		resp = append(resp, RecordResponse{
			Category:        pr.Category,
			Label:           pr.Label,
			RunID:           pr.RunID,
			RunName:         pr.RunName,
			DistanceKm:      pr.DistanceKm,
			DurationSeconds: pr.DurationSeconds,
			PaceMinPerKm:    pr.PaceMinPerKm,
			AchievedAt:      pr.AchievedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFitness(w http.ResponseWriter, r *http.Request) {
	data, err := s.runs.Fitness(s.now())
	if err != nil {
		s.internalError(w, "computing fitness", err)
		return
	}
	writeJSON(w, http.StatusOK, FitnessResponse{
		Date:        data.Current.Date,
		Fitness:     data.Current.CTL,
		Fatigue:     data.Current.ATL,
		Form:        data.Current.TSB,
		Description: data.Description,
	})
}

func (s *Server) runError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found: "+id)
		return
	}
	s.internalError(w, "loading run", err)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.log.Errorw(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func toSessionResponse(snap tracker.Snapshot) SessionResponse {
	resp := SessionResponse{
		RunID:          snap.RunID,
		State:          snap.State.String(),
		DistanceKm:     snap.DistanceKm,
		ElapsedSeconds: snap.ElapsedSeconds,
		PaceMinPerKm:   snap.PaceMinPerKm,
		Calories:       snap.Calories,
		CurrentSpeed:   finiteOrNil(snap.CurrentSpeed),
		Center:         snap.Center,
		ElevationGainM: snap.ElevationGainM,
		HeartRate:      snap.HeartRate,
		Points:         len(snap.Route),
		BucketShares:   map[string]float64{},
	}
	if !snap.StartedAt.IsZero() {
		started := snap.StartedAt
		resp.StartedAt = &started
	}
	for b, share := range tracker.BucketShares(snap.Segments()) {
		resp.BucketShares[b.String()] = share
	}
	return resp
}

func toRunResponse(r *store.Run) RunResponse {
	return RunResponse{
		ID:               r.ID,
		Name:             r.Name,
		Source:           r.Source,
		StartedAt:        r.StartedAt,
		EndedAt:          r.EndedAt,
		DistanceKm:       r.DistanceKm,
		DurationSeconds:  r.DurationSeconds,
		PaceMinPerKm:     r.PaceMinPerKm,
		Calories:         r.Calories,
		ElevationGainM:   r.ElevationGainM,
		AvgHeartRate:     r.AvgHeartrate,
		MaxHeartRate:     r.MaxHeartrate,
		StravaActivityID: r.StravaActivityID,
	}
}

// finiteOrNil maps the NaN speed sentinel to JSON null
func finiteOrNil(v float64) *float64 {
	if !tracker.SpeedKnown(v) {
		return nil
	}
	return &v
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key + ": " + v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeGeoJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
