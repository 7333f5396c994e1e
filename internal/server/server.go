// Package server exposes the screening pipeline over HTTP: single-record and
// batch CSV prediction, account and session management, prediction history,
// daily symptom logs, medication reminders and a live result feed for
// dashboard clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voicewell/internal/biomarker"
	"voicewell/internal/metrics"
	"voicewell/internal/model"
	"voicewell/internal/storage"

	"github.com/rs/zerolog/log"
)

// Server serves the dashboard API. The pipeline and artifact are read-only
// and shared by all requests; the store may be nil, which disables accounts
// and audit persistence but keeps prediction serving available.
type Server struct {
	pipeline   *model.Pipeline
	artifact   *model.Artifact
	store      *storage.Store
	metrics    *metrics.Metrics
	feed       *Feed
	sessionTTL time.Duration
	server     *http.Server
}

// Config carries the server wiring.
type Config struct {
	Port        int
	SessionTTL  time.Duration
	HTTPTimeout time.Duration
}

// New builds the API server.
func New(cfg Config, pipeline *model.Pipeline, artifact *model.Artifact, store *storage.Store, m *metrics.Metrics) *Server {
	s := &Server{
		pipeline:   pipeline,
		artifact:   artifact,
		store:      store,
		metrics:    m,
		feed:       NewFeed(m),
		sessionTTL: cfg.SessionTTL,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/signup", s.handleSignup)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/predict", s.withAuth(s.handlePredict))
	mux.HandleFunc("/api/predict/csv", s.withAuth(s.handlePredictCSV))
	mux.HandleFunc("/api/history", s.withAuth(s.handleHistory))
	mux.HandleFunc("/api/reminders", s.withAuth(s.handleReminders))
	mux.HandleFunc("/api/symptoms", s.withAuth(s.handleSymptoms))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/model/info", s.handleModelInfo)
	mux.HandleFunc("/ws", s.withAuth(s.feed.Handle))

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting api server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and the live feed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.feed.Close()
	return s.server.Shutdown(ctx)
}

type predictRequest struct {
	Features map[string]float64 `json:"features"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Features) == 0 {
		http.Error(w, "features cannot be empty", http.StatusBadRequest)
		return
	}

	result, err := s.pipeline.Screen(req.Features)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result.UserID = sess.UserID

	s.persistAndBroadcast(result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePredictCSV(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, rowErrs, err := biomarker.ReadCSV(r.Body, s.pipeline.Policy())
	if err != nil {
		s.writeError(w, err)
		return
	}

	results := make([]model.PredictionResult, 0, len(records))
	for _, rec := range records {
		result, err := s.pipeline.Run(rec)
		if err != nil {
			s.writeError(w, err)
			return
		}
		result.UserID = sess.UserID
		s.persistAndBroadcast(result)
		results = append(results, result)
	}

	errStrings := make([]string, len(rowErrs))
	for i, re := range rowErrs {
		errStrings[i] = re.Error()
	}
	s.metrics.CSVRowsProcessed.Add(float64(len(results)))
	s.metrics.CSVRowsRejected.Add(float64(len(rowErrs)))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":    results,
		"row_errors": errStrings,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "history store not configured", http.StatusServiceUnavailable)
		return
	}

	start, end := parseTimeRange(r)
	rows, err := s.store.GetPredictions(sess.UserID, start, end)
	if err != nil {
		log.Error().Err(err).Msg("history query failed")
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	if s.store == nil {
		http.Error(w, "reminder store not configured", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		reminders, err := s.store.ListReminders(sess.UserID)
		if err != nil {
			http.Error(w, "reminder query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, reminders)

	case http.MethodPost:
		var rem storage.Reminder
		if err := json.NewDecoder(r.Body).Decode(&rem); err != nil {
			http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
			return
		}
		if rem.Title == "" || rem.ScheduleTime == "" {
			http.Error(w, "title and schedule_time are required", http.StatusBadRequest)
			return
		}
		rem.UserID = sess.UserID
		rem.Active = true
		created, err := s.store.CreateReminder(rem)
		if err != nil {
			http.Error(w, "reminder create failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodPut:
		var rem storage.Reminder
		if err := json.NewDecoder(r.Body).Decode(&rem); err != nil {
			http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
			return
		}
		rem.UserID = sess.UserID
		if err := s.store.UpdateReminder(rem); err != nil {
			if errors.Is(err, storage.ErrReminderNotFound) {
				http.Error(w, "reminder not found", http.StatusNotFound)
				return
			}
			http.Error(w, "reminder update failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rem)

	case http.MethodDelete:
		id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "id query parameter required", http.StatusBadRequest)
			return
		}
		if err := s.store.DeleteReminder(sess.UserID, id); err != nil {
			if errors.Is(err, storage.ErrReminderNotFound) {
				http.Error(w, "reminder not found", http.StatusNotFound)
				return
			}
			http.Error(w, "reminder delete failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

const symptomDateLayout = "2006-01-02"

func (s *Server) handleSymptoms(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	if s.store == nil {
		http.Error(w, "symptom store not configured", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		if from == "" {
			from = "0000-00-00"
		}
		if to == "" {
			to = "9999-12-31"
		}
		entries, err := s.store.ListSymptoms(sess.UserID, from, to)
		if err != nil {
			http.Error(w, "symptom query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)

	case http.MethodPost:
		var entry storage.SymptomEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
			return
		}
		if entry.Date == "" {
			entry.Date = time.Now().UTC().Format(symptomDateLayout)
		}
		if _, err := time.Parse(symptomDateLayout, entry.Date); err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		if bad := invalidScores(entry); len(bad) > 0 {
			http.Error(w, fmt.Sprintf("scores must be 0-10: %s", strings.Join(bad, ", ")), http.StatusBadRequest)
			return
		}
		entry.UserID = sess.UserID
		if err := s.store.UpsertSymptoms(entry); err != nil {
			http.Error(w, "symptom save failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case http.MethodDelete:
		date := r.URL.Query().Get("date")
		if _, err := time.Parse(symptomDateLayout, date); err != nil {
			http.Error(w, "date query parameter required (YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		if err := s.store.DeleteSymptoms(sess.UserID, date); err != nil {
			if errors.Is(err, storage.ErrSymptomEntryNotFound) {
				http.Error(w, "symptom entry not found", http.StatusNotFound)
				return
			}
			http.Error(w, "symptom delete failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// invalidScores names every score outside the 0-10 assessment scale.
func invalidScores(e storage.SymptomEntry) []string {
	var bad []string
	for _, sc := range []struct {
		name  string
		value int
	}{
		{"tremor", e.Tremor},
		{"rigidity", e.Rigidity},
		{"bradykinesia", e.Bradykinesia},
		{"speech", e.Speech},
		{"mood", e.Mood},
	} {
		if sc.value < 0 || sc.value > 10 {
			bad = append(bad, sc.name)
		}
	}
	return bad
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := make(map[string]map[string]float64, len(biomarker.Presets))
	for name, rec := range biomarker.Presets {
		out[name] = rec.Map()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	healthy := s.artifact != nil
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"healthy":     healthy,
		"explainable": healthy && len(s.artifact.Background) > 0,
		"persistence": s.store != nil,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if s.artifact == nil {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		return
	}
	meta := s.artifact.Classifier.Metadata
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":       meta.Version,
		"algorithm":     meta.Algorithm,
		"trained_at":    meta.TrainedAt,
		"cv_score":      meta.CVScore,
		"training_rows": meta.TrainingRows,
		"features":      s.artifact.Scaler.Fields,
		"threshold":     s.pipeline.Threshold(),
		"range_policy":  s.pipeline.Policy(),
	})
}

// persistAndBroadcast appends the audit row and pushes the result to live
// feed clients. Persistence failures are logged, never surfaced: the
// prediction itself already succeeded.
func (s *Server) persistAndBroadcast(result model.PredictionResult) {
	if s.store != nil && result.UserID != 0 {
		row := storage.PredictionRow{
			UserID:    result.UserID,
			Timestamp: result.Timestamp,
			Result:    result,
		}
		if err := s.store.StorePrediction(row); err != nil {
			log.Error().Err(err).Msg("audit row persist failed")
			s.metrics.ErrorsTotal.Inc()
		} else {
			s.metrics.AuditWrites.Inc()
		}
	}
	s.feed.Broadcast(result)
}

// writeError maps the pipeline error taxonomy onto HTTP statuses. Validation
// errors carry the offending fields back to the caller; artifact integrity
// errors are logged as configuration failures.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		missingErr *biomarker.MissingFieldError
		typeErr    *biomarker.InvalidTypeError
		rangeErr   *biomarker.OutOfRangeError
		scalerErr  *model.ScalerMismatchError
	)
	switch {
	case errors.As(err, &missingErr), errors.As(err, &typeErr), errors.As(err, &rangeErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &scalerErr), errors.Is(err, model.ErrModelNotLoaded):
		log.Error().Err(err).Msg("model artifact configuration failure")
		s.metrics.ErrorsTotal.Inc()
		http.Error(w, "model configuration error", http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Msg("prediction failed")
		s.metrics.ErrorsTotal.Inc()
		http.Error(w, "prediction failed", http.StatusInternalServerError)
	}
}

func parseTimeRange(r *http.Request) (time.Time, time.Time) {
	start := time.Unix(0, 0)
	end := time.Now().Add(time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			start = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			end = t
		}
	}
	return start, end
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}
