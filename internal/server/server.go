// Package server exposes the tracker and rule management over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"refurbtracker/internal/domain"
	"refurbtracker/internal/storage"
	"refurbtracker/internal/tracker"
)

// Server carries the handler dependencies.
type Server struct {
	tracker *tracker.Tracker
	repo    storage.Repository
	log     logrus.FieldLogger
}

// New creates the HTTP surface over a tracker and a repository.
func New(trk *tracker.Tracker, repo storage.Repository, logger logrus.FieldLogger) *Server {
	return &Server{
		tracker: trk,
		repo:    repo,
		log:     logger.WithField("component", "http"),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/track/start", s.handleTrackStart).Methods(http.MethodPost)
	r.HandleFunc("/track/stop", s.handleTrackStop).Methods(http.MethodPost)
	r.HandleFunc("/track/run", s.handleTrackRun).Methods(http.MethodPost)
	r.HandleFunc("/track/status", s.handleTrackStatus).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/rules", s.handleListRules).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/rules", s.handleCreateRule).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/rules/{ruleID}", s.handleUpdateRule).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/rules/{ruleID}", s.handleDeleteRule).Methods(http.MethodDelete)
	return r
}

func (s *Server) handleTrackStart(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Start(r.Context()); err != nil {
		if errors.Is(err, tracker.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Status())
}

func (s *Server) handleTrackStop(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Stop(r.Context()); err != nil {
		if errors.Is(err, tracker.ErrNotRunning) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Status())
}

// handleTrackRun triggers a single pass without touching the timer. The pass
// runs detached from the request so a slow scrape cannot stall the client.
func (s *Server) handleTrackRun(w http.ResponseWriter, _ *http.Request) {
	go s.tracker.RunPass(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pass triggered"})
}

func (s *Server) handleTrackStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Status())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.Stats(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to compute stats")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		storage.Stats
		Tracker tracker.Status `json:"tracker"`
	}{Stats: stats, Tracker: s.tracker.Status()})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	rules, err := s.repo.GetUserTrackingRules(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rules == nil {
		rules = []domain.TrackingRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

type rulePayload struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Enabled     *bool             `json:"enabled"`
	Filters     domain.FilterSpec `json:"filters"`
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var payload rulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("rule name is required"))
		return
	}

	rule := domain.TrackingRule{
		ID:          uuid.NewString(),
		Name:        payload.Name,
		Description: payload.Description,
		Enabled:     true,
		Filters:     payload.Filters,
		CreatedAt:   time.Now(),
	}
	rule.UpdatedAt = rule.CreatedAt
	if payload.Enabled != nil {
		rule.Enabled = *payload.Enabled
	}
	if err := s.repo.SaveTrackingRule(r.Context(), userID, rule); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "rule_id": rule.ID}).Info("Rule created")
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	ruleID := mux.Vars(r)["ruleID"]

	rules, err := s.repo.GetUserTrackingRules(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var existing *domain.TrackingRule
	for i := range rules {
		if rules[i].ID == ruleID {
			existing = &rules[i]
			break
		}
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, storage.ErrRuleNotFound)
		return
	}

	var payload rulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Name != "" {
		existing.Name = payload.Name
	}
	if payload.Description != "" {
		existing.Description = payload.Description
	}
	if payload.Enabled != nil {
		existing.Enabled = *payload.Enabled
	}
	if !payload.Filters.Empty() {
		existing.Filters = payload.Filters
	}
	existing.UpdatedAt = time.Now()
	if err := s.repo.SaveTrackingRule(r.Context(), userID, *existing); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	ruleID := mux.Vars(r)["ruleID"]
	if err := s.repo.DeleteTrackingRule(r.Context(), userID, ruleID); err != nil {
		if errors.Is(err, storage.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid user id"))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
