package worker

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tailor/internal/classifier"
	"github.com/thebtf/tailor/internal/metrics"
	"github.com/thebtf/tailor/internal/orchestrator"
	"github.com/thebtf/tailor/internal/reasoning"
	"github.com/thebtf/tailor/pkg/models"
)

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth handles health check requests.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}

// handleStats reports service counters.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events_ingested":  atomic.LoadInt64(&s.stats.EventsIngested),
		"decisions":        atomic.LoadInt64(&s.stats.Decisions),
		"fallbacks":        atomic.LoadInt64(&s.stats.Fallbacks),
		"sessions_in_mem":  s.sessions.SessionCount(),
		"block_rules":      s.rules.RuleCount(),
	})
}

// handleIngestEvent classifies a raw event and feeds it into the
// session's profile engine.
func (s *Service) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var event classifier.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	if event.Type == "" {
		writeError(w, http.StatusBadRequest, "event type is required")
		return
	}

	sig := classifier.Classify(event)
	profile, err := s.sessions.AddSignal(r.Context(), sessionID, sig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to ingest signal")
		return
	}

	s.bumpEvents()
	metrics.RecordSignal(string(sig.Category))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signal":  sig,
		"profile": profile,
	})
}

// handleDwell revises a page-view signal's weight as dwell time crosses
// a threshold.
func (s *Service) handleDwell(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		SignalID     string `json:"signal_id"`
		DwellSeconds int    `json:"dwell_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SignalID == "" {
		writeError(w, http.StatusBadRequest, "signal_id and dwell_seconds are required")
		return
	}

	profile, err := s.sessions.ReweightDwell(r.Context(), sessionID, req.SignalID, req.DwellSeconds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reweight signal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

// handleProfile returns the session's current profile and confidence.
func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	writeJSON(w, http.StatusOK, s.sessions.Profile(r.Context(), sessionID))
}

// handleReset clears the session back to the empty profile.
func (s *Service) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.sessions.Reset(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// decideRequest is the decide endpoint payload.
type decideRequest struct {
	Query  string                `json:"query"`
	Intent *models.IntentContext `json:"intent,omitempty"`
}

// handleDecide runs the full decision pipeline for a query: rule
// evaluation, the reasoning call, and confidence-gated finalization.
// Concurrent identical calls for the same session are coalesced.
func (s *Service) handleDecide(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid decide payload")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	key := sessionID + "|" + req.Query
	result, err, _ := s.decideGroup.Do(key, func() (interface{}, error) {
		return s.decide(r, sessionID, &req), nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "decision failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Service) decide(r *http.Request, sessionID string, req *decideRequest) *models.ReasoningResult {
	requirements := s.rules.Evaluate(req.Query, req.Intent)
	profile := s.sessions.Profile(r.Context(), sessionID)

	var proposal *reasoning.Proposal
	if s.reasoner != nil {
		reasoningReq := s.buildReasoningRequest(req, profile, requirements)
		p, err := s.reasoner.Propose(r.Context(), reasoningReq)
		if err != nil {
			log.Warn().
				Err(err).
				Str("requestId", requestID(r.Context())).
				Str("sessionId", sessionID).
				Msg("Reasoning call failed")
		} else {
			proposal = p
		}
	}

	result := orchestrator.Finalize(orchestrator.Inputs{
		Query:             req.Query,
		Intent:            req.Intent,
		Requirements:      requirements,
		Proposal:          proposal,
		ProfileConfidence: profile.ConfidenceScore,
	})

	s.bumpDecisions(result.Fallback)
	return result
}

// buildReasoningRequest packages the merged requirements as guidance for
// the reasoning collaborator, with content guidance trimmed to the token
// budget.
func (s *Service) buildReasoningRequest(req *decideRequest, profile *models.Profile, requirements *models.MergedBlockRequirements) *reasoning.Request {
	out := &reasoning.Request{
		Query:           req.Query,
		Intent:          req.Intent,
		Profile:         profile,
		SequenceHints:   requirements.SequenceHints,
		ContentGuidance: reasoning.JoinGuidance(requirements.ContentGuidance, s.config.GuidanceTokenBudget),
	}
	for _, b := range models.AllBlockTypes {
		if requirements.Required[b] {
			out.RequiredBlocks = append(out.RequiredBlocks, b)
		}
		if requirements.Excluded[b] {
			out.ExcludedBlocks = append(out.ExcludedBlocks, b)
		}
		if requirements.Enhanced[b] {
			out.EnhancedBlocks = append(out.EnhancedBlocks, b)
		}
	}
	return out
}
