package profile

import (
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tailor/pkg/models"
)

// signalConfidenceFactor scales the summed signal weights into the final
// confidence alongside the accumulated rule confidence.
const signalConfidenceFactor = 0.3

// Engine accumulates signals for one session and maintains the profile
// and its confidence score. Not safe for concurrent use: the owning
// session context serializes all calls (see internal/session).
type Engine struct {
	profile *models.Profile
	signals []*models.Signal

	// totalConfidence accumulates the confidence weight of every rule
	// trigger across all passes. A rule retriggering on a later pass adds
	// its confidence again; passes are never deduplicated.
	totalConfidence float64
}

// NewEngine returns an engine with an empty profile and signal log.
func NewEngine() *Engine {
	return &Engine{profile: models.NewProfile()}
}

// AddSignal appends a signal to the log, re-runs the full inference
// catalog, and recomputes the confidence score. Signals are never removed
// individually; only Reset clears the log.
func (e *Engine) AddSignal(sig *models.Signal) *models.Profile {
	e.signals = append(e.signals, sig)

	if sig.Product != "" {
		e.profile.AddProductConsidered(sig.Product)
	}
	if e.profile.FirstVisitEpoch == 0 {
		e.profile.FirstVisitEpoch = sig.TimestampEpoch
	}
	e.profile.LastVisitEpoch = sig.TimestampEpoch
	e.profile.SignalsCount = len(e.signals)

	e.runPass()
	e.recomputeConfidence()
	return e.profile
}

// ReweightDwell revises a page-view signal's weight as dwell time crosses
// a threshold. The boost replaces any earlier boost on the same signal
// rather than adding to it. Rule confidence already accumulated is not
// rolled back; only the signal-weight component of the score changes.
func (e *Engine) ReweightDwell(signalID string, dwellSeconds int) bool {
	for _, s := range e.signals {
		if s.ID == signalID {
			if !s.ApplyDwell(dwellSeconds) {
				return false
			}
			log.Debug().
				Str("signalId", signalID).
				Int("dwellSeconds", dwellSeconds).
				Float64("weight", s.Weight).
				Msg("Dwell re-weighting applied")
			e.recomputeConfidence()
			return true
		}
	}
	return false
}

// runPass evaluates the entire rule catalog, in declaration order, against
// the full signal log and the current profile. Later rules see profile
// state written by earlier rules in the same pass. A panicking rule is
// caught and logged without aborting the remaining rules.
func (e *Engine) runPass() {
	ctx := &EvalContext{Signals: e.signals, Profile: e.profile}
	for i := range Rules {
		rule := &Rules[i]
		triggered := e.evalRule(rule, ctx)
		if triggered {
			e.totalConfidence += rule.Confidence
			rule.Apply(e.profile)
		}
	}
}

func (e *Engine) evalRule(rule *InferenceRule, ctx *EvalContext) (triggered bool) {
	defer func() {
		if r := recover(); r != nil {
			triggered = false
			log.Warn().
				Str("rule", rule.Name).
				Interface("panic", r).
				Msg("Inference rule panicked, skipping")
		}
	}()
	return rule.When(ctx)
}

// recomputeConfidence derives the confidence score from the accumulated
// rule confidence and the sum of signal weights, clamped into [0,1] with
// a floor for short non-empty logs.
func (e *Engine) recomputeConfidence() {
	signalConfidence := 0.0
	for _, s := range e.signals {
		signalConfidence += s.Weight
	}

	confidence := e.totalConfidence + signalConfidence*signalConfidenceFactor
	if confidence > 1.0 {
		confidence = 1.0
	}
	if len(e.signals) > 0 && confidence < 0.1 {
		floor := float64(len(e.signals)) * 0.05
		if floor > 0.3 {
			floor = 0.3
		}
		// A floor only ever raises the score.
		if confidence < floor {
			confidence = floor
		}
	}
	e.profile.ConfidenceScore = models.Clamp01(confidence)
}

// Reset returns the profile to its all-empty default and clears the
// signal log and accumulated rule confidence.
func (e *Engine) Reset() {
	e.profile = models.NewProfile()
	e.signals = nil
	e.totalConfidence = 0
}

// Rebuild replays a persisted signal log from an empty profile. The
// derived confidence is fully reconstructed from the raw log; a persisted
// confidence value is never the source of truth.
func (e *Engine) Rebuild(signals []*models.Signal) *models.Profile {
	e.Reset()
	for _, s := range signals {
		e.AddSignal(s)
	}
	return e.profile
}

// Profile returns the current profile.
func (e *Engine) Profile() *models.Profile { return e.profile }

// Signals returns the ordered signal log.
func (e *Engine) Signals() []*models.Signal { return e.signals }
