package models

// SessionState is the persistence-boundary blob for one session: the
// profile plus the raw signal log. Confidence is carried inside Profile
// for observability but is never the source of truth on load; it is
// reconstructed by replaying the signal log.
type SessionState struct {
	Profile *Profile  `json:"profile"`
	Signals []*Signal `json:"signals"`
}

// NormalizedState merges a possibly partial loaded state onto defaults so
// missing fields never propagate as nils.
func NormalizedState(s *SessionState) *SessionState {
	if s == nil {
		s = &SessionState{}
	}
	if s.Profile == nil {
		s.Profile = NewProfile()
	}
	if s.Profile.Segments == nil {
		s.Profile.Segments = []string{}
	}
	if s.Profile.UseCases == nil {
		s.Profile.UseCases = []string{}
	}
	if s.Profile.ProductsConsidered == nil {
		s.Profile.ProductsConsidered = []string{}
	}
	if s.Signals == nil {
		s.Signals = []*Signal{}
	}
	return s
}
