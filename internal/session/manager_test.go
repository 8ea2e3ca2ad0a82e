package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/thebtf/tailor/pkg/models"
)

// fakeStore is an in-memory Store that counts calls.
type fakeStore struct {
	mu      sync.Mutex
	states  map[string]*models.SessionState
	saves   int
	deletes int
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string]*models.SessionState)}
}

func (f *fakeStore) Load(_ context.Context, sessionID string) (*models.SessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.states[sessionID], nil
}

func (f *fakeStore) Save(_ context.Context, sessionID string, state *models.SessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.states[sessionID] = state
	return nil
}

func (f *fakeStore) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.states, sessionID)
	return nil
}

// ManagerSuite covers session lifecycle, hydration and serialization.
type ManagerSuite struct {
	suite.Suite
	store   *fakeStore
	manager *Manager
	ctx     context.Context
}

func (s *ManagerSuite) SetupTest() {
	s.store = newFakeStore()
	s.manager = NewManager(s.store)
	s.ctx = context.Background()
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Close()
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func testSignal(id string, weight float64) *models.Signal {
	return &models.Signal{
		ID:             id,
		Type:           models.SignalPageView,
		Category:       models.CategoryRecipeView,
		Label:          "recipe_page_view",
		Weight:         weight,
		BaseWeight:     weight,
		WeightLabel:    models.WeightLabel(weight),
		TimestampEpoch: 1700000000000,
		Data:           map[string]interface{}{"url": "/recipes/baby-food"},
	}
}

// TestAddSignalPersists: every ingested signal writes the state blob.
func (s *ManagerSuite) TestAddSignalPersists() {
	p, err := s.manager.AddSignal(s.ctx, "sess-1", testSignal("sig-1", models.WeightMedium))
	s.Require().NoError(err)
	s.Equal(1, p.SignalsCount)

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.Equal(1, s.store.saves)
	s.Require().Contains(s.store.states, "sess-1")
	s.Len(s.store.states["sess-1"].Signals, 1)
}

// TestHydrationReplaysLog: the confidence score is reconstructed from the
// persisted signal log, never trusted from the blob.
func (s *ManagerSuite) TestHydrationReplaysLog() {
	s.store.states["sess-2"] = &models.SessionState{
		// Deliberately wrong persisted confidence.
		Profile: &models.Profile{ConfidenceScore: 0.99},
		Signals: []*models.Signal{
			testSignal("sig-1", models.WeightMedium),
			testSignal("sig-2", models.WeightMedium),
		},
	}

	p := s.manager.Profile(s.ctx, "sess-2")
	s.Equal(2, p.SignalsCount)
	s.NotEqual(0.99, p.ConfidenceScore)
	s.Greater(p.ConfidenceScore, 0.0)
}

// TestLoadFailureStartsEmpty: a failing store degrades to a fresh session.
func (s *ManagerSuite) TestLoadFailureStartsEmpty() {
	s.store.loadErr = fmt.Errorf("connection refused")
	p := s.manager.Profile(s.ctx, "sess-3")
	s.Zero(p.SignalsCount)
}

// TestResetDeletesPersistedState.
func (s *ManagerSuite) TestResetDeletesPersistedState() {
	_, err := s.manager.AddSignal(s.ctx, "sess-4", testSignal("sig-1", models.WeightMedium))
	s.Require().NoError(err)

	s.Require().NoError(s.manager.Reset(s.ctx, "sess-4"))

	s.store.mu.Lock()
	s.Equal(1, s.store.deletes)
	s.NotContains(s.store.states, "sess-4")
	s.store.mu.Unlock()

	p := s.manager.Profile(s.ctx, "sess-4")
	s.Zero(p.SignalsCount)
	s.Zero(p.ConfidenceScore)
}

// TestReweightDwellPersistsOnChange: only an actual weight change writes.
func (s *ManagerSuite) TestReweightDwellPersistsOnChange() {
	_, err := s.manager.AddSignal(s.ctx, "sess-5", testSignal("sig-1", models.WeightMedium))
	s.Require().NoError(err)

	_, err = s.manager.ReweightDwell(s.ctx, "sess-5", "sig-1", 90)
	s.Require().NoError(err)

	s.store.mu.Lock()
	saves := s.store.saves
	s.store.mu.Unlock()
	s.Equal(2, saves)

	// No threshold change, no write.
	_, err = s.manager.ReweightDwell(s.ctx, "sess-5", "sig-1", 95)
	s.Require().NoError(err)
	s.store.mu.Lock()
	s.Equal(2, s.store.saves)
	s.store.mu.Unlock()
}

// TestConcurrentAddSignalsSerialize: concurrent submissions become a FIFO,
// so none is lost.
func (s *ManagerSuite) TestConcurrentAddSignalsSerialize() {
	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.manager.AddSignal(s.ctx, "sess-6", testSignal(fmt.Sprintf("sig-%d", i), models.WeightLow))
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	p := s.manager.Profile(s.ctx, "sess-6")
	s.Equal(n, p.SignalsCount)
}

// TestProfileSnapshotIsolation: callers cannot mutate internal state
// through the returned profile.
func (s *ManagerSuite) TestProfileSnapshotIsolation() {
	sig := testSignal("sig-1", models.WeightMedium)
	sig.Product = "X5"
	_, err := s.manager.AddSignal(s.ctx, "sess-7", sig)
	s.Require().NoError(err)

	p := s.manager.Profile(s.ctx, "sess-7")
	p.ProductsConsidered[0] = "mutated"
	p.Segments = append(p.Segments, "bogus")

	again := s.manager.Profile(s.ctx, "sess-7")
	s.Equal([]string{"X5"}, again.ProductsConsidered)
	s.NotContains(again.Segments, "bogus")
}

// TestSessionCount counts resident sessions only.
func (s *ManagerSuite) TestSessionCount() {
	s.Equal(0, s.manager.SessionCount())
	s.manager.Profile(s.ctx, "a")
	s.manager.Profile(s.ctx, "b")
	s.manager.Profile(s.ctx, "a")
	s.Equal(2, s.manager.SessionCount())
}

// TestNilStoreInMemoryOnly: a nil store keeps sessions purely in memory.
func (s *ManagerSuite) TestNilStoreInMemoryOnly() {
	m := NewManager(nil)
	defer m.Close()

	_, err := m.AddSignal(s.ctx, "sess-8", testSignal("sig-1", models.WeightMedium))
	s.Require().NoError(err)
	s.Require().NoError(m.Reset(s.ctx, "sess-8"))
	s.Zero(m.Profile(s.ctx, "sess-8").SignalsCount)
}

// TestConfidenceAccessor matches the profile's score.
func (s *ManagerSuite) TestConfidenceAccessor() {
	_, err := s.manager.AddSignal(s.ctx, "sess-9", testSignal("sig-1", models.WeightMedium))
	s.Require().NoError(err)
	s.InDelta(s.manager.Profile(s.ctx, "sess-9").ConfidenceScore, s.manager.Confidence(s.ctx, "sess-9"), 1e-9)
}
