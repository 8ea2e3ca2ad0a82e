package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/tailor/pkg/models"
)

// StateStore persists session state blobs. Implements session.Store.
type StateStore struct {
	db *gorm.DB
}

// NewStateStore creates a state store over an open connection.
func NewStateStore(store *Store) *StateStore {
	return &StateStore{db: store.DB}
}

// Load returns the stored state for a session, nil when absent. A blob
// with missing fields is tolerated: the caller merges onto defaults.
func (s *StateStore) Load(ctx context.Context, sessionID string) (*models.SessionState, error) {
	var record SessionStateRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session state: %w", err)
	}

	var state models.SessionState
	if err := json.Unmarshal([]byte(record.StateJSON), &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return models.NormalizedState(&state), nil
}

// Save upserts the state blob for a session.
func (s *StateStore) Save(ctx context.Context, sessionID string, state *models.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	now := time.Now().UnixMilli()
	record := SessionStateRecord{
		SessionID:      sessionID,
		StateJSON:      string(data),
		SignalsCount:   len(state.Signals),
		UpdatedAtEpoch: now,
		CreatedAtEpoch: now,
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"state_json", "signals_count", "updated_at_epoch",
			}),
		}).
		Create(&record).Error
}

// Delete removes the stored state for a session.
func (s *StateStore) Delete(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&SessionStateRecord{}).Error
}
