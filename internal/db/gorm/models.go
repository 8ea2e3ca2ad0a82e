package gorm

// SessionStateRecord is the persisted session blob: the profile and raw
// signal log serialized as opaque JSON. Confidence inside the blob is
// informational only; loads reconstruct it by replaying the signal log.
type SessionStateRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	SessionID      string `gorm:"uniqueIndex;size:128;not null"`
	StateJSON      string `gorm:"type:jsonb;not null"`
	SignalsCount   int    `gorm:"not null;default:0"`
	UpdatedAtEpoch int64  `gorm:"index;not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

// TableName overrides the default table name.
func (SessionStateRecord) TableName() string { return "session_states" }
