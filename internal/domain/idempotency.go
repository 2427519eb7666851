package domain

import "time"

// ChoiceIdempotency remembers the choice produced for an Idempotency-Key,
// keyed by (group_id, key). A retried commit returns the stored choice
// instead of recording a second session.
type ChoiceIdempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	GroupID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_group_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_group_key,priority:2"`
	ChoiceID  string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ChoiceIdempotency) TableName() string { return "choice_idempotency" }
