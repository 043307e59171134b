package models

import (
	"ticketbroker/src/types"
	"time"
)

// AuditLog rows are only ever inserted.
type AuditLog struct {
	ID            uint              `gorm:"primarykey" json:"id"`
	Timestamp     time.Time         `gorm:"index;not null" json:"timestamp"`
	ActionType    types.AuditAction `gorm:"size:50;index;not null" json:"action_type"`
	EntityType    types.EntityType  `gorm:"size:20;not null" json:"entity_type"`
	EntityID      string            `gorm:"size:64;index" json:"entity_id"`
	ActorType     types.ActorType   `gorm:"size:20;not null" json:"actor_type"`
	ActorID       string            `gorm:"size:120" json:"actor_id"`
	Details       types.JSONB       `gorm:"type:text" json:"details,omitempty"`
	OldValue      types.JSONB       `gorm:"type:text" json:"old_value,omitempty"`
	NewValue      types.JSONB       `gorm:"type:text" json:"new_value,omitempty"`
	CorrelationID string            `gorm:"size:36;index" json:"correlation_id,omitempty"`
}
