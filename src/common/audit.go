package common

import (
	"context"
	"log"
	"ticketbroker/src/models"
	"ticketbroker/src/models/scopes"
	"time"

	"gorm.io/gorm"
)

type EventPublisher interface {
	Publish(topic string, payload map[string]any) error
}

// TrailSink stores audit entries in the audit_logs table and mirrors them
// to a topic after commit. Mirroring is best effort.
type TrailSink struct {
	publisher EventPublisher
	topic     string
}

func NewTrailSink(publisher EventPublisher, topic string) *TrailSink {
	return &TrailSink{publisher: publisher, topic: topic}
}

func (s *TrailSink) Log(tx *gorm.DB, entry *models.AuditLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return tx.Create(entry).Error
}

func (s *TrailSink) Committed(ctx context.Context, entries []*models.AuditLog) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	for _, e := range entries {
		if err := s.publisher.Publish(s.topic, auditPayload(e)); err != nil {
			log.Printf("Error publishing audit event %d: %s\n", e.ID, err.Error())
		}
	}
}

func auditPayload(e *models.AuditLog) map[string]any {
	return map[string]any{
		"id":             e.ID,
		"timestamp":      e.Timestamp.Format(time.RFC3339Nano),
		"action_type":    e.ActionType,
		"entity_type":    e.EntityType,
		"entity_id":      e.EntityID,
		"actor_type":     e.ActorType,
		"actor_id":       e.ActorID,
		"details":        e.Details,
		"old_value":      e.OldValue,
		"new_value":      e.NewValue,
		"correlation_id": e.CorrelationID,
	}
}

// ListAuditLogs returns one page of the trail, newest first, and the total
// number of entries.
func ListAuditLogs(ctx context.Context, db *gorm.DB, page int, size int) ([]models.AuditLog, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&models.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.AuditLog
	if err := db.WithContext(ctx).
		Scopes(scopes.Paginate(page, size)).
		Order("timestamp desc").
		Order("id desc").
		Find(&logs).
		Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
