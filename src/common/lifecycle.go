package common

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"ticketbroker/src/config"
	"ticketbroker/src/models"
	"ticketbroker/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsReader interface {
	Get(ctx context.Context, key string, def string) string
	Set(ctx context.Context, key string, value string, actor types.Actor) error
}

// Notifier delivers booking emails. A returned error never undoes the
// state change that triggered the notification.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, booking *models.Booking) error
	SendPaymentConfirmed(ctx context.Context, booking *models.Booking) error
	SendAdminNotification(ctx context.Context, booking *models.Booking) error
	SendTicketsResend(ctx context.Context, bookings []models.Booking) error
}

type AuditSink interface {
	// Log writes entry as part of tx.
	Log(tx *gorm.DB, entry *models.AuditLog) error
	// Committed is called once the transaction that logged entries committed.
	Committed(ctx context.Context, entries []*models.AuditLog)
}

// Outcome is the result of a lifecycle operation. Warnings carry soft
// failures that happened after the state change was committed.
type Outcome struct {
	Booking          *models.Booking `json:"booking,omitempty"`
	Tickets          []models.Ticket `json:"tickets,omitempty"`
	AlreadyConfirmed bool            `json:"already_confirmed,omitempty"`
	PaymentURL       string          `json:"payment_url,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
}

func (o *Outcome) warn(code string, err error) {
	log.Printf("Warning %s: %s\n", code, err.Error())
	o.Warnings = append(o.Warnings, code)
}

func (o *Outcome) ticketsWarning(err error) {
	if errors.Is(err, ErrTicketsPDF) {
		o.warn(WarnTicketsPDF, err)
		return
	}
	o.warn(WarnTicketsEmail, err)
}

const (
	WarnConfirmationEmail = "confirmation_email_failed"
	WarnAdminEmail        = "admin_notification_failed"
	WarnTicketsEmail      = "tickets_email_failed"
	WarnTicketsPDF        = "tickets_pdf_failed"
	WarnShowOversold      = "show_oversold"
)

type Lifecycle struct {
	db           *gorm.DB
	settings     SettingsReader
	notifier     Notifier
	audit        AuditSink
	newReference func() string
	now          func() time.Time
}

type Option func(*Lifecycle)

// WithReferenceSource replaces the random booking reference sampler.
func WithReferenceSource(fn func() string) Option {
	return func(l *Lifecycle) {
		l.newReference = fn
	}
}

func WithClock(fn func() time.Time) Option {
	return func(l *Lifecycle) {
		l.now = fn
	}
}

func NewLifecycle(db *gorm.DB, settings SettingsReader, notifier Notifier, audit AuditSink, opts ...Option) *Lifecycle {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if audit == nil {
		audit = NewTrailSink(nil, "")
	}
	l := &Lifecycle{
		db:           db,
		settings:     settings,
		notifier:     notifier,
		audit:        audit,
		newReference: RandomReference,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lifecycle) timestamp() time.Time {
	return l.now().UTC()
}

// transact runs fn in one transaction and publishes the audit entries it
// logged once the transaction committed.
func (l *Lifecycle) transact(ctx context.Context, fn func(tx *gorm.DB, t *trail) error) error {
	t := &trail{sink: l.audit, correlationID: uuid.NewString(), now: l.timestamp}
	if err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, t)
	}); err != nil {
		return err
	}
	if len(t.entries) > 0 {
		l.audit.Committed(ctx, t.entries)
	}
	return nil
}

func (l *Lifecycle) intSetting(ctx context.Context, key string) int {
	def := config.DefaultSettings[key]
	v := l.settings.Get(ctx, key, def)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		log.Printf("Invalid value %q for setting %s, using default %s\n", v, key, def)
		n, _ = strconv.Atoi(def)
	}
	return n
}

func (l *Lifecycle) stringSetting(ctx context.Context, key string) string {
	return l.settings.Get(ctx, key, config.DefaultSettings[key])
}

type trail struct {
	sink          AuditSink
	correlationID string
	now           func() time.Time
	entries       []*models.AuditLog
}

func (t *trail) log(tx *gorm.DB, action types.AuditAction, entity types.EntityType, entityID string, actor types.Actor, details, oldValue, newValue types.JSONB) error {
	entry := &models.AuditLog{
		Timestamp:     t.now(),
		ActionType:    action,
		EntityType:    entity,
		EntityID:      entityID,
		ActorType:     actor.Type,
		ActorID:       actor.ID,
		Details:       details,
		OldValue:      oldValue,
		NewValue:      newValue,
		CorrelationID: t.correlationID,
	}
	if err := t.sink.Log(tx, entry); err != nil {
		return err
	}
	t.entries = append(t.entries, entry)
	return nil
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: clause.CurrentTable},
	})
}

type NopNotifier struct{}

func (NopNotifier) SendBookingConfirmation(context.Context, *models.Booking) error { return nil }
func (NopNotifier) SendPaymentConfirmed(context.Context, *models.Booking) error    { return nil }
func (NopNotifier) SendAdminNotification(context.Context, *models.Booking) error   { return nil }
func (NopNotifier) SendTicketsResend(context.Context, []models.Booking) error      { return nil }
