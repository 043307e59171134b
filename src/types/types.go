package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Timestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type BookingStatus string

const (
	BOOKING_RESERVED  BookingStatus = "reserved"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
)

func (s BookingStatus) Valid() bool {
	return s == BOOKING_RESERVED || s == BOOKING_CONFIRMED
}

type TicketType string

const (
	TICKET_NORMAL  TicketType = "normal"
	TICKET_STUDENT TicketType = "student"
)

// Marker is the letter used in ticket references.
func (t TicketType) Marker() string {
	if t == TICKET_NORMAL {
		return "N"
	}
	return "D"
}

type AuditAction string

const (
	ACTION_BOOKING_CREATED         AuditAction = "booking_created"
	ACTION_BOOKING_UPDATED         AuditAction = "booking_updated"
	ACTION_BOOKING_DELETED         AuditAction = "booking_deleted"
	ACTION_PAYMENT_INITIATED       AuditAction = "payment_initiated"
	ACTION_BUYER_PAYMENT_CONFIRMED AuditAction = "buyer_payment_confirmed"
	ACTION_PAYMENT_CONFIRMED       AuditAction = "payment_confirmed"
	ACTION_TICKET_GENERATED        AuditAction = "ticket_generated"
	ACTION_TICKET_DELETED          AuditAction = "ticket_deleted"
	ACTION_TICKET_USED             AuditAction = "ticket_used"
	ACTION_TICKET_STATE_CHANGED    AuditAction = "ticket_state_changed"
	ACTION_SHOW_CREATED            AuditAction = "show_created"
	ACTION_SHOW_DELETED            AuditAction = "show_deleted"
	ACTION_SHOW_CAPACITY_UPDATED   AuditAction = "show_capacity_updated"
	ACTION_SETTINGS_CHANGED        AuditAction = "settings_changed"
	ACTION_NOTIFICATION_RESENT     AuditAction = "notification_resent"
)

type EntityType string

const (
	ENTITY_BOOKING EntityType = "booking"
	ENTITY_TICKET  EntityType = "ticket"
	ENTITY_SHOW    EntityType = "show"
	ENTITY_SETTING EntityType = "setting"
)

type ActorType string

const (
	ACTOR_BUYER  ActorType = "buyer"
	ACTOR_ADMIN  ActorType = "admin"
	ACTOR_SYSTEM ActorType = "system"
)

// Actor identifies who triggered a lifecycle operation.
type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id"`
}

func Admin(id string) Actor {
	return Actor{Type: ACTOR_ADMIN, ID: id}
}

func Buyer(id string) Actor {
	return Actor{Type: ACTOR_BUYER, ID: id}
}

func System() Actor {
	return Actor{Type: ACTOR_SYSTEM, ID: "system"}
}

type BuyerInfo struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=120"`
	Phone     string `json:"phone" binding:"required,phone"`
}

type CreateBookingRequestBody struct {
	ShowID         uint `json:"show_id" binding:"required"`
	AdultTickets   int  `json:"adult_tickets" binding:"min=0"`
	StudentTickets int  `json:"student_tickets" binding:"min=0"`
	GDPRConsent    bool `json:"gdpr_consent"`
	BuyerInfo
}

type EditBookingRequestBody struct {
	FirstName *string `json:"first_name,omitempty" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" binding:"omitempty,max=100"`
	Email     *string `json:"email,omitempty" binding:"omitempty,email"`
	Phone     *string `json:"phone,omitempty" binding:"omitempty,phone"`
}

type BookingEmailRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type BookingLookupQuery struct {
	Reference string `form:"reference" binding:"required,len=5"`
	Email     string `form:"email" binding:"required,email"`
}

type BookingListQuery struct {
	ShowID uint   `form:"show_id"`
	Status string `form:"status" binding:"omitempty,oneof=reserved confirmed"`
}

type CreateShowRequestBody struct {
	Date         string `json:"date" binding:"required"`
	StartTime    string `json:"start_time" binding:"required"`
	EndTime      string `json:"end_time" binding:"required"`
	TotalTickets int    `json:"total_tickets"`
}

type UpdateCapacityRequestBody struct {
	TotalTickets     int `json:"total_tickets"`
	AvailableTickets int `json:"available_tickets"`
}

type DeleteTicketRequestBody struct {
	Reason string `json:"reason,omitempty" binding:"max=255"`
}

type CheckTicketRequestBody struct {
	Code string `json:"code" binding:"required"`
}

type UpdateSettingsRequestBody struct {
	Settings map[string]string `json:"settings" binding:"required,min=1"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type ReferenceRequestParams struct {
	Reference string `uri:"ref" binding:"required"`
}

type PaginationQuery struct {
	Page int `form:"page,default=1" binding:"min=1"`
	Size int `form:"size,default=50" binding:"min=1,max=200"`
}

type TicketListQuery struct {
	ShowID uint `form:"show_id"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
