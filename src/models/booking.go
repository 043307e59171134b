package models

import (
	"strings"
	"ticketbroker/src/types"
	"time"
)

// PaymentIntent holds the informational payment flags. Neither flag moves
// the booking status.
type PaymentIntent struct {
	Initiated        bool       `gorm:"not null;default:false" json:"initiated"`
	InitiatedAt      *time.Time `json:"initiated_at,omitempty"`
	BuyerConfirmed   bool       `gorm:"not null;default:false" json:"buyer_confirmed"`
	BuyerConfirmedAt *time.Time `json:"buyer_confirmed_at,omitempty"`
}

type Booking struct {
	ID             uint                `gorm:"primarykey" json:"id"`
	Reference      string              `gorm:"uniqueIndex;size:5;not null" json:"reference"`
	ShowID         uint                `gorm:"index;not null" json:"show_id"`
	FirstName      string              `gorm:"size:100;not null" json:"first_name"`
	LastName       string              `gorm:"size:100;not null" json:"last_name"`
	Email          string              `gorm:"size:120;not null;index" json:"email"`
	Phone          string              `gorm:"size:20;not null" json:"phone"`
	AdultTickets   int                 `gorm:"not null;default:0" json:"adult_tickets"`
	StudentTickets int                 `gorm:"not null;default:0" json:"student_tickets"`
	AdultPrice     int                 `gorm:"not null" json:"adult_price"`
	StudentPrice   int                 `gorm:"not null" json:"student_price"`
	TotalAmount    int                 `gorm:"not null" json:"total_amount"`
	Status         types.BookingStatus `gorm:"size:16;not null;default:'reserved';index" json:"status"`
	Payment        PaymentIntent       `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	GDPRConsent    bool                `gorm:"not null;default:false" json:"gdpr_consent"`
	ConfirmedAt    *time.Time          `json:"confirmed_at,omitempty"`

	Show    *Show    `gorm:"foreignKey:ShowID" json:"show,omitempty"`
	Tickets []Ticket `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"tickets,omitempty"`

	types.Timestamps
}

func (b *Booking) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

func (b *Booking) TicketCount() int {
	return b.AdultTickets + b.StudentTickets
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == types.BOOKING_CONFIRMED
}

// Recalculate sets TotalAmount from the prices frozen on the booking.
func (b *Booking) Recalculate() {
	b.TotalAmount = b.AdultTickets*b.AdultPrice + b.StudentTickets*b.StudentPrice
}
