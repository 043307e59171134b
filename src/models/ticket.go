package models

import (
	"fmt"
	"ticketbroker/src/types"
	"time"
)

type Ticket struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	Reference string           `gorm:"uniqueIndex;size:16;not null" json:"reference"`
	BookingID uint             `gorm:"uniqueIndex:idx_ticket_booking_number;not null" json:"booking_id"`
	Number    int              `gorm:"uniqueIndex:idx_ticket_booking_number;not null" json:"number"`
	ShowID    uint             `gorm:"index;not null" json:"show_id"`
	BuyerID   uint             `gorm:"index" json:"buyer_id"`
	Type      types.TicketType `gorm:"size:16;not null" json:"type"`
	IsUsed    bool             `gorm:"not null;default:false" json:"is_used"`
	UsedAt    *time.Time       `json:"used_at,omitempty"`
	CheckedBy *string          `gorm:"size:100" json:"checked_by,omitempty"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
	Buyer   *Buyer   `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`

	types.Timestamps
}

func TicketReference(bookingRef string, t types.TicketType, number int) string {
	return fmt.Sprintf("%s-%s%02d", bookingRef, t.Marker(), number)
}
