package models

import "ticketbroker/src/types"

// Buyer is shared by every ticket issued to the same phone number.
type Buyer struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Phone     string `gorm:"uniqueIndex;size:20;not null" json:"phone"`
	FirstName string `gorm:"size:100" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Email     string `gorm:"size:120" json:"email"`

	Tickets []Ticket `gorm:"foreignKey:BuyerID" json:"tickets,omitempty"`

	types.Timestamps
}
