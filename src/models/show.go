package models

import (
	"fmt"
	"ticketbroker/src/types"
)

type Show struct {
	ID               uint   `gorm:"primarykey" json:"id"`
	Date             string `gorm:"size:10;not null;index:idx_show_start" json:"date"`
	StartTime        string `gorm:"size:5;not null;index:idx_show_start" json:"start_time"`
	EndTime          string `gorm:"size:5;not null" json:"end_time"`
	TotalTickets     int    `gorm:"not null" json:"total_tickets"`
	AvailableTickets int    `gorm:"not null" json:"available_tickets"`

	Bookings []Booking `gorm:"foreignKey:ShowID;constraint:OnDelete:CASCADE" json:"bookings,omitempty"`

	types.Timestamps
}

func (s *Show) Label() string {
	return fmt.Sprintf("%s %s-%s", s.Date, s.StartTime, s.EndTime)
}

func (s *Show) SoldOut() bool {
	return s.AvailableTickets <= 0
}
