package common

import (
	"context"
	"errors"
	"fmt"
	"ticketbroker/src/models"
	"ticketbroker/src/models/scopes"
	"ticketbroker/src/types"
	"time"

	"gorm.io/gorm"
)

// GenerateTicketsForBooking issues the tickets of a confirmed booking. When
// the booking already has tickets they are returned unchanged.
func (l *Lifecycle) GenerateTicketsForBooking(ctx context.Context, ref string, actor types.Actor) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		booking, err := lockBooking(tx, ref)
		if err != nil {
			return err
		}
		tickets, err = l.generateTickets(tx, t, booking, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (l *Lifecycle) generateTickets(tx *gorm.DB, t *trail, booking *models.Booking, actor types.Actor) ([]models.Ticket, error) {
	if !booking.IsConfirmed() {
		return nil, NewInvalidStateError(CodeBookingNotConfirmed, booking.Reference)
	}
	var existing []models.Ticket
	if err := tx.Where("booking_id = ?", booking.ID).Order("number asc").Find(&existing).Error; err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	buyer, err := UpsertBuyer(tx, booking)
	if err != nil {
		return nil, err
	}
	tickets := make([]models.Ticket, 0, booking.TicketCount())
	number := 1
	add := func(ticketType types.TicketType, count int) {
		for i := 0; i < count; i++ {
			tickets = append(tickets, models.Ticket{
				Reference: models.TicketReference(booking.Reference, ticketType, number),
				BookingID: booking.ID,
				Number:    number,
				ShowID:    booking.ShowID,
				BuyerID:   buyer.ID,
				Type:      ticketType,
			})
			number++
		}
	}
	add(types.TICKET_NORMAL, booking.AdultTickets)
	add(types.TICKET_STUDENT, booking.StudentTickets)
	if len(tickets) == 0 {
		return tickets, nil
	}
	if err := tx.Create(&tickets).Error; err != nil {
		return nil, err
	}
	for _, ticket := range tickets {
		if err := t.log(tx, types.ACTION_TICKET_GENERATED, types.ENTITY_TICKET, ticket.Reference, actor,
			types.JSONB{
				"booking_reference": booking.Reference,
				"ticket_type":       ticket.Type,
				"ticket_number":     ticket.Number,
				"buyer_id":          buyer.ID,
			}, nil, nil); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

// UpsertBuyer creates the buyer for the booking's phone number or refreshes
// the stored name and email.
func UpsertBuyer(tx *gorm.DB, booking *models.Booking) (*models.Buyer, error) {
	phone := NormalizePhone(booking.Phone)
	var buyer models.Buyer
	err := tx.Where(&models.Buyer{Phone: phone}).First(&buyer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		buyer = models.Buyer{
			Phone:     phone,
			FirstName: booking.FirstName,
			LastName:  booking.LastName,
			Email:     booking.Email,
		}
		if err := tx.Create(&buyer).Error; err != nil {
			return nil, err
		}
		return &buyer, nil
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Model(&buyer).Updates(map[string]any{
		"first_name": booking.FirstName,
		"last_name":  booking.LastName,
		"email":      booking.Email,
	}).Error; err != nil {
		return nil, err
	}
	buyer.FirstName = booking.FirstName
	buyer.LastName = booking.LastName
	buyer.Email = booking.Email
	return &buyer, nil
}

func lockTicket(tx *gorm.DB, ref string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := forUpdate(tx).Scopes(scopes.WithReference(NormalizeReference(ref))).First(&ticket).Error; err != nil {
		return nil, notFound(err, CodeTicketNotFound)
	}
	return &ticket, nil
}

// DeleteTicket removes an unused ticket and shrinks its booking. The booking
// total is recomputed from the prices frozen on the booking.
func (l *Lifecycle) DeleteTicket(ctx context.Context, ref string, actor types.Actor, reason string) (*models.Booking, error) {
	var booking models.Booking
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		ticket, err := lockTicket(tx, ref)
		if err != nil {
			return err
		}
		if ticket.IsUsed {
			return NewValidationError(CodeTicketUsed, ticket.Reference)
		}
		if err := forUpdate(tx).Scopes(scopes.WithID(ticket.BookingID)).First(&booking).Error; err != nil {
			return notFound(err, CodeBookingNotFound)
		}
		old := types.JSONB{
			"adult_tickets":   booking.AdultTickets,
			"student_tickets": booking.StudentTickets,
			"total_amount":    booking.TotalAmount,
		}
		if ticket.Type == types.TICKET_NORMAL {
			booking.AdultTickets = max(0, booking.AdultTickets-1)
		} else {
			booking.StudentTickets = max(0, booking.StudentTickets-1)
		}
		booking.Recalculate()
		if err := tx.Model(&booking).Updates(map[string]any{
			"adult_tickets":   booking.AdultTickets,
			"student_tickets": booking.StudentTickets,
			"total_amount":    booking.TotalAmount,
		}).Error; err != nil {
			return err
		}
		if _, err := RecomputeAvailability(tx, booking.ShowID); err != nil {
			return err
		}
		if err := tx.Delete(ticket).Error; err != nil {
			return err
		}
		return t.log(tx, types.ACTION_TICKET_DELETED, types.ENTITY_TICKET, ticket.Reference, actor,
			types.JSONB{
				"reason":            reason,
				"booking_reference": booking.Reference,
				"ticket_type":       ticket.Type,
			},
			old,
			types.JSONB{
				"adult_tickets":   booking.AdultTickets,
				"student_tickets": booking.StudentTickets,
				"total_amount":    booking.TotalAmount,
			})
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ChangeTicketState toggles the used flag so door staff can undo a mis-scan.
func (l *Lifecycle) ChangeTicketState(ctx context.Context, ref string, actor types.Actor) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		var err error
		ticket, err = lockTicket(tx, ref)
		if err != nil {
			return err
		}
		if ticket.IsUsed {
			if err := tx.Model(ticket).Updates(map[string]any{
				"is_used":    false,
				"used_at":    nil,
				"checked_by": nil,
			}).Error; err != nil {
				return err
			}
			ticket.IsUsed = false
			ticket.UsedAt = nil
			ticket.CheckedBy = nil
			return t.log(tx, types.ACTION_TICKET_STATE_CHANGED, types.ENTITY_TICKET, ticket.Reference, actor,
				types.JSONB{"action": "marked_unused", "new_state": "unused"},
				types.JSONB{"is_used": true}, types.JSONB{"is_used": false})
		}
		if err := markUsed(tx, ticket, actor, l.timestamp()); err != nil {
			return err
		}
		if err := t.log(tx, types.ACTION_TICKET_USED, types.ENTITY_TICKET, ticket.Reference, actor, nil, nil, nil); err != nil {
			return err
		}
		return t.log(tx, types.ACTION_TICKET_STATE_CHANGED, types.ENTITY_TICKET, ticket.Reference, actor,
			types.JSONB{"action": "marked_used", "new_state": "used"},
			types.JSONB{"is_used": false}, types.JSONB{"is_used": true})
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// CheckTicket is the door scan. It only ever moves a ticket to used.
func (l *Lifecycle) CheckTicket(ctx context.Context, ref string, actor types.Actor) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		var err error
		ticket, err = lockTicket(tx, ref)
		if err != nil {
			return err
		}
		if ticket.IsUsed {
			detail := ticket.Reference
			if ticket.UsedAt != nil {
				detail = fmt.Sprintf("%s used at %s", ticket.Reference, ticket.UsedAt.Format(time.RFC3339))
			}
			return NewInvalidStateError(CodeTicketAlreadyUsed, detail)
		}
		if err := markUsed(tx, ticket, actor, l.timestamp()); err != nil {
			return err
		}
		return t.log(tx, types.ACTION_TICKET_USED, types.ENTITY_TICKET, ticket.Reference, actor,
			types.JSONB{"source": "door_scan"}, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	var booking models.Booking
	if err := l.db.WithContext(ctx).Preload("Show").Scopes(scopes.WithID(ticket.BookingID)).First(&booking).Error; err == nil {
		ticket.Booking = &booking
	}
	return ticket, nil
}

func markUsed(tx *gorm.DB, ticket *models.Ticket, actor types.Actor, at time.Time) error {
	checkedBy := actor.ID
	if err := tx.Model(ticket).Updates(map[string]any{
		"is_used":    true,
		"used_at":    at,
		"checked_by": checkedBy,
	}).Error; err != nil {
		return err
	}
	ticket.IsUsed = true
	ticket.UsedAt = &at
	ticket.CheckedBy = &checkedBy
	return nil
}

func (l *Lifecycle) GetTicket(ctx context.Context, ref string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := l.db.WithContext(ctx).
		Scopes(scopes.WithReference(NormalizeReference(ref))).
		Preload("Booking").
		Preload("Booking.Show").
		First(&ticket).
		Error; err != nil {
		return nil, notFound(err, CodeTicketNotFound)
	}
	return &ticket, nil
}

func (l *Lifecycle) ListTickets(ctx context.Context, showID uint) ([]models.Ticket, error) {
	q := l.db.WithContext(ctx).Model(&models.Ticket{})
	if showID != 0 {
		q = q.Scopes(scopes.ForShow(showID))
	}
	var tickets []models.Ticket
	if err := q.Preload("Booking").Preload("Buyer").Order("show_id asc").Order("reference asc").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
