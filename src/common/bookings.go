package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"ticketbroker/src/config"
	"ticketbroker/src/models"
	"ticketbroker/src/models/scopes"
	"ticketbroker/src/types"

	"gorm.io/gorm"
)

type BookingInput struct {
	ShowID         uint
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	AdultTickets   int
	StudentTickets int
	GDPRConsent    bool
}

// ContactFields are the only booking fields that may change after creation.
type ContactFields struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

type BookingFilter struct {
	ShowID uint
	Status types.BookingStatus
}

func (l *Lifecycle) CreateBooking(ctx context.Context, in BookingInput) (*Outcome, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateContact(in.FirstName, in.LastName, in.Email, in.Phone); err != nil {
		return nil, err
	}
	if !in.GDPRConsent {
		return nil, NewValidationError(CodeGDPRConsentRequired, "consent is required")
	}
	maxTickets := l.intSetting(ctx, config.SETTING_MAX_TICKETS)
	requested := in.AdultTickets + in.StudentTickets
	if in.AdultTickets < 0 || in.StudentTickets < 0 || requested <= 0 || requested > maxTickets {
		return nil, newTicketCountError(requested, maxTickets)
	}
	adultPrice := l.intSetting(ctx, config.SETTING_ADULT_PRICE)
	studentPrice := l.intSetting(ctx, config.SETTING_STUDENT_PRICE)
	swishNumber := l.stringSetting(ctx, config.SETTING_SWISH_NUMBER)

	booking := models.Booking{
		ShowID:         in.ShowID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          NormalizePhone(in.Phone),
		AdultTickets:   in.AdultTickets,
		StudentTickets: in.StudentTickets,
		AdultPrice:     adultPrice,
		StudentPrice:   studentPrice,
		Status:         types.BOOKING_RESERVED,
		GDPRConsent:    true,
	}
	booking.Recalculate()

	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		show, err := RecomputeAvailability(tx, in.ShowID)
		if err != nil {
			return err
		}
		if show.SoldOut() {
			return NewConflictError(CodeShowSoldOut, fmt.Sprintf("show %d", show.ID))
		}
		if requested > show.AvailableTickets {
			return NewConflictError(CodeNotEnoughTickets, fmt.Sprintf("requested %d, available %d", requested, show.AvailableTickets))
		}
		ref, err := l.newBookingReference(tx)
		if err != nil {
			return err
		}
		booking.Reference = ref
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		booking.Show = show
		return t.log(tx, types.ACTION_BOOKING_CREATED, types.ENTITY_BOOKING, booking.Reference, types.Buyer(booking.Phone),
			types.JSONB{
				"show_id":         booking.ShowID,
				"adult_tickets":   booking.AdultTickets,
				"student_tickets": booking.StudentTickets,
				"total_amount":    booking.TotalAmount,
			}, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{Booking: &booking, PaymentURL: PaymentURL(swishNumber, booking.TotalAmount, booking.Reference)}
	if err := l.notifier.SendBookingConfirmation(ctx, &booking); err != nil {
		out.warn(WarnConfirmationEmail, err)
	}
	return out, nil
}

func lockBooking(tx *gorm.DB, ref string) (*models.Booking, error) {
	var booking models.Booking
	if err := forUpdate(tx).Scopes(scopes.WithReference(NormalizeReference(ref))).First(&booking).Error; err != nil {
		return nil, notFound(err, CodeBookingNotFound)
	}
	return &booking, nil
}

func (l *Lifecycle) InitiatePayment(ctx context.Context, ref string) (*Outcome, error) {
	out := &Outcome{}
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		booking, err := lockBooking(tx, ref)
		if err != nil {
			return err
		}
		out.Booking = booking
		if booking.IsConfirmed() {
			out.AlreadyConfirmed = true
			return nil
		}
		now := l.timestamp()
		if err := tx.Model(booking).Updates(map[string]any{
			"payment_initiated":    true,
			"payment_initiated_at": now,
		}).Error; err != nil {
			return err
		}
		booking.Payment.Initiated = true
		booking.Payment.InitiatedAt = &now
		return t.log(tx, types.ACTION_PAYMENT_INITIATED, types.ENTITY_BOOKING, booking.Reference, types.Buyer(booking.Phone),
			types.JSONB{"total_amount": booking.TotalAmount}, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	if !out.AlreadyConfirmed {
		number := l.stringSetting(ctx, config.SETTING_SWISH_NUMBER)
		out.PaymentURL = PaymentURL(number, out.Booking.TotalAmount, out.Booking.Reference)
	}
	return out, nil
}

func (l *Lifecycle) BuyerConfirmPayment(ctx context.Context, ref string) (*Outcome, error) {
	out := &Outcome{}
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		booking, err := lockBooking(tx, ref)
		if err != nil {
			return err
		}
		out.Booking = booking
		if booking.IsConfirmed() {
			out.AlreadyConfirmed = true
			return nil
		}
		now := l.timestamp()
		if err := tx.Model(booking).Updates(map[string]any{
			"payment_buyer_confirmed":    true,
			"payment_buyer_confirmed_at": now,
		}).Error; err != nil {
			return err
		}
		booking.Payment.BuyerConfirmed = true
		booking.Payment.BuyerConfirmedAt = &now
		return t.log(tx, types.ACTION_BUYER_PAYMENT_CONFIRMED, types.ENTITY_BOOKING, booking.Reference, types.Buyer(booking.Phone),
			nil, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	if out.AlreadyConfirmed {
		return out, nil
	}
	if err := l.attachShow(ctx, out.Booking); err == nil {
		if err := l.notifier.SendAdminNotification(ctx, out.Booking); err != nil {
			out.warn(WarnAdminEmail, err)
		}
	} else {
		out.warn(WarnAdminEmail, err)
	}
	return out, nil
}

// AdminConfirmPayment is the only transition into the confirmed state and
// the only place tickets are created.
func (l *Lifecycle) AdminConfirmPayment(ctx context.Context, ref string, actor types.Actor) (*Outcome, error) {
	out := &Outcome{}
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		booking, err := lockBooking(tx, ref)
		if err != nil {
			return err
		}
		out.Booking = booking
		if booking.IsConfirmed() {
			out.AlreadyConfirmed = true
			return nil
		}
		now := l.timestamp()
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, types.BOOKING_RESERVED).
			Updates(map[string]any{
				"status":       types.BOOKING_CONFIRMED,
				"confirmed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out.AlreadyConfirmed = true
			return nil
		}
		booking.Status = types.BOOKING_CONFIRMED
		booking.ConfirmedAt = &now

		show, confirmed, err := recomputeAvailability(tx, booking.ShowID)
		if err != nil {
			return err
		}
		booking.Show = show
		if confirmed > show.TotalTickets {
			out.warn(WarnShowOversold, fmt.Errorf("show %d has %d confirmed tickets for %d seats", show.ID, confirmed, show.TotalTickets))
		}
		if err := t.log(tx, types.ACTION_PAYMENT_CONFIRMED, types.ENTITY_BOOKING, booking.Reference, actor,
			types.JSONB{"total_amount": booking.TotalAmount},
			types.JSONB{"status": types.BOOKING_RESERVED},
			types.JSONB{"status": types.BOOKING_CONFIRMED},
		); err != nil {
			return err
		}
		tickets, err := l.generateTickets(tx, t, booking, actor)
		if err != nil {
			return err
		}
		booking.Tickets = tickets
		out.Tickets = tickets
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.AlreadyConfirmed {
		return out, nil
	}
	if err := l.notifier.SendPaymentConfirmed(ctx, out.Booking); err != nil {
		out.ticketsWarning(err)
	}
	return out, nil
}

func (l *Lifecycle) EditBooking(ctx context.Context, ref string, fields ContactFields, actor types.Actor) (*models.Booking, error) {
	var booking *models.Booking
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		var err error
		booking, err = lockBooking(tx, ref)
		if err != nil {
			return err
		}
		old := types.JSONB{}
		changes := types.JSONB{}
		apply := func(column string, current *string, value *string) {
			if value == nil {
				return
			}
			v := strings.TrimSpace(*value)
			if v == *current {
				return
			}
			old[column] = *current
			changes[column] = v
			*current = v
		}
		if fields.Phone != nil {
			phone := NormalizePhone(*fields.Phone)
			fields.Phone = &phone
		}
		apply("first_name", &booking.FirstName, fields.FirstName)
		apply("last_name", &booking.LastName, fields.LastName)
		apply("email", &booking.Email, fields.Email)
		apply("phone", &booking.Phone, fields.Phone)
		if len(changes) == 0 {
			return nil
		}
		if err := validateContact(booking.FirstName, booking.LastName, booking.Email, booking.Phone); err != nil {
			return err
		}
		if err := tx.Model(booking).Updates(map[string]any(changes)).Error; err != nil {
			return err
		}
		if booking.IsConfirmed() {
			// issued tickets follow the booking's contact details
			buyer, err := UpsertBuyer(tx, booking)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.Ticket{}).Where("booking_id = ?", booking.ID).Update("buyer_id", buyer.ID).Error; err != nil {
				return err
			}
		}
		return t.log(tx, types.ACTION_BOOKING_UPDATED, types.ENTITY_BOOKING, booking.Reference, actor, nil, old, changes)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (l *Lifecycle) DeleteBooking(ctx context.Context, ref string, actor types.Actor) error {
	return l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		booking, err := lockBooking(tx, ref)
		if err != nil {
			return err
		}
		// availability is recomputed with the booking still present, then
		// again once it is gone
		if _, err := RecomputeAvailability(tx, booking.ShowID); err != nil {
			return err
		}
		var ticketCount int64
		if err := tx.Model(&models.Ticket{}).Where("booking_id = ?", booking.ID).Count(&ticketCount).Error; err != nil {
			return err
		}
		if err := tx.Where("booking_id = ?", booking.ID).Delete(&models.Ticket{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(booking).Error; err != nil {
			return err
		}
		if _, err := RecomputeAvailability(tx, booking.ShowID); err != nil {
			return err
		}
		return t.log(tx, types.ACTION_BOOKING_DELETED, types.ENTITY_BOOKING, booking.Reference, actor,
			types.JSONB{
				"show_id":         booking.ShowID,
				"name":            booking.FullName(),
				"status":          booking.Status,
				"adult_tickets":   booking.AdultTickets,
				"student_tickets": booking.StudentTickets,
				"tickets_deleted": ticketCount,
			}, nil, nil)
	})
}

func (l *Lifecycle) ResendConfirmation(ctx context.Context, ref string, actor types.Actor) (*Outcome, error) {
	booking, err := l.GetBooking(ctx, ref)
	if err != nil {
		return nil, err
	}
	if booking.IsConfirmed() {
		return nil, NewInvalidStateError(CodeBookingConfirmed, booking.Reference)
	}
	out := &Outcome{Booking: booking}
	if err := l.notifier.SendBookingConfirmation(ctx, booking); err != nil {
		out.warn(WarnConfirmationEmail, err)
		return out, nil
	}
	l.logResend(ctx, booking.Reference, "booking_confirmation", actor)
	return out, nil
}

func (l *Lifecycle) ResendTickets(ctx context.Context, ref string, actor types.Actor) (*Outcome, error) {
	booking, err := l.GetBooking(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !booking.IsConfirmed() {
		return nil, NewInvalidStateError(CodeBookingNotConfirmed, booking.Reference)
	}
	out := &Outcome{Booking: booking, Tickets: booking.Tickets}
	if err := l.notifier.SendTicketsResend(ctx, []models.Booking{*booking}); err != nil {
		out.ticketsWarning(err)
		if !errors.Is(err, ErrTicketsPDF) {
			return out, nil
		}
	}
	l.logResend(ctx, booking.Reference, "tickets", actor)
	return out, nil
}

// ResendTicketsForEmail sends every confirmed booking of one buyer in a
// single message.
func (l *Lifecycle) ResendTicketsForEmail(ctx context.Context, email string, actor types.Actor) ([]models.Booking, []string, error) {
	email = strings.TrimSpace(email)
	var bookings []models.Booking
	if err := l.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Scopes(scopes.WithConfirmedStatus).
		Preload("Show").
		Preload("Tickets", func(db *gorm.DB) *gorm.DB { return db.Order("number asc") }).
		Order("id asc").
		Find(&bookings).
		Error; err != nil {
		return nil, nil, err
	}
	if len(bookings) == 0 {
		return nil, nil, NewNotFoundError(CodeBookingNotFound, email)
	}
	out := &Outcome{}
	if err := l.notifier.SendTicketsResend(ctx, bookings); err != nil {
		out.ticketsWarning(err)
		if !errors.Is(err, ErrTicketsPDF) {
			return bookings, out.Warnings, nil
		}
	}
	for _, b := range bookings {
		l.logResend(ctx, b.Reference, "tickets", actor)
	}
	return bookings, out.Warnings, nil
}

func (l *Lifecycle) logResend(ctx context.Context, ref string, kind string, actor types.Actor) {
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		return t.log(tx, types.ACTION_NOTIFICATION_RESENT, types.ENTITY_BOOKING, ref, actor,
			types.JSONB{"notification": kind}, nil, nil)
	})
	if err != nil {
		log.Printf("Error logging resend of %s for %s: %s\n", kind, ref, err.Error())
	}
}

// FindBooking is the public lookup. Both the reference and the email must
// match.
func (l *Lifecycle) FindBooking(ctx context.Context, ref string, email string) (*models.Booking, error) {
	var booking models.Booking
	if err := l.db.WithContext(ctx).
		Scopes(scopes.WithReference(NormalizeReference(ref))).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Preload("Show").
		Preload("Tickets", func(db *gorm.DB) *gorm.DB { return db.Order("number asc") }).
		First(&booking).
		Error; err != nil {
		return nil, notFound(err, CodeBookingNotFound)
	}
	return &booking, nil
}

func (l *Lifecycle) GetBooking(ctx context.Context, ref string) (*models.Booking, error) {
	var booking models.Booking
	if err := l.db.WithContext(ctx).
		Scopes(scopes.WithReference(NormalizeReference(ref))).
		Preload("Show").
		Preload("Tickets", func(db *gorm.DB) *gorm.DB { return db.Order("number asc") }).
		First(&booking).
		Error; err != nil {
		return nil, notFound(err, CodeBookingNotFound)
	}
	return &booking, nil
}

func (l *Lifecycle) ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	q := l.db.WithContext(ctx).Model(&models.Booking{})
	if filter.ShowID != 0 {
		q = q.Scopes(scopes.ForShow(filter.ShowID))
	}
	if filter.Status != "" {
		q = q.Scopes(scopes.WithStatus(filter.Status))
	}
	var bookings []models.Booking
	if err := q.Preload("Show").Scopes(scopes.NewestFirst).Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (l *Lifecycle) attachShow(ctx context.Context, booking *models.Booking) error {
	if booking.Show != nil {
		return nil
	}
	show, err := l.GetShow(ctx, booking.ShowID)
	if err != nil {
		return err
	}
	booking.Show = show
	return nil
}
