package common

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"ticketbroker/src/config"
	"ticketbroker/src/models"
	"ticketbroker/src/models/scopes"
	"ticketbroker/src/types"
	"time"

	"gorm.io/gorm"
)

type Availability struct {
	ShowID    uint `json:"show_id"`
	Available int  `json:"available"`
	SoldOut   bool `json:"sold_out"`
}

func (l *Lifecycle) ListShows(ctx context.Context) ([]models.Show, error) {
	var shows []models.Show
	if err := l.db.WithContext(ctx).Scopes(scopes.Chronological).Find(&shows).Error; err != nil {
		return nil, err
	}
	return shows, nil
}

func (l *Lifecycle) GetShow(ctx context.Context, id uint) (*models.Show, error) {
	var show models.Show
	if err := l.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&show).Error; err != nil {
		return nil, notFound(err, CodeShowNotFound)
	}
	return &show, nil
}

func (l *Lifecycle) CreateShow(ctx context.Context, date, start, end string, totalTickets int, actor types.Actor) (*models.Show, error) {
	if totalTickets < 0 {
		return nil, NewValidationError(CodeInvalidCapacity, "total capacity must not be negative")
	}
	if _, err := time.Parse(config.SHOW_DATE_FORMAT, date); err != nil {
		return nil, NewValidationError(CodeInvalidShowTime, fmt.Sprintf("date %q", date))
	}
	startAt, err := time.Parse(config.SHOW_TIME_FORMAT, start)
	if err != nil {
		return nil, NewValidationError(CodeInvalidShowTime, fmt.Sprintf("start time %q", start))
	}
	endAt, err := time.Parse(config.SHOW_TIME_FORMAT, end)
	if err != nil || !endAt.After(startAt) {
		return nil, NewValidationError(CodeInvalidShowTime, fmt.Sprintf("end time %q", end))
	}
	show := models.Show{
		Date:             date,
		StartTime:        startAt.Format(config.SHOW_TIME_FORMAT),
		EndTime:          endAt.Format(config.SHOW_TIME_FORMAT),
		TotalTickets:     totalTickets,
		AvailableTickets: totalTickets,
	}
	err = l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		if err := tx.Create(&show).Error; err != nil {
			return err
		}
		return t.log(tx, types.ACTION_SHOW_CREATED, types.ENTITY_SHOW, showID(show.ID), actor,
			types.JSONB{"label": show.Label(), "total_tickets": totalTickets}, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &show, nil
}

func lockShow(tx *gorm.DB, id uint) (*models.Show, error) {
	var show models.Show
	if err := forUpdate(tx).Scopes(scopes.WithID(id)).First(&show).Error; err != nil {
		return nil, notFound(err, CodeShowNotFound)
	}
	return &show, nil
}

func confirmedTicketCount(tx *gorm.DB, showID uint) (int, error) {
	var sum int64
	if err := tx.Model(&models.Booking{}).
		Scopes(scopes.ForShow(showID), scopes.WithConfirmedStatus).
		Select("COALESCE(SUM(adult_tickets + student_tickets), 0)").
		Scan(&sum).
		Error; err != nil {
		return 0, err
	}
	return int(sum), nil
}

// RecomputeAvailability rescans the confirmed bookings of a show and stores
// available = max(0, total - confirmed). It must run inside the transaction
// that changed the confirmed counts.
func RecomputeAvailability(tx *gorm.DB, id uint) (*models.Show, error) {
	show, _, err := recomputeAvailability(tx, id)
	return show, err
}

func recomputeAvailability(tx *gorm.DB, id uint) (*models.Show, int, error) {
	show, err := lockShow(tx, id)
	if err != nil {
		return nil, 0, err
	}
	confirmed, err := confirmedTicketCount(tx, id)
	if err != nil {
		return nil, 0, err
	}
	available := max(0, show.TotalTickets-confirmed)
	if available != show.AvailableTickets {
		if err := tx.Model(show).Update("available_tickets", available).Error; err != nil {
			return nil, 0, err
		}
		show.AvailableTickets = available
	}
	return show, confirmed, nil
}

func (l *Lifecycle) CheckAvailability(ctx context.Context, id uint) (*Availability, error) {
	var show *models.Show
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		show, err = RecomputeAvailability(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Availability{ShowID: show.ID, Available: show.AvailableTickets, SoldOut: show.SoldOut()}, nil
}

func (l *Lifecycle) DeleteShow(ctx context.Context, id uint, actor types.Actor) error {
	return l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		show, err := lockShow(tx, id)
		if err != nil {
			return err
		}
		var bookings int64
		if err := tx.Model(&models.Booking{}).Scopes(scopes.ForShow(id)).Count(&bookings).Error; err != nil {
			return err
		}
		if bookings > 0 {
			return NewConflictError(CodeShowHasBookings, fmt.Sprintf("show %d has %d bookings", id, bookings))
		}
		if err := tx.Delete(show).Error; err != nil {
			return err
		}
		return t.log(tx, types.ACTION_SHOW_DELETED, types.ENTITY_SHOW, showID(id), actor,
			types.JSONB{"label": show.Label()}, nil, nil)
	})
}

func (l *Lifecycle) UpdateCapacity(ctx context.Context, id uint, newTotal int, newAvailable int, actor types.Actor) (*models.Show, error) {
	if newTotal < 0 || newAvailable < 0 || newAvailable > newTotal {
		return nil, NewValidationError(CodeInvalidCapacity, fmt.Sprintf("total=%d available=%d", newTotal, newAvailable))
	}
	var show *models.Show
	err := l.transact(ctx, func(tx *gorm.DB, t *trail) error {
		var err error
		show, err = lockShow(tx, id)
		if err != nil {
			return err
		}
		confirmed, err := confirmedTicketCount(tx, id)
		if err != nil {
			return err
		}
		if newAvailable < confirmed {
			return NewConflictError(CodeCapacityBelowConfirmed, fmt.Sprintf("available=%d confirmed=%d", newAvailable, confirmed))
		}
		old := types.JSONB{"total_tickets": show.TotalTickets, "available_tickets": show.AvailableTickets}
		if err := tx.Model(show).Updates(map[string]any{
			"total_tickets":     newTotal,
			"available_tickets": newAvailable,
		}).Error; err != nil {
			return err
		}
		show.TotalTickets = newTotal
		show.AvailableTickets = newAvailable
		return t.log(tx, types.ACTION_SHOW_CAPACITY_UPDATED, types.ENTITY_SHOW, showID(id), actor,
			nil, old, types.JSONB{"total_tickets": newTotal, "available_tickets": newAvailable})
	})
	if err != nil {
		return nil, err
	}
	return show, nil
}

// ReconcileAvailability recomputes every show and returns how many were
// out of date.
func (l *Lifecycle) ReconcileAvailability(ctx context.Context) (int, error) {
	var shows []models.Show
	if err := l.db.WithContext(ctx).Select("id", "available_tickets").Find(&shows).Error; err != nil {
		return 0, err
	}
	changed := 0
	for _, s := range shows {
		var show *models.Show
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			show, err = RecomputeAvailability(tx, s.ID)
			return err
		})
		if err != nil {
			log.Printf("Error reconciling availability for show %d: %s\n", s.ID, err.Error())
			continue
		}
		if show.AvailableTickets != s.AvailableTickets {
			log.Printf("Reconciled show %d: available %d -> %d\n", s.ID, s.AvailableTickets, show.AvailableTickets)
			changed++
		}
	}
	return changed, nil
}

func showID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
