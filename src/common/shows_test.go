package common

import (
	"ticketbroker/src/models"
	"ticketbroker/src/types"
)

func (s *LifecycleSuite) TestCreateShowValidation() {
	_, err := s.Lifecycle.CreateShow(s.ctx, "2026-01-29", "19:00", "20:00", -1, admin)
	s.ErrorIs(err, ErrValidation)
	s.Equal(CodeInvalidCapacity, ErrorCode(err))

	_, err = s.Lifecycle.CreateShow(s.ctx, "29/1 2026", "19:00", "20:00", 10, admin)
	s.ErrorIs(err, ErrValidation)

	_, err = s.Lifecycle.CreateShow(s.ctx, "2026-01-29", "19:00", "18:00", 10, admin)
	s.ErrorIs(err, ErrValidation)
	s.Equal(CodeInvalidShowTime, ErrorCode(err))

	show, err := s.Lifecycle.CreateShow(s.ctx, "2026-01-29", "19:00", "20:00", 0, admin)
	s.Require().NoError(err)
	s.True(show.SoldOut())
	s.EqualValues(1, s.auditCount(types.ACTION_SHOW_CREATED, showID(show.ID)))
}

func (s *LifecycleSuite) TestListShowsIsChronological() {
	late, err := s.Lifecycle.CreateShow(s.ctx, "2026-01-29", "19:00", "20:00", 100, admin)
	s.Require().NoError(err)
	early, err := s.Lifecycle.CreateShow(s.ctx, "2026-01-29", "17:45", "18:45", 100, admin)
	s.Require().NoError(err)

	shows, err := s.Lifecycle.ListShows(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(shows, 2)
	s.Equal(early.ID, shows[0].ID)
	s.Equal(late.ID, shows[1].ID)
}

func (s *LifecycleSuite) TestDeleteShowWithBookingsConflicts() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 0)

	err := s.Lifecycle.DeleteShow(s.ctx, show.ID, admin)
	s.ErrorIs(err, ErrConflict)
	s.Equal(CodeShowHasBookings, ErrorCode(err))

	s.Require().NoError(s.Lifecycle.DeleteBooking(s.ctx, b.Reference, admin))
	s.Require().NoError(s.Lifecycle.DeleteShow(s.ctx, show.ID, admin))
	_, err = s.Lifecycle.GetShow(s.ctx, show.ID)
	s.ErrorIs(err, ErrNotFound)

	err = s.Lifecycle.DeleteShow(s.ctx, show.ID, admin)
	s.ErrorIs(err, ErrNotFound)
}

func (s *LifecycleSuite) TestUpdateCapacity() {
	show := s.createShow(10)
	s.confirm(s.book(show.ID, 3, 0).Reference)

	_, err := s.Lifecycle.UpdateCapacity(s.ctx, show.ID, 10, 11, admin)
	s.ErrorIs(err, ErrValidation)
	_, err = s.Lifecycle.UpdateCapacity(s.ctx, show.ID, -1, 0, admin)
	s.ErrorIs(err, ErrValidation)

	_, err = s.Lifecycle.UpdateCapacity(s.ctx, show.ID, 10, 2, admin)
	s.ErrorIs(err, ErrConflict)
	s.Equal(CodeCapacityBelowConfirmed, ErrorCode(err))

	updated, err := s.Lifecycle.UpdateCapacity(s.ctx, show.ID, 20, 17, admin)
	s.Require().NoError(err)
	s.Equal(20, updated.TotalTickets)
	s.Equal(17, updated.AvailableTickets)
	s.assertAvailability(show.ID)

	var entry models.AuditLog
	s.Require().NoError(s.DB.Where("action_type = ?", types.ACTION_SHOW_CAPACITY_UPDATED).First(&entry).Error)
	s.EqualValues(10, entry.OldValue["total_tickets"])
	s.EqualValues(20, entry.NewValue["total_tickets"])
}

func (s *LifecycleSuite) TestCheckAvailabilityRecomputes() {
	show := s.createShow(4)
	s.confirm(s.book(show.ID, 1, 1).Reference)
	s.Require().NoError(s.DB.Model(&models.Show{}).Where("id = ?", show.ID).Update("available_tickets", 4).Error)

	avail, err := s.Lifecycle.CheckAvailability(s.ctx, show.ID)
	s.Require().NoError(err)
	s.Equal(2, avail.Available)
	s.False(avail.SoldOut)
	s.Equal(2, s.reloadShow(show.ID).AvailableTickets)

	_, err = s.Lifecycle.CheckAvailability(s.ctx, 404)
	s.ErrorIs(err, ErrNotFound)
}

func (s *LifecycleSuite) TestReconcileAvailabilityFixesDrift() {
	drifted := s.createShow(10)
	steady := s.createShow(10)
	s.confirm(s.book(drifted.ID, 2, 0).Reference)
	s.confirm(s.book(steady.ID, 1, 0).Reference)
	s.Require().NoError(s.DB.Model(&models.Show{}).Where("id = ?", drifted.ID).Update("available_tickets", 1).Error)

	changed, err := s.Lifecycle.ReconcileAvailability(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, changed)
	s.Equal(8, s.reloadShow(drifted.ID).AvailableTickets)
	s.Equal(9, s.reloadShow(steady.ID).AvailableTickets)

	changed, err = s.Lifecycle.ReconcileAvailability(s.ctx)
	s.Require().NoError(err)
	s.Zero(changed)
}

func (s *LifecycleSuite) TestListAuditLogsNewestFirst() {
	show := s.createShow(10)
	s.book(show.ID, 1, 0)

	logs, total, err := ListAuditLogs(s.ctx, s.DB, 1, 1)
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Require().Len(logs, 1)
	s.Equal(types.ACTION_BOOKING_CREATED, logs[0].ActionType)
}
