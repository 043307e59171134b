package common

import (
	"ticketbroker/src/config"
	"ticketbroker/src/models"
	"ticketbroker/src/types"
	"time"
)

func (s *LifecycleSuite) TestTicketReferencesAreNumberedAcrossTypes() {
	show := s.createShow(10)
	s.refs = []string{"AB3K9"}
	b := s.book(show.ID, 2, 1)

	out := s.confirm(b.Reference)
	s.Require().Len(out.Tickets, 3)
	s.Equal("AB3K9-N01", out.Tickets[0].Reference)
	s.Equal("AB3K9-N02", out.Tickets[1].Reference)
	s.Equal("AB3K9-D03", out.Tickets[2].Reference)
	s.Equal(types.TICKET_STUDENT, out.Tickets[2].Type)
	for _, t := range out.Tickets {
		s.False(t.IsUsed)
		s.Equal(show.ID, t.ShowID)
		s.NotZero(t.BuyerID)
	}
	s.EqualValues(3, s.auditCount(types.ACTION_TICKET_GENERATED, ""))
}

func (s *LifecycleSuite) TestGenerateTicketsRequiresConfirmedBooking() {
	show := s.createShow(10)
	b := s.book(show.ID, 2, 0)

	tickets, err := s.Lifecycle.GenerateTicketsForBooking(s.ctx, b.Reference, admin)
	s.ErrorIs(err, ErrInvalidState)
	s.Nil(tickets)

	var count int64
	s.Require().NoError(s.DB.Model(&models.Ticket{}).Count(&count).Error)
	s.Zero(count)

	issued := s.confirm(b.Reference).Tickets
	again, err := s.Lifecycle.GenerateTicketsForBooking(s.ctx, b.Reference, admin)
	s.Require().NoError(err)
	s.Len(again, 2)
	s.Equal(issued[0].ID, again[0].ID)
	s.EqualValues(2, s.auditCount(types.ACTION_TICKET_GENERATED, ""))
}

func (s *LifecycleSuite) TestBuyerIsSharedByPhone() {
	show := s.createShow(10)
	a := s.book(show.ID, 1, 0)
	in := bookingInput(show.ID, 1, 0)
	in.Phone = "070-123 45 67"
	in.FirstName = "Annika"
	out, err := s.Lifecycle.CreateBooking(s.ctx, in)
	s.Require().NoError(err)

	first := s.confirm(a.Reference).Tickets[0]
	second := s.confirm(out.Booking.Reference).Tickets[0]
	s.Equal(first.BuyerID, second.BuyerID)

	var buyer models.Buyer
	s.Require().NoError(s.DB.First(&buyer, first.BuyerID).Error)
	s.Equal("0701234567", buyer.Phone)
	s.Equal("Annika", buyer.FirstName)
}

func (s *LifecycleSuite) TestDeleteUsedTicketIsRejected() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 0)
	ticket := s.confirm(b.Reference).Tickets[0]

	_, err := s.Lifecycle.CheckTicket(s.ctx, ticket.Reference, admin)
	s.Require().NoError(err)

	_, err = s.Lifecycle.DeleteTicket(s.ctx, ticket.Reference, admin, "refund")
	s.ErrorIs(err, ErrValidation)
	s.Equal(CodeTicketUsed, ErrorCode(err))

	stored, err := s.Lifecycle.GetTicket(s.ctx, ticket.Reference)
	s.Require().NoError(err)
	s.True(stored.IsUsed)
}

func (s *LifecycleSuite) TestDeleteTicketShrinksBooking() {
	show := s.createShow(10)
	b := s.book(show.ID, 2, 1)
	tickets := s.confirm(b.Reference).Tickets
	s.Equal(7, s.reloadShow(show.ID).AvailableTickets)

	// later price changes must not leak into existing bookings
	s.Require().NoError(s.Settings.Set(s.ctx, config.SETTING_STUDENT_PRICE, "150", admin))

	booking, err := s.Lifecycle.DeleteTicket(s.ctx, tickets[2].Reference, admin, "refund")
	s.Require().NoError(err)
	s.Equal(2, booking.AdultTickets)
	s.Equal(0, booking.StudentTickets)
	s.Equal(400, booking.TotalAmount)
	s.Equal(8, s.reloadShow(show.ID).AvailableTickets)
	s.assertAvailability(show.ID)

	_, err = s.Lifecycle.GetTicket(s.ctx, tickets[2].Reference)
	s.ErrorIs(err, ErrNotFound)

	var entry models.AuditLog
	s.Require().NoError(s.DB.Where("action_type = ?", types.ACTION_TICKET_DELETED).First(&entry).Error)
	s.Equal("refund", entry.Details["reason"])
	s.EqualValues(500, entry.OldValue["total_amount"])
	s.EqualValues(400, entry.NewValue["total_amount"])

	// a booking may shrink to zero tickets and stays confirmed
	for _, t := range tickets[:2] {
		_, err := s.Lifecycle.DeleteTicket(s.ctx, t.Reference, admin, "")
		s.Require().NoError(err)
	}
	stored, err := s.Lifecycle.GetBooking(s.ctx, b.Reference)
	s.Require().NoError(err)
	s.Zero(stored.TicketCount())
	s.Zero(stored.TotalAmount)
	s.True(stored.IsConfirmed())
	s.Equal(10, s.reloadShow(show.ID).AvailableTickets)
}

func (s *LifecycleSuite) TestChangeTicketStateToggles() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 0)
	ref := s.confirm(b.Reference).Tickets[0].Reference

	used, err := s.Lifecycle.ChangeTicketState(s.ctx, ref, admin)
	s.Require().NoError(err)
	s.True(used.IsUsed)
	s.NotNil(used.UsedAt)
	s.Require().NotNil(used.CheckedBy)
	s.Equal("door-admin", *used.CheckedBy)

	unused, err := s.Lifecycle.ChangeTicketState(s.ctx, ref, admin)
	s.Require().NoError(err)
	s.False(unused.IsUsed)
	s.Nil(unused.UsedAt)

	stored, err := s.Lifecycle.GetTicket(s.ctx, ref)
	s.Require().NoError(err)
	s.False(stored.IsUsed)
	s.Nil(stored.CheckedBy)
	s.EqualValues(2, s.auditCount(types.ACTION_TICKET_STATE_CHANGED, ref))
	s.EqualValues(1, s.auditCount(types.ACTION_TICKET_USED, ref))
}

func (s *LifecycleSuite) TestCheckTicketIsOneWay() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 0)
	ref := s.confirm(b.Reference).Tickets[0].Reference

	ticket, err := s.Lifecycle.CheckTicket(s.ctx, ref, admin)
	s.Require().NoError(err)
	s.True(ticket.IsUsed)
	s.Require().NotNil(ticket.Booking)
	s.Require().NotNil(ticket.Booking.Show)
	s.Equal(show.ID, ticket.Booking.Show.ID)

	_, err = s.Lifecycle.CheckTicket(s.ctx, ref, admin)
	s.ErrorIs(err, ErrInvalidState)
	s.Equal(CodeTicketAlreadyUsed, ErrorCode(err))

	_, err = s.Lifecycle.CheckTicket(s.ctx, "ZZZZZ-N01", admin)
	s.ErrorIs(err, ErrNotFound)
}

func (s *LifecycleSuite) TestCheckTicketRecordsScanTime() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 0)
	ref := s.confirm(b.Reference).Tickets[0].Reference

	at := time.Date(2026, 1, 29, 17, 30, 0, 0, time.UTC)
	door := NewLifecycle(s.DB, s.Settings, s.Notifier, nil, WithClock(func() time.Time { return at }))
	ticket, err := door.CheckTicket(s.ctx, ref, admin)
	s.Require().NoError(err)
	s.Require().NotNil(ticket.UsedAt)
	s.True(at.Equal(*ticket.UsedAt))
}

func (s *LifecycleSuite) TestListTicketsByShow() {
	first := s.createShow(10)
	second := s.createShow(10)
	s.confirm(s.book(first.ID, 2, 0).Reference)
	s.confirm(s.book(second.ID, 1, 0).Reference)

	all, err := s.Lifecycle.ListTickets(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 3)

	forShow, err := s.Lifecycle.ListTickets(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Require().Len(forShow, 1)
	s.NotNil(forShow[0].Booking)
	s.NotNil(forShow[0].Buyer)
}
