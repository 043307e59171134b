package common

import (
	"regexp"
	"strings"
	"ticketbroker/src/config"
	"ticketbroker/src/models"
	"ticketbroker/src/types"
)

func (s *LifecycleSuite) TestCreateBookingStartsReserved() {
	show := s.createShow(10)
	out, err := s.Lifecycle.CreateBooking(s.ctx, bookingInput(show.ID, 2, 1))
	s.Require().NoError(err)

	b := out.Booking
	s.Equal(types.BOOKING_RESERVED, b.Status)
	s.Equal(200, b.AdultPrice)
	s.Equal(100, b.StudentPrice)
	s.Equal(500, b.TotalAmount)
	s.Regexp(regexp.MustCompile(`^[A-Z0-9]{5}$`), b.Reference)
	s.Contains(out.PaymentURL, "amt=500")
	s.Contains(out.PaymentURL, "msg="+b.Reference)
	s.Empty(out.Warnings)
	s.Equal([]string{b.Reference}, s.Notifier.confirmations)

	// reservations hold no seats
	s.Equal(10, s.reloadShow(show.ID).AvailableTickets)
	s.EqualValues(1, s.auditCount(types.ACTION_BOOKING_CREATED, b.Reference))
}

func (s *LifecycleSuite) TestCreateBookingValidation() {
	show := s.createShow(10)
	cases := []struct {
		name string
		edit func(in *BookingInput)
		code string
	}{
		{"missing first name", func(in *BookingInput) { in.FirstName = "  " }, CodeMissingFields},
		{"bad email", func(in *BookingInput) { in.Email = "anna@example" }, CodeInvalidEmail},
		{"bad phone", func(in *BookingInput) { in.Phone = "+4470123" }, CodeInvalidPhone},
		{"no consent", func(in *BookingInput) { in.GDPRConsent = false }, CodeGDPRConsentRequired},
		{"no tickets", func(in *BookingInput) { in.AdultTickets, in.StudentTickets = 0, 0 }, CodeInvalidTicketCount},
		{"too many tickets", func(in *BookingInput) { in.AdultTickets, in.StudentTickets = 3, 2 }, CodeInvalidTicketCount},
		{"negative tickets", func(in *BookingInput) { in.AdultTickets, in.StudentTickets = 3, -1 }, CodeInvalidTicketCount},
	}
	for _, tc := range cases {
		in := bookingInput(show.ID, 1, 0)
		tc.edit(&in)
		_, err := s.Lifecycle.CreateBooking(s.ctx, in)
		s.ErrorIs(err, ErrValidation, tc.name)
		s.Equal(tc.code, ErrorCode(err), tc.name)
	}
	var count int64
	s.Require().NoError(s.DB.Model(&models.Booking{}).Count(&count).Error)
	s.Zero(count)
	s.Empty(s.Notifier.confirmations)
}

func (s *LifecycleSuite) TestCreateBookingAcceptsSwedishPhoneFormats() {
	show := s.createShow(10)
	for _, phone := range []string{"0701234567", "+46 70 123 45 67", "070-123 45 67"} {
		in := bookingInput(show.ID, 1, 0)
		in.Phone = phone
		_, err := s.Lifecycle.CreateBooking(s.ctx, in)
		s.NoError(err, phone)
	}
}

func (s *LifecycleSuite) TestCreateBookingMaxTicketsFollowsSettings() {
	show := s.createShow(10)
	s.Require().NoError(s.Settings.Set(s.ctx, config.SETTING_MAX_TICKETS, "6", admin))
	_, err := s.Lifecycle.CreateBooking(s.ctx, bookingInput(show.ID, 4, 2))
	s.NoError(err)
	_, err = s.Lifecycle.CreateBooking(s.ctx, bookingInput(show.ID, 5, 2))
	s.ErrorIs(err, ErrValidation)
	s.Equal("Välj mellan 1 och 6 biljetter.", LocalizedMessage(err))
}

func (s *LifecycleSuite) TestCreateBookingStoresNormalizedPhone() {
	show := s.createShow(10)
	in := bookingInput(show.ID, 1, 0)
	in.Phone = "+46 7 0 1 2 3 4 5 6 7"
	out, err := s.Lifecycle.CreateBooking(s.ctx, in)
	s.Require().NoError(err)

	stored, err := s.Lifecycle.GetBooking(s.ctx, out.Booking.Reference)
	s.Require().NoError(err)
	s.Equal("+46701234567", stored.Phone)

	phone := "070 - 987 65 43"
	edited, err := s.Lifecycle.EditBooking(s.ctx, stored.Reference, ContactFields{Phone: &phone}, admin)
	s.Require().NoError(err)
	s.Equal("0709876543", edited.Phone)
}

func (s *LifecycleSuite) TestCreateBookingUnknownShow() {
	_, err := s.Lifecycle.CreateBooking(s.ctx, bookingInput(999, 1, 0))
	s.ErrorIs(err, ErrNotFound)
	s.Equal(CodeShowNotFound, ErrorCode(err))
}

func (s *LifecycleSuite) TestCapacityTwoScenario() {
	show := s.createShow(2)
	s.refs = []string{"AAAAA", "BBBBB"}

	a := s.book(show.ID, 1, 0)
	s.Equal("AAAAA", a.Reference)
	s.Equal(2, s.reloadShow(show.ID).AvailableTickets)

	out := s.confirm(a.Reference)
	s.Require().Len(out.Tickets, 1)
	s.Equal("AAAAA-N01", out.Tickets[0].Reference)
	s.Equal(1, s.reloadShow(show.ID).AvailableTickets)

	_, err := s.Lifecycle.CreateBooking(s.ctx, bookingInput(show.ID, 2, 0))
	s.ErrorIs(err, ErrConflict)
	s.Equal(CodeNotEnoughTickets, ErrorCode(err))

	b := s.book(show.ID, 1, 0)
	s.confirm(b.Reference)
	s.Equal(0, s.reloadShow(show.ID).AvailableTickets)

	_, err = s.Lifecycle.CreateBooking(s.ctx, bookingInput(show.ID, 1, 0))
	s.ErrorIs(err, ErrConflict)
	s.Equal(CodeShowSoldOut, ErrorCode(err))
	s.assertAvailability(show.ID)
}

func (s *LifecycleSuite) TestReferenceCollisionIsRetried() {
	show := s.createShow(10)
	s.refs = []string{"AAAAA", "AAAAA", "BBBBB"}
	first := s.book(show.ID, 1, 0)
	second := s.book(show.ID, 1, 0)
	s.Equal("AAAAA", first.Reference)
	s.Equal("BBBBB", second.Reference)
}

func (s *LifecycleSuite) TestReferencesAreUnique() {
	show := s.createShow(10)
	seen := map[string]bool{}
	for i := 0; i < 40; i++ {
		b := s.book(show.ID, 1, 0)
		s.False(seen[b.Reference], b.Reference)
		seen[b.Reference] = true
	}
}

func (s *LifecycleSuite) TestPricesAreFrozenOnBooking() {
	show := s.createShow(10)
	first := s.book(show.ID, 1, 1)
	s.Equal(300, first.TotalAmount)

	s.Require().NoError(s.Settings.Set(s.ctx, config.SETTING_ADULT_PRICE, "500", admin))
	second := s.book(show.ID, 1, 1)
	s.Equal(600, second.TotalAmount)

	stored, err := s.Lifecycle.GetBooking(s.ctx, first.Reference)
	s.Require().NoError(err)
	s.Equal(200, stored.AdultPrice)
	s.Equal(300, stored.TotalAmount)
}

func (s *LifecycleSuite) TestInitiatePayment() {
	show := s.createShow(10)
	s.Require().NoError(s.Settings.Set(s.ctx, config.SETTING_SWISH_NUMBER, "123-456 78 90", admin))
	b := s.book(show.ID, 1, 0)

	out, err := s.Lifecycle.InitiatePayment(s.ctx, b.Reference)
	s.Require().NoError(err)
	s.False(out.AlreadyConfirmed)
	s.Equal("https://app.swish.nu/1/p/sw/?sw=1234567890&amt=200&cur=SEK&msg="+b.Reference+"&src=qr", out.PaymentURL)

	stored, err := s.Lifecycle.GetBooking(s.ctx, b.Reference)
	s.Require().NoError(err)
	s.True(stored.Payment.Initiated)
	s.NotNil(stored.Payment.InitiatedAt)
	s.Equal(types.BOOKING_RESERVED, stored.Status)
	s.EqualValues(1, s.auditCount(types.ACTION_PAYMENT_INITIATED, b.Reference))
}

func (s *LifecycleSuite) TestBuyerConfirmNotifiesAdmin() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 0)

	out, err := s.Lifecycle.BuyerConfirmPayment(s.ctx, b.Reference)
	s.Require().NoError(err)
	s.Empty(out.Warnings)
	s.True(out.Booking.Payment.BuyerConfirmed)
	s.Equal(types.BOOKING_RESERVED, out.Booking.Status)
	s.Equal([]string{b.Reference}, s.Notifier.admin)

	var tickets int64
	s.Require().NoError(s.DB.Model(&models.Ticket{}).Count(&tickets).Error)
	s.Zero(tickets)
}

func (s *LifecycleSuite) TestNotificationFailuresAreWarnings() {
	show := s.createShow(10)
	s.Notifier.fail = true

	out, err := s.Lifecycle.CreateBooking(s.ctx, bookingInput(show.ID, 1, 0))
	s.Require().NoError(err)
	s.Equal([]string{WarnConfirmationEmail}, out.Warnings)
	ref := out.Booking.Reference

	out, err = s.Lifecycle.BuyerConfirmPayment(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal([]string{WarnAdminEmail}, out.Warnings)

	out, err = s.Lifecycle.AdminConfirmPayment(s.ctx, ref, admin)
	s.Require().NoError(err)
	s.Equal([]string{WarnTicketsEmail}, out.Warnings)

	s.Notifier.fail = false
	s.Notifier.pdfFail = true
	resent, err := s.Lifecycle.ResendTickets(s.ctx, ref, admin)
	s.Require().NoError(err)
	s.Equal([]string{WarnTicketsPDF}, resent.Warnings)
	s.Len(out.Tickets, 1)

	stored, err := s.Lifecycle.GetBooking(s.ctx, ref)
	s.Require().NoError(err)
	s.True(stored.IsConfirmed())
}

func (s *LifecycleSuite) TestAdminConfirmIsIdempotent() {
	show := s.createShow(10)
	b := s.book(show.ID, 2, 1)

	out := s.confirm(b.Reference)
	s.False(out.AlreadyConfirmed)
	s.Len(out.Tickets, 3)

	again := s.confirm(b.Reference)
	s.True(again.AlreadyConfirmed)
	s.Empty(again.Tickets)

	var tickets int64
	s.Require().NoError(s.DB.Model(&models.Ticket{}).Where("booking_id = ?", b.ID).Count(&tickets).Error)
	s.EqualValues(3, tickets)
	s.EqualValues(1, s.auditCount(types.ACTION_PAYMENT_CONFIRMED, b.Reference))
	s.Equal([]string{b.Reference}, s.Notifier.paymentConfirmed)
	s.Equal(7, s.reloadShow(show.ID).AvailableTickets)

	pay, err := s.Lifecycle.InitiatePayment(s.ctx, b.Reference)
	s.Require().NoError(err)
	s.True(pay.AlreadyConfirmed)
	s.Empty(pay.PaymentURL)
	s.Zero(s.auditCount(types.ACTION_PAYMENT_INITIATED, b.Reference))
}

func (s *LifecycleSuite) TestAdminConfirmPastCapacityWarns() {
	show := s.createShow(2)
	a := s.book(show.ID, 2, 0)
	b := s.book(show.ID, 1, 0)
	s.confirm(a.Reference)

	out := s.confirm(b.Reference)
	s.Contains(out.Warnings, WarnShowOversold)
	s.Equal(0, s.reloadShow(show.ID).AvailableTickets)
	s.assertAvailability(show.ID)
}

func (s *LifecycleSuite) TestAuditEntriesShareCorrelationID() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 1)
	s.confirm(b.Reference)

	var confirmed models.AuditLog
	s.Require().NoError(s.DB.Where("action_type = ?", types.ACTION_PAYMENT_CONFIRMED).First(&confirmed).Error)
	var generated []models.AuditLog
	s.Require().NoError(s.DB.Where("action_type = ?", types.ACTION_TICKET_GENERATED).Find(&generated).Error)
	s.Len(generated, 2)
	for _, g := range generated {
		s.Equal(confirmed.CorrelationID, g.CorrelationID)
		s.Equal(types.ACTOR_ADMIN, g.ActorType)
	}
	s.Equal("reserved", confirmed.OldValue["status"])
	s.Equal("confirmed", confirmed.NewValue["status"])

	var published []types.AuditAction
	for _, p := range s.Publisher.payloads {
		s.Equal("audit-events", p["topic"])
		published = append(published, p["action_type"].(types.AuditAction))
	}
	s.Contains(published, types.ACTION_BOOKING_CREATED)
	s.Contains(published, types.ACTION_PAYMENT_CONFIRMED)
}

func (s *LifecycleSuite) TestEditBookingChangesContactOnly() {
	show := s.createShow(10)
	b := s.book(show.ID, 2, 0)

	email := "anna.svensson@example.com"
	phone := "0709876543"
	edited, err := s.Lifecycle.EditBooking(s.ctx, b.Reference, ContactFields{Email: &email, Phone: &phone}, admin)
	s.Require().NoError(err)
	s.Equal(email, edited.Email)
	s.Equal(2, edited.AdultTickets)
	s.Equal(400, edited.TotalAmount)

	var entry models.AuditLog
	s.Require().NoError(s.DB.Where("action_type = ?", types.ACTION_BOOKING_UPDATED).First(&entry).Error)
	s.Equal("anna@example.com", entry.OldValue["email"])
	s.Equal(email, entry.NewValue["email"])

	bad := "not-an-email"
	_, err = s.Lifecycle.EditBooking(s.ctx, b.Reference, ContactFields{Email: &bad}, admin)
	s.ErrorIs(err, ErrValidation)
	stored, err := s.Lifecycle.GetBooking(s.ctx, b.Reference)
	s.Require().NoError(err)
	s.Equal(email, stored.Email)
}

func (s *LifecycleSuite) TestEditConfirmedBookingMovesTicketsToNewBuyer() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 1)
	s.confirm(b.Reference)

	email := "anna.svensson@example.com"
	phone := "0709876543"
	_, err := s.Lifecycle.EditBooking(s.ctx, b.Reference, ContactFields{Email: &email, Phone: &phone}, admin)
	s.Require().NoError(err)

	var tickets []models.Ticket
	s.Require().NoError(s.DB.Preload("Buyer").Where("booking_id = ?", b.ID).Find(&tickets).Error)
	s.Require().Len(tickets, 2)
	for _, ticket := range tickets {
		s.Require().NotNil(ticket.Buyer)
		s.Equal(phone, ticket.Buyer.Phone)
		s.Equal(email, ticket.Buyer.Email)
	}

	// reserved bookings have no tickets and no buyer yet
	reserved := s.book(show.ID, 1, 0)
	other := "0701112233"
	_, err = s.Lifecycle.EditBooking(s.ctx, reserved.Reference, ContactFields{Phone: &other}, admin)
	s.Require().NoError(err)
	var buyers int64
	s.Require().NoError(s.DB.Model(&models.Buyer{}).Where("phone = ?", other).Count(&buyers).Error)
	s.Zero(buyers)
}

func (s *LifecycleSuite) TestDeleteBookingReleasesSeats() {
	show := s.createShow(5)
	b := s.book(show.ID, 2, 0)
	s.confirm(b.Reference)
	s.Equal(3, s.reloadShow(show.ID).AvailableTickets)

	s.Require().NoError(s.Lifecycle.DeleteBooking(s.ctx, b.Reference, admin))
	s.Equal(5, s.reloadShow(show.ID).AvailableTickets)

	var tickets int64
	s.Require().NoError(s.DB.Model(&models.Ticket{}).Count(&tickets).Error)
	s.Zero(tickets)
	_, err := s.Lifecycle.GetBooking(s.ctx, b.Reference)
	s.ErrorIs(err, ErrNotFound)
	s.EqualValues(1, s.auditCount(types.ACTION_BOOKING_DELETED, b.Reference))
}

func (s *LifecycleSuite) TestResendRequiresMatchingState() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 0)

	_, err := s.Lifecycle.ResendTickets(s.ctx, b.Reference, admin)
	s.ErrorIs(err, ErrInvalidState)

	_, err = s.Lifecycle.ResendConfirmation(s.ctx, b.Reference, admin)
	s.Require().NoError(err)
	s.Len(s.Notifier.confirmations, 2)

	s.confirm(b.Reference)
	_, err = s.Lifecycle.ResendConfirmation(s.ctx, b.Reference, admin)
	s.ErrorIs(err, ErrInvalidState)

	out, err := s.Lifecycle.ResendTickets(s.ctx, b.Reference, admin)
	s.Require().NoError(err)
	s.Len(out.Tickets, 1)
	s.Equal([][]string{{b.Reference}}, s.Notifier.resends)
	s.EqualValues(2, s.auditCount(types.ACTION_NOTIFICATION_RESENT, b.Reference))
}

func (s *LifecycleSuite) TestResendTicketsForEmailGroupsBookings() {
	show := s.createShow(10)
	a := s.book(show.ID, 1, 0)
	in := bookingInput(show.ID, 1, 1)
	in.Email = "Anna@Example.com"
	out, err := s.Lifecycle.CreateBooking(s.ctx, in)
	s.Require().NoError(err)
	b := out.Booking
	s.book(show.ID, 1, 0)
	s.confirm(a.Reference)
	s.confirm(b.Reference)

	bookings, warnings, err := s.Lifecycle.ResendTicketsForEmail(s.ctx, "anna@example.com", admin)
	s.Require().NoError(err)
	s.Empty(warnings)
	s.Len(bookings, 2)
	s.Equal([][]string{{a.Reference, b.Reference}}, s.Notifier.resends)

	_, _, err = s.Lifecycle.ResendTicketsForEmail(s.ctx, "nobody@example.com", admin)
	s.ErrorIs(err, ErrNotFound)
}

func (s *LifecycleSuite) TestFindBookingNeedsEmail() {
	show := s.createShow(10)
	b := s.book(show.ID, 1, 0)

	found, err := s.Lifecycle.FindBooking(s.ctx, " "+strings.ToLower(b.Reference)+" ", "ANNA@example.com")
	s.Require().NoError(err)
	s.Equal(b.ID, found.ID)
	s.NotNil(found.Show)

	_, err = s.Lifecycle.FindBooking(s.ctx, b.Reference, "other@example.com")
	s.ErrorIs(err, ErrNotFound)
}

func (s *LifecycleSuite) TestListBookingsFilters() {
	first := s.createShow(10)
	second := s.createShow(10)
	a := s.book(first.ID, 1, 0)
	s.book(first.ID, 1, 0)
	s.book(second.ID, 1, 0)
	s.confirm(a.Reference)

	all, err := s.Lifecycle.ListBookings(s.ctx, BookingFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	forShow, err := s.Lifecycle.ListBookings(s.ctx, BookingFilter{ShowID: first.ID})
	s.Require().NoError(err)
	s.Len(forShow, 2)

	confirmed, err := s.Lifecycle.ListBookings(s.ctx, BookingFilter{Status: types.BOOKING_CONFIRMED})
	s.Require().NoError(err)
	s.Require().Len(confirmed, 1)
	s.Equal(a.Reference, confirmed[0].Reference)
}
