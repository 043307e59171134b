package common

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("not found")

	// ErrTicketsPDF marks a ticket email that went out without its PDF.
	ErrTicketsPDF = errors.New("tickets pdf could not be rendered")
)

// Error is returned by every lifecycle operation that rejects a request.
// errors.Is matches it against its Kind.
type Error struct {
	Kind   error
	Code   string
	Detail string
	// Args fill the verbs of the localized message.
	Args []any
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func (e *Error) Message() string {
	if msg, ok := messages[e.Code]; ok {
		if len(e.Args) > 0 {
			return fmt.Sprintf(msg, e.Args...)
		}
		return msg
	}
	if e.Detail != "" {
		return e.Detail
	}
	return e.Code
}

func NewValidationError(code string, detail string) error {
	return &Error{Kind: ErrValidation, Code: code, Detail: detail}
}

func newTicketCountError(requested int, limit int) error {
	return &Error{
		Kind:   ErrValidation,
		Code:   CodeInvalidTicketCount,
		Detail: fmt.Sprintf("requested %d, allowed 1-%d", requested, limit),
		Args:   []any{limit},
	}
}

func NewConflictError(code string, detail string) error {
	return &Error{Kind: ErrConflict, Code: code, Detail: detail}
}

func NewInvalidStateError(code string, detail string) error {
	return &Error{Kind: ErrInvalidState, Code: code, Detail: detail}
}

func NewNotFoundError(code string, detail string) error {
	return &Error{Kind: ErrNotFound, Code: code, Detail: detail}
}

func notFound(err error, code string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError(code, "")
	}
	return err
}

// ErrorCode returns the machine readable code of err, or an empty string.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LocalizedMessage returns the buyer facing text for err.
func LocalizedMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return "Ett fel uppstod. Försök igen."
}

const (
	CodeMissingFields          = "missing_fields"
	CodeGDPRConsentRequired    = "gdpr_consent_required"
	CodeInvalidEmail           = "invalid_email"
	CodeInvalidPhone           = "invalid_phone"
	CodeInvalidTicketCount     = "invalid_ticket_count"
	CodeInvalidCapacity        = "invalid_capacity"
	CodeInvalidShowTime        = "invalid_show_time"
	CodeInvalidSetting         = "invalid_setting"
	CodeShowNotFound           = "show_not_found"
	CodeBookingNotFound        = "booking_not_found"
	CodeTicketNotFound         = "ticket_not_found"
	CodeShowSoldOut            = "show_sold_out"
	CodeNotEnoughTickets       = "not_enough_tickets"
	CodeShowHasBookings        = "show_has_bookings"
	CodeCapacityBelowConfirmed = "capacity_below_confirmed"
	CodeBookingNotConfirmed    = "booking_not_confirmed"
	CodeBookingConfirmed       = "booking_already_confirmed"
	CodeTicketUsed             = "ticket_used"
	CodeTicketAlreadyUsed      = "ticket_already_used"
	CodeInvalidTicketCode      = "invalid_ticket_code"
)

var messages = map[string]string{
	CodeMissingFields:          "Alla fält är obligatoriska.",
	CodeGDPRConsentRequired:    "Du måste godkänna att informationen sparas.",
	CodeInvalidEmail:           "Ange en giltig e-postadress.",
	CodeInvalidPhone:           "Ange ett giltigt telefonnummer.",
	CodeInvalidTicketCount:     "Välj mellan 1 och %d biljetter.",
	CodeInvalidCapacity:        "Ogiltigt antal platser.",
	CodeInvalidShowTime:        "Ogiltig tid för föreställningen.",
	CodeInvalidSetting:         "Ogiltigt värde för inställningen.",
	CodeShowNotFound:           "Föreställningen hittades inte.",
	CodeBookingNotFound:        "Bokningen hittades inte.",
	CodeTicketNotFound:         "Biljetten hittades inte.",
	CodeShowSoldOut:            "Tyvärr är biljetterna slut till den här spelningen.",
	CodeNotEnoughTickets:       "Det finns inte tillräckligt många biljetter kvar.",
	CodeShowHasBookings:        "Kan inte radera föreställning med befintliga bokningar.",
	CodeCapacityBelowConfirmed: "Antalet lediga platser kan inte vara lägre än antalet sålda biljetter.",
	CodeBookingNotConfirmed:    "Bokningen är inte bekräftad.",
	CodeBookingConfirmed:       "Betalningen är redan bekräftad.",
	CodeTicketUsed:             "En använd biljett kan inte raderas.",
	CodeTicketAlreadyUsed:      "Biljetten har redan använts.",
	CodeInvalidTicketCode:      "Ogiltig biljettkod.",
}
