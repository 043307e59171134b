package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/url"
	"strings"
	"ticketbroker/src/common"
	"ticketbroker/src/config"
	"ticketbroker/src/lib"
	"ticketbroker/src/models"
	"ticketbroker/src/types"
	"ticketbroker/src/utils"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"showTime":   showTime,
	"ticketType": ticketType,
	"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}).ParseFS(templateFS, "templates/*.html"))

type SettingsGetter interface {
	Get(ctx context.Context, key string, def string) string
}

// Notifier renders the booking emails and hands them to a Transport.
type Notifier struct {
	transport Transport
	settings  SettingsGetter
	from      string
	fromName  string
	appHost   string
	qrKey     []byte
	renderQR  func(text string) ([]byte, error)
	renderPDF func(input *lib.TicketsPDFInput) ([]byte, error)
}

type Option func(*Notifier)

func WithSender(from, name string) Option {
	return func(n *Notifier) {
		n.from = from
		n.fromName = name
	}
}

func WithAppHost(host string) Option {
	return func(n *Notifier) { n.appHost = host }
}

// WithQRKey seals ticket references in QR codes.
func WithQRKey(key []byte) Option {
	return func(n *Notifier) { n.qrKey = key }
}

func WithQRRenderer(fn func(text string) ([]byte, error)) Option {
	return func(n *Notifier) { n.renderQR = fn }
}

func WithPDFRenderer(fn func(input *lib.TicketsPDFInput) ([]byte, error)) Option {
	return func(n *Notifier) { n.renderPDF = fn }
}

func NewNotifier(transport Transport, settings SettingsGetter, opts ...Option) *Notifier {
	n := &Notifier{
		transport: transport,
		settings:  settings,
		from:      "noreply@example.com",
		renderQR:  lib.QRCodeJPEG,
		renderPDF: lib.TicketsPDF,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type emailData struct {
	ConcertName    string
	ConcertDate    string
	Venue          string
	SwishNumber    string
	SwishRecipient string
	ContactEmail   string
	PaymentURL     string
	BookingURL     string
	Booking        *models.Booking
	Bookings       []models.Booking
}

func (n *Notifier) setting(ctx context.Context, key string) string {
	return n.settings.Get(ctx, key, config.DefaultSettings[key])
}

func (n *Notifier) data(ctx context.Context) emailData {
	return emailData{
		ConcertName:    n.setting(ctx, config.SETTING_CONCERT_NAME),
		ConcertDate:    n.setting(ctx, config.SETTING_CONCERT_DATE),
		Venue:          n.setting(ctx, config.SETTING_CONCERT_VENUE),
		SwishNumber:    n.setting(ctx, config.SETTING_SWISH_NUMBER),
		SwishRecipient: n.setting(ctx, config.SETTING_SWISH_RECIPIENT_NAME),
		ContactEmail:   n.setting(ctx, config.SETTING_CONTACT_EMAIL),
	}
}

func (n *Notifier) bookingURL(b *models.Booking) string {
	return fmt.Sprintf("%s/bookings/%s?email=%s", n.appHost, b.Reference, url.QueryEscape(b.Email))
}

func (n *Notifier) SendBookingConfirmation(ctx context.Context, booking *models.Booking) error {
	data := n.data(ctx)
	data.Booking = booking
	data.PaymentURL = common.PaymentURL(data.SwishNumber, booking.TotalAmount, booking.Reference)
	data.BookingURL = n.bookingURL(booking)
	return n.send(ctx, []string{booking.Email}, fmt.Sprintf("Biljettreservation bekräftad - %s", booking.Reference), "booking_confirmation.html", data, nil)
}

func (n *Notifier) SendAdminNotification(ctx context.Context, booking *models.Booking) error {
	adminEmail := n.setting(ctx, config.SETTING_ADMIN_EMAIL)
	if adminEmail == "" {
		return errors.New("admin email is not configured")
	}
	data := n.data(ctx)
	data.Booking = booking
	return n.send(ctx, []string{adminEmail}, fmt.Sprintf("Ny biljettreservation - %s", booking.Reference), "admin_notification.html", data, nil)
}

// SendPaymentConfirmed mails the tickets of a confirmed booking as one PDF.
func (n *Notifier) SendPaymentConfirmed(ctx context.Context, booking *models.Booking) error {
	data := n.data(ctx)
	data.Booking = booking
	subject := fmt.Sprintf("Biljettbekräftelse - %s (%s)", data.ConcertName, booking.Reference)
	return n.sendTickets(ctx, []string{booking.Email}, subject, "payment_confirmed.html", data, []models.Booking{*booking})
}

// SendTicketsResend sends the tickets of one or more bookings in a single
// message to the email of the first booking.
func (n *Notifier) SendTicketsResend(ctx context.Context, bookings []models.Booking) error {
	if len(bookings) == 0 {
		return errors.New("no bookings to send")
	}
	data := n.data(ctx)
	data.Bookings = bookings
	subject := fmt.Sprintf("Dina biljetter - %s", bookings[0].Reference)
	if len(bookings) > 1 {
		subject = fmt.Sprintf("Dina biljetter - %d bokningar", len(bookings))
	}
	return n.sendTickets(ctx, []string{bookings[0].Email}, subject, "tickets_resend.html", data, bookings)
}

// sendTickets attaches a PDF per booking. When a PDF cannot be rendered the
// QR codes of that booking are attached as images, the mail still goes out
// and the returned error wraps common.ErrTicketsPDF.
func (n *Notifier) sendTickets(ctx context.Context, to []string, subject string, tmpl string, data emailData, bookings []models.Booking) error {
	var attachments []lib.Attachment
	var failed []string
	for i := range bookings {
		b := &bookings[i]
		pages, err := n.ticketPages(b.Tickets)
		if err != nil {
			return err
		}
		pdf, err := n.renderPDF(n.pdfInput(data, b, pages))
		if err != nil {
			log.Printf("Attaching QR images for %s: %s\n", b.Reference, err.Error())
			failed = append(failed, b.Reference)
			for _, p := range pages {
				attachments = append(attachments, lib.Attachment{
					Name:        p.Reference + ".jpeg",
					ContentType: "image/jpeg",
					Data:        p.QRCode,
				})
			}
			continue
		}
		attachments = append(attachments, lib.Attachment{
			Name:        fmt.Sprintf("biljetter_%s.pdf", b.Reference),
			ContentType: "application/pdf",
			Data:        pdf,
		})
	}
	if err := n.send(ctx, to, subject, tmpl, data, attachments); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", common.ErrTicketsPDF, strings.Join(failed, ", "))
	}
	return nil
}

func (n *Notifier) ticketPages(tickets []models.Ticket) ([]lib.TicketPage, error) {
	pages := make([]lib.TicketPage, 0, len(tickets))
	for _, t := range tickets {
		code, err := utils.SealTicketCode(n.qrKey, t.Reference)
		if err != nil {
			return nil, err
		}
		img, err := n.renderQR(code)
		if err != nil {
			return nil, err
		}
		pages = append(pages, lib.TicketPage{
			Reference: t.Reference,
			Type:      ticketType(t.Type),
			QRCode:    img,
		})
	}
	return pages, nil
}

func (n *Notifier) pdfInput(data emailData, b *models.Booking, pages []lib.TicketPage) *lib.TicketsPDFInput {
	return &lib.TicketsPDFInput{
		ConcertName: data.ConcertName,
		ConcertDate: data.ConcertDate,
		Venue:       data.Venue,
		Reference:   b.Reference,
		Name:        b.FullName(),
		Email:       b.Email,
		Phone:       b.Phone,
		ShowTime:    showTime(b.Show),
		Tickets:     pages,
		GeneratedAt: time.Now(),
	}
}

func (n *Notifier) send(ctx context.Context, to []string, subject string, tmpl string, data emailData, attachments []lib.Attachment) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		log.Printf("Error rendering %s: %s\n", tmpl, err.Error())
		return err
	}
	replyTo := data.ContactEmail
	err := n.transport.Send(ctx, &lib.SendMailInput{
		From:        n.from,
		FromName:    n.fromName,
		To:          to,
		ReplyTo:     replyTo,
		Subject:     subject,
		Body:        body.String(),
		Html:        true,
		Attachments: attachments,
	})
	if err != nil {
		log.Printf("Error sending %q: %s\n", subject, err.Error())
	}
	return err
}

func showTime(show *models.Show) string {
	if show == nil {
		return ""
	}
	return fmt.Sprintf("%s-%s", show.StartTime, show.EndTime)
}

func ticketType(t types.TicketType) string {
	if t == types.TICKET_STUDENT {
		return "Student"
	}
	return "Ordinarie"
}
