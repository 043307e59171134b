package utils

import (
	"fmt"
	"io"
	"log"
	"ticketbroker/src/models"
	"time"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"
)

const BookingsSheet = "Biljettbokningar"

var bookingExportHeader = []any{
	"ID", "Referens", "Namn", "E-post", "Telefon", "Tid",
	"Ordinarie biljetter", "Studentbiljetter", "Totalt", "Status",
	"Betalning bekräftad", "Datum", "Bekräftad",
}

// WriteBookingsXLSX writes a workbook with one row per booking.
func WriteBookingsXLSX(w io.Writer, bookings []models.Booking) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing workbook: %s\n", err.Error())
		}
	}()
	if err := f.SetSheetName("Sheet1", BookingsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(BookingsSheet, "A1", &bookingExportHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(BookingsSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, b := range bookings {
		show := ""
		if b.Show != nil {
			show = fmt.Sprintf("%s-%s", b.Show.StartTime, b.Show.EndTime)
		}
		buyerConfirmed := "Nej"
		if b.Payment.BuyerConfirmed {
			buyerConfirmed = "Ja"
		}
		confirmedAt := ""
		if b.ConfirmedAt != nil {
			confirmedAt = b.ConfirmedAt.Format("2006-01-02 15:04")
		}
		row := []any{
			b.ID,
			b.Reference,
			b.FullName(),
			b.Email,
			b.Phone,
			show,
			b.AdultTickets,
			b.StudentTickets,
			b.TotalAmount,
			string(b.Status),
			buyerConfirmed,
			b.CreatedAt.Format("2006-01-02 15:04"),
			confirmedAt,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(BookingsSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(BookingsSheet, "B", "E", 22); err != nil {
		return err
	}
	return f.Write(w)
}

// ExportFilename builds the download name for an export of concert.
func ExportFilename(concert string, at time.Time) string {
	name := slug.Make(concert)
	if name == "" {
		name = "tickets"
	}
	return fmt.Sprintf("%s-bookings-%s.xlsx", name, at.Format("20060102"))
}
