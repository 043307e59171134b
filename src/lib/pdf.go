package lib

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/go-pdf/fpdf"
)

type TicketPage struct {
	Reference string
	Type      string
	QRCode    []byte
}

// TicketsPDFInput describes one booking. Each ticket gets its own section
// with the QR code given as JPEG bytes.
type TicketsPDFInput struct {
	ConcertName string
	ConcertDate string
	Venue       string
	Reference   string
	Name        string
	Email       string
	Phone       string
	ShowTime    string
	Tickets     []TicketPage
	GeneratedAt time.Time
}

func TicketsPDF(input *TicketsPDFInput) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(fmt.Sprintf("%s - %s", input.ConcertName, input.Reference)), false)
	pdf.SetMargins(20, 15, 20)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, tr("Genererat: "+input.GeneratedAt.Format("2006-01-02 15:04")), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(200, 0, 0)
	pdf.CellFormat(0, 12, tr(input.ConcertName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(139, 0, 0)
	pdf.CellFormat(0, 10, tr(input.ConcertDate), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Bokningsreferens:", input.Reference},
		{"Namn:", input.Name},
		{"E-post:", input.Email},
		{"Telefon:", input.Phone},
		{"Föreställning:", input.ShowTime},
		{"Plats:", input.Venue},
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetDrawColor(0, 0, 139)
	for _, row := range rows {
		pdf.SetFillColor(173, 216, 230)
		pdf.SetTextColor(0, 0, 139)
		pdf.CellFormat(50, 9, tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 9, tr(row[1]), "1", 1, "L", false, 0, "")
	}

	for i, t := range input.Tickets {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.SetTextColor(200, 0, 0)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Biljett %d av %d", i+1, len(input.Tickets))), "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 139)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s Biljett - %s", t.Type, t.Reference)), "", 1, "L", false, 0, "")
		pdf.Ln(4)

		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(t.Reference, opts, bytes.NewReader(t.QRCode))
		y := pdf.GetY()
		pdf.ImageOptions(t.Reference, 65, y, 80, 80, false, opts, 0, "")
		pdf.SetY(y + 85)

		details := [][2]string{
			{"Referens:", t.Reference},
			{"Typ:", t.Type},
			{"Datum:", input.ConcertDate},
			{"Tid:", input.ShowTime},
			{"Plats:", input.Venue},
		}
		for _, d := range details {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.SetTextColor(200, 0, 0)
			pdf.CellFormat(30, 7, tr(d[0]), "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 12)
			pdf.SetTextColor(0, 0, 139)
			pdf.CellFormat(0, 7, tr(d[1]), "", 1, "L", false, 0, "")
		}

		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(0, 128, 0)
		pdf.CellFormat(0, 7, "Instruktioner:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 139)
		for _, line := range []string{
			"- Visa denna QR-kod vid ingången",
			"- Biljetten är personlig och kan inte överlämnas",
			"- Ta med giltigt ID för verifiering",
		} {
			pdf.CellFormat(0, 7, tr(line), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Printf("Could not render tickets PDF for %s: %s\n", input.Reference, err.Error())
		return nil, err
	}
	return buf.Bytes(), nil
}
