package utils

import (
	"bytes"
	"encoding/hex"
	"testing"
	"ticketbroker/src/models"
	"ticketbroker/src/types"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testKey, _ = hex.DecodeString("6368616e676520746869732070617373776f726420746f206120736563726574")

func TestEncryptDecryptMessage(t *testing.T) {
	sealed, err := EncryptMessage(testKey, "AB3K9-N01")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "AB3K9")

	plain, err := DecryptMessage(testKey, sealed)
	require.NoError(t, err)
	assert.Equal(t, "AB3K9-N01", *plain)

	_, err = DecryptMessage(testKey, "abcd")
	assert.ErrorIs(t, err, ErrShortCipherText)
}

func TestQRSecretKey(t *testing.T) {
	key, err := QRSecretKey("")
	require.NoError(t, err)
	assert.Nil(t, key)

	_, err = QRSecretKey("zz")
	assert.Error(t, err)
	_, err = QRSecretKey("abcd")
	assert.Error(t, err)

	key, err = QRSecretKey(hex.EncodeToString(testKey))
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestTicketCodes(t *testing.T) {
	code, err := SealTicketCode(nil, "AB3K9-N01")
	require.NoError(t, err)
	assert.Equal(t, "AB3K9-N01", code)

	sealed, err := SealTicketCode(testKey, "AB3K9-D03")
	require.NoError(t, err)
	ref, err := OpenTicketCode(testKey, sealed)
	require.NoError(t, err)
	assert.Equal(t, "AB3K9-D03", ref)

	ref, err = OpenTicketCode(testKey, " ab3k9-n02 ")
	require.NoError(t, err)
	assert.Equal(t, "AB3K9-N02", ref)

	_, err = OpenTicketCode(nil, "garbage")
	assert.Error(t, err)
	_, err = OpenTicketCode(testKey, "garbage")
	assert.Error(t, err)
}

func TestWithSuffix(t *testing.T) {
	t.Setenv("API_ENV", "production")
	assert.Equal(t, "emails", WithSuffix("emails"))
	assert.True(t, IsProd())

	t.Setenv("API_ENV", "local")
	assert.Equal(t, "emails_local", WithSuffix("emails"))
	assert.False(t, IsProd())
}

func TestWriteBookingsXLSX(t *testing.T) {
	confirmedAt := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	bookings := []models.Booking{
		{
			ID:             7,
			Reference:      "AB3K9",
			FirstName:      "Anna",
			LastName:       "Svensson",
			Email:          "anna@example.com",
			Phone:          "0701234567",
			AdultTickets:   2,
			StudentTickets: 1,
			TotalAmount:    500,
			Status:         types.BOOKING_CONFIRMED,
			ConfirmedAt:    &confirmedAt,
			Show:           &models.Show{Date: "2026-01-29", StartTime: "17:45", EndTime: "18:45"},
		},
		{Reference: "ZZ001", FirstName: "Erik, Jr.", Status: types.BOOKING_RESERVED},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBookingsXLSX(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(BookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Bekräftad", rows[0][12])
	assert.Equal(t, "7", rows[1][0])
	assert.Equal(t, "AB3K9", rows[1][1])
	assert.Equal(t, "Anna Svensson", rows[1][2])
	assert.Equal(t, "17:45-18:45", rows[1][5])
	assert.Equal(t, "500", rows[1][8])
	assert.Equal(t, "confirmed", rows[1][9])
	assert.Equal(t, "Nej", rows[1][10])
	assert.Equal(t, "2026-01-20 12:00", rows[1][12])
	assert.Equal(t, "Erik, Jr.", rows[2][2])
	assert.Equal(t, "", rows[2][5])
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "klasskonsert-24c-bookings-20260129.xlsx", ExportFilename("Klasskonsert 24C", at))
	assert.Equal(t, "tickets-bookings-20260129.xlsx", ExportFilename("", at))
}
