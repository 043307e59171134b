package lib

import (
	"bytes"
	"log"

	"github.com/yeqown/go-qrcode"
)

// QRCodeJPEG encodes text as a JPEG QR code.
func QRCodeJPEG(text string) ([]byte, error) {
	qrc, err := qrcode.New(text)
	if err != nil {
		log.Printf("Could not generate QRCode: %s\n", err.Error())
		return nil, err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		log.Printf("Could not encode QRCode: %s\n", err.Error())
		return nil, err
	}
	return buf.Bytes(), nil
}
