package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"ticketbroker/src/config"
	"ticketbroker/src/models"
	"ticketbroker/src/models/scopes"

	"gorm.io/gorm"
)

var referenceAlphabetSize = big.NewInt(int64(len(config.BookingReferenceChars)))

// RandomReference samples a booking reference from the uppercase
// alphanumeric space.
func RandomReference() string {
	b := make([]byte, config.BookingReferenceLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, referenceAlphabetSize)
		if err != nil {
			panic(err)
		}
		b[i] = config.BookingReferenceChars[n.Int64()]
	}
	return string(b)
}

func (l *Lifecycle) newBookingReference(tx *gorm.DB) (string, error) {
	for i := 0; i < config.MaxReferenceAttempts; i++ {
		ref := l.newReference()
		var count int64
		if err := tx.Model(&models.Booking{}).Scopes(scopes.WithReference(ref)).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return ref, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique booking reference after %d attempts", config.MaxReferenceAttempts)
}
