package common

import (
	"fmt"
	"net/url"
	"strings"
)

const swishURLFormat = "https://app.swish.nu/1/p/sw/?sw=%s&amt=%d&cur=SEK&msg=%s&src=qr"

// PaymentURL builds the Swish deep link for paying amount to number with the
// booking reference as the message.
func PaymentURL(number string, amount int, reference string) string {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(number)
	return fmt.Sprintf(swishURLFormat, url.QueryEscape(clean), amount, url.QueryEscape(reference))
}
